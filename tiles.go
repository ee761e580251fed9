package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	TileIDColumn  = "ID"
	TileRAColumn  = "ra_center"
	TileDecColumn = "dec_center"
	TileComment   = "#"
)

// Tile is a telescope footprint of the catalog, centered on RA/Dec (degrees).
type Tile struct {
	ID  int
	RA  float64
	Dec float64
}

func (t Tile) Coord() Coord {
	return Coord{RA: t.RA, Dec: t.Dec}
}

func LoadTiles(file string) ([]Tile, error) {
	r, err := os.Open(file)
	if err != nil {
		return nil, tileFileMissing(file, err)
	}
	defer r.Close()
	return ReadTiles(r, file)
}

// ReadTiles decodes a whitespace separated tile catalog. The first non
// comment row is the header; it may itself start with a #.
func ReadTiles(r io.Reader, file string) ([]Tile, error) {
	var (
		s     = bufio.NewScanner(r)
		ts    []Tile
		index map[string]int
		row   int
	)
	for s.Scan() {
		row++
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		if index == nil {
			fs := strings.Fields(strings.TrimPrefix(line, TileComment))
			if ix, ok := tileColumns(fs); ok {
				index = ix
				continue
			}
			if strings.HasPrefix(line, TileComment) {
				continue
			}
			return nil, badUsage(fmt.Sprintf("%s: header should contain %s, %s and %s", file, TileIDColumn, TileRAColumn, TileDecColumn))
		}
		if strings.HasPrefix(line, TileComment) {
			continue
		}
		fs := strings.Fields(line)
		t, err := parseTile(fs, index, file, row-1)
		if err != nil {
			return nil, err
		}
		ts = append(ts, t)
	}
	if err := s.Err(); err != nil {
		return nil, tileFileMissing(file, err)
	}
	if len(ts) == 0 {
		return nil, tileFileMissing(file, fmt.Errorf("no tiles found"))
	}
	return ts, nil
}

func tileColumns(fs []string) (map[string]int, bool) {
	index := make(map[string]int)
	for i, f := range fs {
		switch {
		case f == TileIDColumn:
			index[TileIDColumn] = i
		case strings.EqualFold(f, TileRAColumn):
			index[TileRAColumn] = i
		case strings.EqualFold(f, TileDecColumn):
			index[TileDecColumn] = i
		}
	}
	return index, len(index) == 3
}

func parseTile(fs []string, index map[string]int, file string, row int) (Tile, error) {
	var (
		t   Tile
		err error
	)
	for _, n := range []string{TileIDColumn, TileRAColumn, TileDecColumn} {
		if index[n] >= len(fs) {
			return t, badUsage(fmt.Sprintf("%s: missing column %s at row %d", file, n, row+1))
		}
	}
	v := fs[index[TileIDColumn]]
	if t.ID, err = strconv.Atoi(v); err != nil {
		return t, floatBadSyntax(file, row, v)
	}
	v = fs[index[TileRAColumn]]
	if t.RA, err = strconv.ParseFloat(v, 64); err != nil {
		return t, floatBadSyntax(file, row, v)
	}
	v = fs[index[TileDecColumn]]
	if t.Dec, err = strconv.ParseFloat(v, 64); err != nil {
		return t, floatBadSyntax(file, row, v)
	}
	return t, nil
}

// tileLookup indexes a catalog by tile ID.
func tileLookup(ts []Tile) map[int]Tile {
	m := make(map[int]Tile, len(ts))
	for _, t := range ts {
		m[t.ID] = t
	}
	return m
}
