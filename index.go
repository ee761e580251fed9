package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

const DefaultIndexPrefix = "preComputed_pixel_indices_"

const (
	IndexDBExt   = ".db"
	IndexTextExt = ".dat"
)

var SupportedResolutions = []int{64, 128, 256, 512, 1024, 2048}

func isSupportedResolution(r int) bool {
	for _, s := range SupportedResolutions {
		if s == r {
			return true
		}
	}
	return false
}

// TilePixels lists the RING pixels covered by one tile.
type TilePixels struct {
	ID     int
	Pixels []int
}

// TileIndex maps every tile, in ID order, to its pixels at one resolution.
type TileIndex struct {
	Nside int
	Tiles []TilePixels
}

func (x *TileIndex) validate() error {
	npix := nside2npix(x.Nside)
	for _, t := range x.Tiles {
		for _, p := range t.Pixels {
			if p < 0 || p >= npix {
				return fmt.Errorf("tile %d: pixel %d out of range for nside %d", t.ID, p, x.Nside)
			}
		}
	}
	return nil
}

// TileIndexCatalog locates the precomputed tile indexes, one file per
// supported resolution.
type TileIndexCatalog struct {
	Dir    string
	Prefix string
}

func (c TileIndexCatalog) prefix() string {
	if c.Prefix == "" {
		return DefaultIndexPrefix
	}
	return c.Prefix
}

func (c TileIndexCatalog) Path(resolution int, ext string) string {
	return filepath.Join(c.Dir, fmt.Sprintf("%s%d%s", c.prefix(), resolution, ext))
}

func (c TileIndexCatalog) Load(resolution int) (*TileIndex, error) {
	if !isSupportedResolution(resolution) {
		return nil, unsupportedResolution(resolution)
	}
	var (
		file string
		err  error
	)
	for _, ext := range []string{IndexDBExt, IndexTextExt} {
		file = c.Path(resolution, ext)
		if _, err = os.Stat(file); err == nil {
			break
		}
	}
	if err != nil {
		return nil, catalogMissing(c.Path(resolution, "{"+IndexDBExt+","+IndexTextExt+"}"), err)
	}
	var x *TileIndex
	if filepath.Ext(file) == IndexDBExt {
		x, err = ReadTileIndexDB(file)
	} else {
		x, err = ReadTileIndexFile(file, resolution)
	}
	if err != nil {
		return nil, catalogMissing(file, err)
	}
	if x.Nside != resolution {
		return nil, catalogMissing(file, fmt.Errorf("index built for nside %d", x.Nside))
	}
	if err := x.validate(); err != nil {
		return nil, catalogMissing(file, err)
	}
	return x, nil
}

func ReadTileIndexFile(file string, nside int) (*TileIndex, error) {
	r, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ReadTileIndex(r, nside)
}

// ReadTileIndex decodes the text format: line k holds the pixels of tile k.
// Lines starting with # are comments, empty lines are tiles without pixels.
func ReadTileIndex(r io.Reader, nside int) (*TileIndex, error) {
	var (
		s = bufio.NewScanner(r)
		x = TileIndex{Nside: nside}
	)
	s.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for row := 1; s.Scan(); row++ {
		line := strings.TrimSpace(s.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		t := TilePixels{ID: len(x.Tiles) + 1}
		for _, f := range strings.Fields(line) {
			p, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid pixel %q", row, f)
			}
			t.Pixels = append(t.Pixels, p)
		}
		x.Tiles = append(x.Tiles, t)
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return &x, nil
}

func WriteTileIndex(w io.Writer, x *TileIndex) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# nside %d, %d tiles", x.Nside, len(x.Tiles))
	fmt.Fprintln(bw)
	for _, t := range x.Tiles {
		for i, p := range t.Pixels {
			if i > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(strconv.Itoa(p))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

var indexSchema = []string{
	`CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tiles (
		id INTEGER PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS tile_pixels (
		tile_id INTEGER NOT NULL REFERENCES tiles(id),
		pixel   INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tile_pixels_tile ON tile_pixels(tile_id)`,
}

func ReadTileIndexDB(file string) (*TileIndex, error) {
	db, err := sql.Open("sqlite", file)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", file, err)
	}
	defer db.Close()

	ctx := context.Background()

	var x TileIndex
	if err := db.QueryRowContext(ctx, `SELECT CAST(value AS INTEGER) FROM meta WHERE key = 'nside'`).Scan(&x.Nside); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: nside not recorded", file)
		}
		return nil, fmt.Errorf("read nside: %w", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT id FROM tiles ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tiles: %w", err)
	}
	pos := make(map[int]int)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan tile: %w", err)
		}
		pos[id] = len(x.Tiles)
		x.Tiles = append(x.Tiles, TilePixels{ID: id})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tiles: %w", err)
	}

	rows, err = db.QueryContext(ctx, `SELECT tile_id, pixel FROM tile_pixels ORDER BY tile_id, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list pixels: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, pix int
		if err := rows.Scan(&id, &pix); err != nil {
			return nil, fmt.Errorf("scan pixel: %w", err)
		}
		i, ok := pos[id]
		if !ok {
			return nil, fmt.Errorf("pixel %d refers to unknown tile %d", pix, id)
		}
		x.Tiles[i].Pixels = append(x.Tiles[i].Pixels, pix)
	}
	return &x, rows.Err()
}

func WriteTileIndexDB(file string, x *TileIndex) error {
	db, err := sql.Open("sqlite", file)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", file, err)
	}
	defer db.Close()

	ctx := context.Background()
	for _, stmt := range indexSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO meta (key, value) VALUES ('nside', ?)`, strconv.Itoa(x.Nside)); err != nil {
		return fmt.Errorf("write nside: %w", err)
	}
	tile, err := tx.PrepareContext(ctx, `INSERT INTO tiles (id) VALUES (?)`)
	if err != nil {
		return err
	}
	defer tile.Close()
	pixel, err := tx.PrepareContext(ctx, `INSERT INTO tile_pixels (tile_id, pixel) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer pixel.Close()

	for _, t := range x.Tiles {
		if _, err := tile.ExecContext(ctx, t.ID); err != nil {
			return fmt.Errorf("insert tile %d: %w", t.ID, err)
		}
		for _, p := range t.Pixels {
			if _, err := pixel.ExecContext(ctx, t.ID, p); err != nil {
				return fmt.Errorf("insert tile %d pixel %d: %w", t.ID, p, err)
			}
		}
	}
	return tx.Commit()
}
