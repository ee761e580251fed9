package main

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const (
	fitsBlock  = 2880
	fitsRecord = 80
)

type fitsHeader struct {
	cards map[string]string
}

func (h *fitsHeader) String(key string) string {
	return h.cards[strings.ToUpper(key)]
}

func (h *fitsHeader) Int(key string) (int, bool) {
	v, ok := h.cards[strings.ToUpper(key)]
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return i, true
}

// dataSize returns the size of the data unit following h, padding included.
func (h *fitsHeader) dataSize() int64 {
	naxis, _ := h.Int("NAXIS")
	if naxis == 0 {
		return 0
	}
	bitpix, _ := h.Int("BITPIX")
	size := int64(1)
	for i := 1; i <= naxis; i++ {
		n, _ := h.Int(fmt.Sprintf("NAXIS%d", i))
		size *= int64(n)
	}
	pcount, _ := h.Int("PCOUNT")
	gcount, ok := h.Int("GCOUNT")
	if !ok {
		gcount = 1
	}
	if bitpix < 0 {
		bitpix = -bitpix
	}
	size = int64(bitpix/8) * int64(gcount) * (int64(pcount) + size)
	if rest := size % fitsBlock; rest != 0 {
		size += fitsBlock - rest
	}
	return size
}

func readFitsHeader(r io.Reader) (*fitsHeader, error) {
	var (
		h   = fitsHeader{cards: make(map[string]string)}
		buf = make([]byte, fitsBlock)
	)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("reading FITS header block: %w", err)
		}
		for i := 0; i < fitsBlock; i += fitsRecord {
			record := string(buf[i : i+fitsRecord])
			keyword := strings.TrimSpace(record[:8])
			if keyword == "END" {
				return &h, nil
			}
			if record[8] != '=' || record[9] != ' ' {
				continue
			}
			raw := strings.TrimSpace(splitComment(record[10:]))
			if v := parseFitsValue(raw); keyword != "" && v != "" {
				h.cards[strings.ToUpper(keyword)] = v
			}
		}
	}
}

// splitComment drops the trailing comment of a card value, ignoring slashes
// inside quoted strings.
func splitComment(v string) string {
	quoted := false
	for i, c := range v {
		switch c {
		case '\'':
			quoted = !quoted
		case '/':
			if !quoted {
				return v[:i]
			}
		}
	}
	return v
}

func parseFitsValue(raw string) string {
	switch {
	case raw == "":
		return ""
	case raw == "T":
		return "True"
	case raw == "F":
		return "False"
	case strings.HasPrefix(raw, "'"):
		if end := strings.LastIndex(raw, "'"); end > 0 {
			return strings.TrimRight(raw[1:end], " ")
		}
		return strings.TrimLeft(strings.TrimRight(raw, " "), "'")
	default:
		return raw
	}
}

type fitsColumn struct {
	Name   string
	Code   byte
	Repeat int
	Offset int
}

func (c fitsColumn) width() int {
	switch c.Code {
	case 'L', 'B', 'A':
		return c.Repeat
	case 'X':
		return (c.Repeat + 7) / 8
	case 'I':
		return 2 * c.Repeat
	case 'J', 'E':
		return 4 * c.Repeat
	case 'K', 'D', 'C':
		return 8 * c.Repeat
	case 'M':
		return 16 * c.Repeat
	case 'P':
		return 8
	case 'Q':
		return 16
	default:
		return 0
	}
}

func parseColumnFormat(name, form string) (fitsColumn, error) {
	form = strings.TrimSpace(form)
	i := 0
	for i < len(form) && form[i] >= '0' && form[i] <= '9' {
		i++
	}
	if i == len(form) {
		return fitsColumn{}, fmt.Errorf("column %s: invalid format %q", name, form)
	}
	repeat := 1
	if i > 0 {
		n, err := strconv.Atoi(form[:i])
		if err != nil {
			return fitsColumn{}, fmt.Errorf("column %s: invalid format %q", name, form)
		}
		repeat = n
	}
	return fitsColumn{Name: name, Code: form[i], Repeat: repeat}, nil
}

var errNoTable = errors.New("no BINTABLE extension found")

type fitsTable struct {
	header  *fitsHeader
	columns []fitsColumn
	rowSize int
	rows    int
}

// readHealpixTable skips the primary HDU and any extension that is not a
// binary table and returns the layout of the first BINTABLE. r is left at
// the start of the table data.
func readHealpixTable(r io.Reader) (*fitsTable, error) {
	h, err := readFitsHeader(r)
	if err != nil {
		return nil, err
	}
	if h.String("SIMPLE") != "True" {
		return nil, fmt.Errorf("not a FITS file")
	}
	for {
		if _, err := io.CopyN(io.Discard, r, h.dataSize()); err != nil {
			return nil, fmt.Errorf("skipping FITS data unit: %w", err)
		}
		if h, err = readFitsHeader(r); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errNoTable
			}
			return nil, err
		}
		if h.String("XTENSION") == "BINTABLE" {
			break
		}
	}
	t := fitsTable{header: h}
	t.rowSize, _ = h.Int("NAXIS1")
	t.rows, _ = h.Int("NAXIS2")
	fields, _ := h.Int("TFIELDS")
	if t.rowSize <= 0 || t.rows <= 0 || fields <= 0 {
		return nil, fmt.Errorf("invalid BINTABLE: NAXIS1=%d, NAXIS2=%d, TFIELDS=%d", t.rowSize, t.rows, fields)
	}
	var offset int
	for i := 1; i <= fields; i++ {
		c, err := parseColumnFormat(h.String(fmt.Sprintf("TTYPE%d", i)), h.String(fmt.Sprintf("TFORM%d", i)))
		if err != nil {
			return nil, err
		}
		c.Offset = offset
		offset += c.width()
		t.columns = append(t.columns, c)
	}
	if offset > t.rowSize {
		return nil, fmt.Errorf("invalid BINTABLE: columns need %d bytes, rows have %d", offset, t.rowSize)
	}
	return &t, nil
}

func (t *fitsTable) column(name string) fitsColumn {
	for _, c := range t.columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return t.columns[0]
}

// readFloats decodes every element of column c, row after row.
func (t *fitsTable) readFloats(r io.Reader, c fitsColumn) ([]float64, error) {
	if c.Code != 'E' && c.Code != 'D' {
		return nil, fmt.Errorf("column %s: unsupported type %c", c.Name, c.Code)
	}
	var (
		vs  = make([]float64, 0, t.rows*c.Repeat)
		row = make([]byte, t.rowSize)
	)
	for i := 0; i < t.rows; i++ {
		if _, err := io.ReadFull(r, row); err != nil {
			return nil, fmt.Errorf("reading row %d: %w", i+1, err)
		}
		cell := row[c.Offset:]
		for j := 0; j < c.Repeat; j++ {
			switch c.Code {
			case 'E':
				vs = append(vs, float64(math.Float32frombits(binary.BigEndian.Uint32(cell[j*4:]))))
			case 'D':
				vs = append(vs, math.Float64frombits(binary.BigEndian.Uint64(cell[j*8:])))
			}
		}
	}
	return vs, nil
}

type fitsCard struct {
	Key   string
	Value interface{}
}

func formatCard(c fitsCard) string {
	var v string
	switch x := c.Value.(type) {
	case nil:
		return fmt.Sprintf("%-80s", c.Key)
	case bool:
		v = "F"
		if x {
			v = "T"
		}
		v = fmt.Sprintf("%20s", v)
	case int:
		v = fmt.Sprintf("%20d", x)
	case string:
		v = fmt.Sprintf("'%-8s'", strings.ReplaceAll(x, "'", "''"))
	}
	return fmt.Sprintf("%-8s= %-70s", c.Key, v)
}

func writeFitsHeader(w io.Writer, cs []fitsCard) error {
	var b strings.Builder
	for _, c := range cs {
		b.WriteString(formatCard(c))
	}
	b.WriteString(fmt.Sprintf("%-80s", "END"))
	if rest := b.Len() % fitsBlock; rest != 0 {
		b.WriteString(strings.Repeat(" ", fitsBlock-rest))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// writeHealpixTable encodes vs as a single PROB column of a RING ordered
// HEALPix binary table.
func writeHealpixTable(w io.Writer, nside int, vs []float64) error {
	bw := bufio.NewWriter(w)
	primary := []fitsCard{
		{Key: "SIMPLE", Value: true},
		{Key: "BITPIX", Value: 8},
		{Key: "NAXIS", Value: 0},
		{Key: "EXTEND", Value: true},
	}
	if err := writeFitsHeader(bw, primary); err != nil {
		return err
	}
	table := []fitsCard{
		{Key: "XTENSION", Value: "BINTABLE"},
		{Key: "BITPIX", Value: 8},
		{Key: "NAXIS", Value: 2},
		{Key: "NAXIS1", Value: 8},
		{Key: "NAXIS2", Value: len(vs)},
		{Key: "PCOUNT", Value: 0},
		{Key: "GCOUNT", Value: 1},
		{Key: "TFIELDS", Value: 1},
		{Key: "TTYPE1", Value: "PROB"},
		{Key: "TFORM1", Value: "D"},
		{Key: "TUNIT1", Value: "pix-1"},
		{Key: "PIXTYPE", Value: "HEALPIX"},
		{Key: "ORDERING", Value: "RING"},
		{Key: "NSIDE", Value: nside},
		{Key: "INDXSCHM", Value: "IMPLICIT"},
		{Key: "FIRSTPIX", Value: 0},
		{Key: "LASTPIX", Value: len(vs) - 1},
	}
	if err := writeFitsHeader(bw, table); err != nil {
		return err
	}
	buf := make([]byte, 8)
	for _, v := range vs {
		binary.BigEndian.PutUint64(buf, math.Float64bits(v))
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	if rest := (len(vs) * 8) % fitsBlock; rest != 0 {
		if _, err := bw.Write(make([]byte, fitsBlock-rest)); err != nil {
			return err
		}
	}
	return bw.Flush()
}
