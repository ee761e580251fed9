package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"gonum.org/v1/gonum/floats"
)

// SkyMap is a RING ordered HEALPix probability map. It is never modified
// once loaded; Rebin derives new maps.
type SkyMap struct {
	nside int
	prob  []float64
}

func NewSkyMap(prob []float64) (*SkyMap, error) {
	nside, err := npix2nside(len(prob))
	if err != nil {
		return nil, err
	}
	return &SkyMap{nside: nside, prob: prob}, nil
}

func (m *SkyMap) Nside() int {
	return m.nside
}

func (m *SkyMap) Len() int {
	return len(m.prob)
}

func (m *SkyMap) At(pix int) float64 {
	return m.prob[pix]
}

func (m *SkyMap) Sum() float64 {
	return floats.Sum(m.prob)
}

func LoadSkyMap(file string) (*SkyMap, error) {
	r, err := os.Open(file)
	if err != nil {
		return nil, mapLoadErr(file, err)
	}
	defer r.Close()

	m, err := ReadSkyMap(r)
	if err != nil {
		return nil, mapLoadErr(file, err)
	}
	return m, nil
}

// ReadSkyMap decodes a HEALPix FITS map, gzip compressed or not. NESTED
// maps are reordered to RING.
func ReadSkyMap(r io.Reader) (*SkyMap, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		z, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer z.Close()
		br = bufio.NewReader(z)
	}
	t, err := readHealpixTable(br)
	if err != nil {
		return nil, err
	}
	if s := t.header.String("INDXSCHM"); strings.EqualFold(s, "EXPLICIT") {
		return nil, fmt.Errorf("partial sky maps (INDXSCHM=%s) are not supported", s)
	}
	vs, err := t.readFloats(br, t.column("PROB"))
	if err != nil {
		return nil, err
	}
	for i, v := range vs {
		if math.IsNaN(v) || v < 0 {
			return nil, fmt.Errorf("pixel %d: invalid probability %g", i, v)
		}
	}
	nside, err := npix2nside(len(vs))
	if err != nil {
		return nil, err
	}
	if n, ok := t.header.Int("NSIDE"); ok && n != nside {
		return nil, fmt.Errorf("NSIDE=%d does not match %d pixels", n, len(vs))
	}
	m := SkyMap{nside: nside, prob: vs}
	if strings.EqualFold(t.header.String("ORDERING"), "NESTED") {
		m.prob = reorder(nside, vs, nest2ring)
	}
	return &m, nil
}

func WriteSkyMap(file string, m *SkyMap) error {
	w, err := os.Create(file)
	if err != nil {
		return checkError(err, nil)
	}
	defer w.Close()

	if !strings.HasSuffix(file, ".gz") {
		return writeHealpixTable(w, m.nside, m.prob)
	}
	z := gzip.NewWriter(w)
	if err := writeHealpixTable(z, m.nside, m.prob); err != nil {
		return err
	}
	return z.Close()
}

// reorder moves every value of vs to the index given by fn.
func reorder(nside int, vs []float64, fn func(int, int) int) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[fn(nside, i)] = v
	}
	return out
}

// Rebin returns a copy of m at resolution nside. Probability is summed into
// parent pixels when degrading and split evenly between children when
// upgrading, so the total mass is unchanged.
func Rebin(m *SkyMap, nside int) (*SkyMap, error) {
	if !isPowerOfTwo(nside) {
		return nil, unsupportedResolution(nside)
	}
	if nside == m.nside {
		return m, nil
	}
	var (
		nest = reorder(m.nside, m.prob, ring2nest)
		out  = make([]float64, nside2npix(nside))
	)
	if nside < m.nside {
		shift := 2 * (nsideOrder(m.nside) - nsideOrder(nside))
		for i, v := range nest {
			out[i>>shift] += v
		}
	} else {
		var (
			shift = 2 * (nsideOrder(nside) - nsideOrder(m.nside))
			ratio = float64(int(1) << shift)
		)
		for i := range out {
			out[i] = nest[i>>shift] / ratio
		}
	}
	return &SkyMap{nside: nside, prob: reorder(nside, out, nest2ring)}, nil
}
