package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSkyMap(t *testing.T, nside int) *SkyMap {
	t.Helper()
	var (
		npix = nside2npix(nside)
		vs   = make([]float64, npix)
		sum  float64
	)
	for i := range vs {
		vs[i] = float64(i%7 + 1)
		sum += vs[i]
	}
	for i := range vs {
		vs[i] /= sum
	}
	m, err := NewSkyMap(vs)
	require.NoError(t, err)
	return m
}

func uniformSkyMap(t *testing.T, nside int) *SkyMap {
	t.Helper()
	npix := nside2npix(nside)
	vs := make([]float64, npix)
	for i := range vs {
		vs[i] = 1 / float64(npix)
	}
	m, err := NewSkyMap(vs)
	require.NoError(t, err)
	return m
}

func TestNewSkyMap(t *testing.T) {
	_, err := NewSkyMap(make([]float64, 100))
	assert.Error(t, err)

	m, err := NewSkyMap(make([]float64, 768))
	require.NoError(t, err)
	assert.Equal(t, 8, m.Nside())
	assert.Equal(t, 768, m.Len())
}

func TestRebinConservesMass(t *testing.T) {
	m := testSkyMap(t, 16)
	for _, nside := range []int{1, 4, 8, 32, 64} {
		um, err := Rebin(m, nside)
		require.NoError(t, err)
		assert.Equal(t, nside, um.Nside())
		assert.Equal(t, nside2npix(nside), um.Len())
		assert.InDelta(t, m.Sum(), um.Sum(), 1e-9, "nside %d", nside)
	}
}

func TestRebinSameResolution(t *testing.T) {
	m := testSkyMap(t, 8)
	um, err := Rebin(m, 8)
	require.NoError(t, err)
	assert.Same(t, m, um)
}

func TestRebinUniform(t *testing.T) {
	m := uniformSkyMap(t, 8)
	down, err := Rebin(m, 2)
	require.NoError(t, err)
	for i := 0; i < down.Len(); i++ {
		assert.InDelta(t, 1/float64(down.Len()), down.At(i), 1e-12)
	}
	up, err := Rebin(down, 16)
	require.NoError(t, err)
	for i := 0; i < up.Len(); i++ {
		assert.InDelta(t, 1/float64(up.Len()), up.At(i), 1e-12)
	}
}

func TestRebinUpThenDown(t *testing.T) {
	m := testSkyMap(t, 4)
	up, err := Rebin(m, 16)
	require.NoError(t, err)
	back, err := Rebin(up, 4)
	require.NoError(t, err)
	for i := 0; i < m.Len(); i++ {
		assert.InDelta(t, m.At(i), back.At(i), 1e-12, "pixel %d", i)
	}
}

func TestRebinInvalidResolution(t *testing.T) {
	_, err := Rebin(testSkyMap(t, 4), 3)
	assert.True(t, errors.Is(err, ErrUnsupportedResolution))
}

func TestReorderRoundTrip(t *testing.T) {
	m := testSkyMap(t, 4)
	nest := reorder(4, m.prob, ring2nest)
	assert.Equal(t, m.prob, reorder(4, nest, nest2ring))
}

func TestReadSkyMap(t *testing.T) {
	m := testSkyMap(t, 4)

	var buf bytes.Buffer
	require.NoError(t, writeHealpixTable(&buf, m.Nside(), m.prob))
	assert.Zero(t, buf.Len()%fitsBlock)

	got, err := ReadSkyMap(&buf)
	require.NoError(t, err)
	assert.Equal(t, m.Nside(), got.Nside())
	assert.Equal(t, m.prob, got.prob)
}

func TestWriteSkyMapCompressed(t *testing.T) {
	var (
		m    = testSkyMap(t, 8)
		dir  = t.TempDir()
		file = filepath.Join(dir, "skymap.fits.gz")
	)
	require.NoError(t, WriteSkyMap(file, m))

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x1f, 0x8b}, raw[:2])

	got, err := LoadSkyMap(file)
	require.NoError(t, err)
	assert.Equal(t, m.prob, got.prob)
}

func TestLoadSkyMapErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadSkyMap(filepath.Join(dir, "missing.fits"))
	assert.True(t, errors.Is(err, ErrMapLoad))

	garbage := filepath.Join(dir, "garbage.fits")
	require.NoError(t, os.WriteFile(garbage, []byte("not a fits file"), 0o644))
	_, err = LoadSkyMap(garbage)
	assert.True(t, errors.Is(err, ErrMapLoad))

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, MapLoadErrCode, e.Code)
}

func TestReadSkyMapNegative(t *testing.T) {
	vs := make([]float64, 12)
	vs[3] = -1
	var buf bytes.Buffer
	require.NoError(t, writeHealpixTable(&buf, 1, vs))
	_, err := ReadSkyMap(&buf)
	assert.Error(t, err)
}
