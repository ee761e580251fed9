package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	data := []struct {
		Err      error
		Sentinel error
		Code     int
	}{
		{Err: mapLoadErr("map.fits", syscall.ENOENT), Sentinel: ErrMapLoad, Code: MapLoadErrCode},
		{Err: catalogMissing("index.dat", syscall.ENOENT), Sentinel: ErrCatalogMissing, Code: CatalogMissingErrCode},
		{Err: tileFileMissing("tiles.txt", syscall.ENOENT), Sentinel: ErrTileFileMissing, Code: TileFileMissingErrCode},
		{Err: unsupportedResolution(100), Sentinel: ErrUnsupportedResolution, Code: UnsupportedResolutionErrCode},
		{Err: sunsetNotFound(testTrigger, Day), Sentinel: ErrSunsetNotFound, Code: SunsetNotFoundErrCode},
		{Err: unknownSite("atlantis"), Sentinel: ErrUnknownSite, Code: UnknownSiteErrCode},
	}
	for _, d := range data {
		assert.True(t, errors.Is(d.Err, d.Sentinel), d.Err.Error())

		var e *Error
		require.True(t, errors.As(d.Err, &e))
		assert.Equal(t, d.Code, e.Code)
	}
	assert.True(t, errors.Is(mapLoadErr("map.fits", syscall.ENOENT), syscall.ENOENT))
}

func TestCheckError(t *testing.T) {
	assert.NoError(t, checkError(nil, nil))

	var e *Error

	pe := &os.PathError{Op: "open", Path: "missing.fits", Err: syscall.ENOENT}
	err := checkError(pe, nil)
	require.True(t, errors.As(err, &e))
	assert.Equal(t, int(syscall.ENOENT), e.Code)
	assert.Contains(t, err.Error(), "missing.fits")

	_, ne := strconv.Atoi("x")
	err = checkError(ne, nil)
	require.True(t, errors.As(err, &e))
	assert.Equal(t, EINVAL, e.Code)

	wrapped := badUsage("bad")
	assert.Same(t, wrapped, checkError(wrapped, nil))

	plain := fmt.Errorf("plain")
	assert.Equal(t, plain, checkError(plain, nil))
}
