package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"syscall"
)

const EINVAL = 22

const (
	GenericErrCode = 5000 + iota
	MapLoadErrCode
	CatalogMissingErrCode
	TileFileMissingErrCode
	UnsupportedResolutionErrCode
	SunsetNotFoundErrCode
	UnknownSiteErrCode
)

var (
	ErrMapLoad               = errors.New("sky map can not be loaded")
	ErrCatalogMissing        = errors.New("tile index not available")
	ErrTileFileMissing       = errors.New("tile catalog not available")
	ErrUnsupportedResolution = errors.New("unsupported resolution")
	ErrSunsetNotFound        = errors.New("no sunset found")
	ErrUnknownSite           = errors.New("unknown site")
)

type Error struct {
	Cause error
	Code  int
}

func (e *Error) Error() string {
	return e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Exit(e error) {
	if e == nil {
		return
	}
	fmt.Fprintln(os.Stderr, e)
	var err *Error
	if errors.As(e, &err) {
		os.Exit(err.Code)
	}
	os.Exit(GenericErrCode)
}

func checkError(err, parent error) error {
	if err == nil {
		return nil
	}
	switch e := err.(type) {
	case *Error:
		return e
	case *strconv.NumError:
		return badUsage(e.Error())
	case *os.PathError:
		return checkError(e.Err, err)
	case syscall.Errno:
		if parent != nil {
			err = parent
		}
		return &Error{Cause: err, Code: int(e)}
	default:
		return err
	}
}

func badUsage(n string) error {
	e := Error{
		Cause: errors.New(n),
		Code:  EINVAL,
	}
	return &e
}

func floatBadSyntax(file string, i int, v string) error {
	e := Error{
		Cause: fmt.Errorf("%s: number badly formatted at row %d (%s)", file, i+1, v),
		Code:  EINVAL,
	}
	return &e
}

func timeBadSyntax(v string) error {
	e := Error{
		Cause: fmt.Errorf("time badly formatted (%s)", v),
		Code:  EINVAL,
	}
	return &e
}

func mapLoadErr(file string, err error) error {
	e := Error{
		Cause: fmt.Errorf("%w: %s: %w", ErrMapLoad, file, err),
		Code:  MapLoadErrCode,
	}
	return &e
}

func catalogMissing(file string, err error) error {
	e := Error{
		Cause: fmt.Errorf("%w: %s: %w", ErrCatalogMissing, file, err),
		Code:  CatalogMissingErrCode,
	}
	return &e
}

func tileFileMissing(file string, err error) error {
	e := Error{
		Cause: fmt.Errorf("%w: %s: %w", ErrTileFileMissing, file, err),
		Code:  TileFileMissingErrCode,
	}
	return &e
}

func unsupportedResolution(r int) error {
	e := Error{
		Cause: fmt.Errorf("%w: %d (supported: %d-%d, powers of two)", ErrUnsupportedResolution, r, MinResolution, MaxResolution),
		Code:  UnsupportedResolutionErrCode,
	}
	return &e
}

func sunsetNotFound(from fmt.Stringer, window fmt.Stringer) error {
	e := Error{
		Cause: fmt.Errorf("%w: scanned %s from %s", ErrSunsetNotFound, window, from),
		Code:  SunsetNotFoundErrCode,
	}
	return &e
}

func unknownSite(n string) error {
	e := Error{
		Cause: fmt.Errorf("%w: %q", ErrUnknownSite, n),
		Code:  UnknownSiteErrCode,
	}
	return &e
}

func genericErr(n string) error {
	e := Error{
		Cause: errors.New(n),
		Code:  GenericErrCode,
	}
	return &e
}
