package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/stat/distuv"
)

const optimizeSteps = 1000

// Calibration gives the limiting magnitude reached by the telescope as a
// function of the integration time. Err is empty when the calibration has
// no error column.
type Calibration struct {
	Times  []float64
	LimMag []float64
	Err    []float64

	mag interp.AkimaSpline
	err interp.AkimaSpline
}

func LoadCalibration(file string) (*Calibration, error) {
	r, err := os.Open(file)
	if err != nil {
		return nil, checkError(err, nil)
	}
	defer r.Close()
	return ReadCalibration(r, file)
}

// ReadCalibration decodes a table of integration time (seconds), limiting
// magnitude and, optionally, its error.
func ReadCalibration(r io.Reader, file string) (*Calibration, error) {
	type row struct {
		t, m, e float64
	}
	var (
		rs   []row
		cols int
		s    = bufio.NewScanner(r)
	)
	for i := 0; s.Scan(); i++ {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fs := strings.Fields(line)
		if len(fs) < 2 || len(fs) > 3 {
			return nil, badUsage(fmt.Sprintf("%s: row %d: expected 2 or 3 columns, got %d", file, i+1, len(fs)))
		}
		if cols == 0 {
			cols = len(fs)
		} else if cols != len(fs) {
			return nil, badUsage(fmt.Sprintf("%s: row %d: inconsistent number of columns", file, i+1))
		}
		var (
			vs  [3]float64
			err error
		)
		for j, f := range fs {
			if vs[j], err = strconv.ParseFloat(f, 64); err != nil {
				return nil, floatBadSyntax(file, i, f)
			}
		}
		if vs[0] <= 0 {
			return nil, badUsage(fmt.Sprintf("%s: row %d: integration time should be positive", file, i+1))
		}
		rs = append(rs, row{t: vs[0], m: vs[1], e: vs[2]})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].t < rs[j].t })

	var c Calibration
	for _, r := range rs {
		c.Times = append(c.Times, r.t)
		c.LimMag = append(c.LimMag, r.m)
		if cols == 3 {
			c.Err = append(c.Err, r.e)
		}
	}
	return &c, c.fit()
}

func (c *Calibration) fit() error {
	if len(c.Times) < 2 {
		return badUsage("calibration needs at least two rows")
	}
	xs := make([]float64, len(c.Times))
	for i, t := range c.Times {
		if i > 0 && t == c.Times[i-1] {
			return badUsage(fmt.Sprintf("calibration: duplicate integration time %g", t))
		}
		xs[i] = math.Log(t)
	}
	if err := c.mag.Fit(xs, c.LimMag); err != nil {
		return fmt.Errorf("calibration: %w", err)
	}
	if len(c.Err) > 0 {
		if err := c.err.Fit(xs, c.Err); err != nil {
			return fmt.Errorf("calibration: %w", err)
		}
	}
	return nil
}

func (c *Calibration) HasError() bool {
	return len(c.Err) > 0
}

// LimitingMagnitude interpolates the calibration on the log of the
// integration time. Outside of the calibrated times the end segments are
// continued linearly.
func (c *Calibration) LimitingMagnitude(d time.Duration) float64 {
	return c.predict(&c.mag, c.LimMag, d)
}

func (c *Calibration) MagnitudeError(d time.Duration) float64 {
	if !c.HasError() {
		return 0
	}
	return c.predict(&c.err, c.Err, d)
}

func (c *Calibration) predict(s *interp.AkimaSpline, vs []float64, d time.Duration) float64 {
	var (
		n  = len(c.Times)
		x  = math.Log(d.Seconds())
		lo = math.Log(c.Times[0])
		hi = math.Log(c.Times[n-1])
	)
	switch {
	case x < lo:
		slope := (vs[1] - vs[0]) / (math.Log(c.Times[1]) - lo)
		return vs[0] + slope*(x-lo)
	case x > hi:
		slope := (vs[n-1] - vs[n-2]) / (hi - math.Log(c.Times[n-2]))
		return vs[n-1] + slope*(x-hi)
	default:
		return s.Predict(x)
	}
}

// ApparentMagnitude of a source of absolute magnitude abs at dist parsecs.
func ApparentMagnitude(abs, dist float64) float64 {
	return abs + 5*math.Log10(dist/10)
}

// Detectability returns, for every candidate integration time, the chance
// to detect a source located in the tile of the given rank (0 based) when
// the total time is spent observing tiles in rank order. Without an error
// column the result is 0 or 1.
func Detectability(rank int, times []time.Duration, total time.Duration, abs, dist float64, c *Calibration) []float64 {
	var (
		res      = make([]float64, len(times))
		apparent = ApparentMagnitude(abs, dist)
	)
	for i, t := range times {
		if t <= 0 || int(total/t) <= rank {
			continue
		}
		limmag := c.LimitingMagnitude(t)
		sigma := c.MagnitudeError(t)
		if sigma <= 0 {
			if limmag > apparent {
				res[i] = 1
			}
			continue
		}
		n := distuv.Normal{Mu: limmag, Sigma: sigma}
		res[i] = n.Survival(apparent)
	}
	return res
}

// OptimizeTimes searches the offset a in [lo, hi] for which the allocation
// of total with Offset(a) weights maximizes the probability weighted depth
// reached on a source of absolute magnitude abs.
func OptimizeTimes(total time.Duration, abs, lo, hi float64, probs []float64, c *Calibration) (float64, []time.Duration, error) {
	if hi < lo {
		return 0, nil, badUsage("optimize: empty offset range")
	}
	var (
		grid  = floats.Span(make([]float64, optimizeSteps), lo, hi)
		best  = math.Inf(-1)
		bestA float64
		times []time.Duration
	)
	for _, a := range grid {
		ds, err := Allocate(total, probs, Offset(a))
		if err != nil {
			continue
		}
		var kappa float64
		for i, d := range ds {
			depth := math.Pow(10, 1+(c.LimitingMagnitude(d)-abs)/5)
			kappa += depth * probs[i]
		}
		if kappa > best {
			best, bestA, times = kappa, a, ds
		}
	}
	if times == nil {
		return 0, nil, badUsage("optimize: no valid allocation in offset range")
	}
	return bestA, times, nil
}
