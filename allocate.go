package main

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

const (
	MinIntegration = 60 * time.Second
	MaxIntegration = 1200 * time.Second
)

// Weight transforms a tile probability before the observation time is
// split among tiles. It should be monotonic.
type Weight func(float64) float64

func Identity(p float64) float64 {
	return p
}

func Power(exp float64) Weight {
	return func(p float64) float64 {
		return math.Pow(p, exp)
	}
}

// Offset weights every tile by p+a, flattening the allocation as a grows.
func Offset(a float64) Weight {
	return func(p float64) float64 {
		return p + a
	}
}

// ParseWeight returns the policy for identity, power:<p> or offset:<a>.
func ParseWeight(str string, arg float64) (Weight, error) {
	switch str {
	case "", "identity", "linear":
		return Identity, nil
	case "power", "pow":
		return Power(arg), nil
	case "offset":
		return Offset(arg), nil
	default:
		return nil, badUsage("unknown weight policy: " + str)
	}
}

// Allocate splits total among the tiles proportionally to their weight,
// clamps every share to [MinIntegration, MaxIntegration] and keeps the
// longest prefix that fits in total.
func Allocate(total time.Duration, probs []float64, w Weight) ([]time.Duration, error) {
	if len(probs) == 0 {
		return nil, badUsage("allocate: no probabilities given")
	}
	if total <= 0 {
		return nil, badUsage("allocate: total time should be positive")
	}
	if w == nil {
		w = Identity
	}
	ws := make([]float64, len(probs))
	for i, p := range probs {
		ws[i] = w(p)
	}
	sum := floats.Sum(ws)
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, badUsage("allocate: weights should sum to a positive value")
	}
	floats.Scale(total.Seconds()/sum, ws)

	var (
		ds   []time.Duration
		used time.Duration
	)
	for _, v := range ws {
		d := time.Duration(v * float64(time.Second))
		d = min(max(d, MinIntegration), MaxIntegration)
		if used+d > total {
			break
		}
		used += d
		ds = append(ds, d)
	}
	return ds, nil
}
