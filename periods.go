package main

import (
	"time"
)

// Period is a labelled time range, Ends excluded.
type Period struct {
	Label  string    `json:"label" yaml:"label"`
	Starts time.Time `json:"starts" yaml:"starts"`
	Ends   time.Time `json:"ends" yaml:"ends"`
}

func (p Period) Duration() time.Duration {
	return p.Ends.Sub(p.Starts)
}

func (p Period) IsZero() bool {
	return p.Starts.IsZero() && p.Ends.IsZero()
}
