package main

import (
	"fmt"
	"io"
	"time"
)

func ListRanked(w io.Writer, rt RankedTiles, threshold float64) error {
	fmt.Fprintf(w, "%4s | %6s | %-10s | %-10s | %s", "#", "TILE", "PROB", "CUMUL", "?")
	fmt.Fprintln(w)
	var cumul float64
	for i, t := range rt {
		cumul += t.Probability
		flag := "-"
		if t.Probability > threshold {
			flag = "*"
		}
		fmt.Fprintf(w, "%4d | %6d | %-10.6f | %-10.6f | %s", i+1, t.ID, t.Probability, cumul, flag)
		fmt.Fprintln(w)
	}
	return nil
}

func ListNights(w io.Writer, ps []Period, zone *time.Location) error {
	for i, p := range ps {
		fmt.Fprintf(w, "%3d | %-8s | %s | %s | %s | %s", i, p.Label, p.Starts.Format(timeFormat), p.Ends.Format(timeFormat), p.Starts.In(zone).Format(timeFormat), p.Duration())
		fmt.Fprintln(w)
	}
	return nil
}

func ListSites(w io.Writer, ss []Site) error {
	fmt.Fprintf(w, "%3s | %-12s | %9s | %10s | %6s | %5s", "#", "SITE", "LAT", "LON", "ELEV", "UTC")
	fmt.Fprintln(w)
	for i, s := range ss {
		fmt.Fprintf(w, "%3d | %-12s | %9.4f | %10.4f | %6.0f | %+5.1f", i+1, s.Name, s.Latitude, s.Longitude, s.Elevation, s.UTCOffset)
		fmt.Fprintln(w)
	}
	return nil
}

func ListAllocation(w io.Writer, rt RankedTiles, ds []time.Duration) error {
	fmt.Fprintf(w, "%4s | %6s | %-10s | %-8s | %-10s", "#", "TILE", "PROB", "TIME", "TOTAL")
	fmt.Fprintln(w)
	var total time.Duration
	for i, d := range ds {
		total += d
		fmt.Fprintf(w, "%4d | %6d | %-10.6f | %-8s | %-10s", i+1, rt[i].ID, rt[i].Probability, d.Round(time.Second), total.Round(time.Second))
		fmt.Fprintln(w)
	}
	return nil
}

func ListDetectability(w io.Writer, ds []time.Duration, ps []float64, c *Calibration) error {
	fmt.Fprintf(w, "%3s | %-8s | %-7s | %-8s", "#", "TIME", "LIMMAG", "DETECT")
	fmt.Fprintln(w)
	for i, d := range ds {
		fmt.Fprintf(w, "%3d | %-8s | %-7.3f | %-8.4f", i+1, d, c.LimitingMagnitude(d), ps[i])
		fmt.Fprintln(w)
	}
	return nil
}
