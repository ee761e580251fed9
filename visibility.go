package main

import (
	"time"
)

const (
	NightAltitude = -18.0
	MinAltitude   = 20.0
	sunsetWindow  = 24 * time.Hour
)

// IsNight reports whether the sun is below astronomical twilight.
func IsNight(sunAlt float64) bool {
	return sunAlt < NightAltitude
}

// IsTileUp reports whether a tile is high enough to be observed.
func IsTileUp(alt float64) bool {
	return alt > MinAltitude
}

// Positions holds the horizontal positions of the sun and of a set of
// coordinates at one instant.
type Positions struct {
	Sun   Horizontal
	Tiles []Horizontal
}

type SunMoon struct {
	Sun          Coord
	Moon         Coord
	Illumination float64
}

// Sky answers the visibility queries of the scheduler.
type Sky interface {
	Positions(time.Time, []Coord) Positions
	SunMoon(time.Time) SunMoon
}

// Visibility computes positions for an observatory.
type Visibility struct {
	Site Site
}

func NewVisibility(s Site) *Visibility {
	return &Visibility{Site: s}
}

func (v *Visibility) Positions(t time.Time, cs []Coord) Positions {
	var (
		gmst = GMST(t)
		sun  = SunPosition(t)
		ps   = Positions{
			Sun:   ToHorizontal(sun.Coord, v.Site.Latitude, v.Site.Longitude, gmst),
			Tiles: make([]Horizontal, len(cs)),
		}
	)
	for i, c := range cs {
		ps.Tiles[i] = ToHorizontal(c, v.Site.Latitude, v.Site.Longitude, gmst)
	}
	return ps
}

func (v *Visibility) SunMoon(t time.Time) SunMoon {
	sun, moon := SunPosition(t), MoonPosition(t)
	return SunMoon{
		Sun:          sun.Coord,
		Moon:         moon.Coord,
		Illumination: Illumination(sun, moon),
	}
}

func sunAltitude(sky Sky, t time.Time) float64 {
	return sky.Positions(t, nil).Sun.Alt
}

// AdvanceToSunset scans forward from from in steps of step over one day and
// returns the instant one step before the first dark sample.
func AdvanceToSunset(sky Sky, from time.Time, step time.Duration) (time.Time, error) {
	if step <= 0 {
		return time.Time{}, badUsage("sunset scan: step should be positive")
	}
	n := int((sunsetWindow + step + step - 1) / step)
	for i := 0; i < n; i++ {
		t := from.Add(time.Duration(i) * step)
		if IsNight(sunAltitude(sky, t)) {
			return t.Add(-step), nil
		}
	}
	return time.Time{}, sunsetNotFound(from, sunsetWindow+step)
}

// SetTime returns the first sampled instant after from at which c is no
// longer observable. The zero time is returned when c stays up within.
func SetTime(sky Sky, c Coord, from time.Time, within, step time.Duration) (time.Time, error) {
	if step <= 0 {
		return time.Time{}, badUsage("set time scan: step should be positive")
	}
	cs := []Coord{c}
	for d := time.Duration(0); d <= within; d += step {
		t := from.Add(d)
		if !IsTileUp(sky.Positions(t, cs).Tiles[0].Alt) {
			return t, nil
		}
	}
	return time.Time{}, nil
}

// Nights returns the dark periods between from and until, sampled every step.
func Nights(sky Sky, from, until time.Time, step time.Duration) ([]Period, error) {
	if step <= 0 {
		return nil, badUsage("night scan: step should be positive")
	}
	var (
		ps []Period
		p  Period
	)
	for t := from; !t.After(until); t = t.Add(step) {
		dark := IsNight(sunAltitude(sky, t))
		switch {
		case dark && p.IsZero():
			p.Label, p.Starts = "night", t
		case !dark && !p.IsZero():
			p.Ends = t
			ps = append(ps, p)
			p = Period{}
		}
	}
	if !p.IsZero() {
		p.Ends = until
		ps = append(ps, p)
	}
	return ps, nil
}
