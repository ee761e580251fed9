package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSky answers visibility queries from closures.
type stubSky struct {
	sun  func(time.Time) float64
	tile func(time.Time, Coord) float64
}

func (s stubSky) Positions(t time.Time, cs []Coord) Positions {
	ps := Positions{
		Sun:   Horizontal{Alt: s.sun(t)},
		Tiles: make([]Horizontal, len(cs)),
	}
	for i, c := range cs {
		alt := 45.0
		if s.tile != nil {
			alt = s.tile(t, c)
		}
		ps.Tiles[i] = Horizontal{Alt: alt}
	}
	return ps
}

func (s stubSky) SunMoon(time.Time) SunMoon {
	return SunMoon{
		Sun:          Coord{RA: 10, Dec: -5},
		Moon:         Coord{RA: 190, Dec: 5},
		Illumination: 0.9,
	}
}

func darkAfter(at time.Time) func(time.Time) float64 {
	return func(t time.Time) float64 {
		if t.Before(at) {
			return 10
		}
		return -30
	}
}

func alwaysDark(time.Time) float64 {
	return -30
}

var testTrigger = time.Date(2024, 3, 20, 18, 0, 0, 0, time.UTC)

func TestIsNight(t *testing.T) {
	assert.False(t, IsNight(-18))
	assert.True(t, IsNight(-18.1))
	assert.False(t, IsNight(0))
}

func TestIsTileUp(t *testing.T) {
	assert.False(t, IsTileUp(20))
	assert.True(t, IsTileUp(20.1))
	assert.False(t, IsTileUp(-5))
}

func TestAdvanceToSunset(t *testing.T) {
	sky := stubSky{sun: darkAfter(testTrigger.Add(3 * time.Hour))}
	got, err := AdvanceToSunset(sky, testTrigger, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, testTrigger.Add(2*time.Hour+50*time.Minute), got)

	_, err = AdvanceToSunset(sky, testTrigger, 0)
	assert.Error(t, err)
}

func TestAdvanceToSunsetNotFound(t *testing.T) {
	sky := stubSky{sun: func(time.Time) float64 { return 5 }}
	_, err := AdvanceToSunset(sky, testTrigger, 10*time.Minute)
	assert.True(t, errors.Is(err, ErrSunsetNotFound))

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, SunsetNotFoundErrCode, e.Code)
}

func TestAdvanceToSunsetPolarDay(t *testing.T) {
	site := Site{Name: "svalbard", Latitude: 78.2, Longitude: 15.6}
	_, err := AdvanceToSunset(NewVisibility(site), time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC), 10*time.Minute)
	assert.True(t, errors.Is(err, ErrSunsetNotFound))
}

func TestAdvanceToSunsetPalomar(t *testing.T) {
	var (
		site, _ = LookupSite("palomar")
		vis     = NewVisibility(site)
		step    = 5 * time.Minute
	)
	got, err := AdvanceToSunset(vis, testTrigger, step)
	require.NoError(t, err)
	assert.True(t, got.After(testTrigger))
	assert.True(t, got.Before(testTrigger.Add(Day)))
	assert.False(t, IsNight(sunAltitude(vis, got)))
	assert.True(t, IsNight(sunAltitude(vis, got.Add(step))))
}

func TestNights(t *testing.T) {
	var (
		site, _ = LookupSite("palomar")
		vis     = NewVisibility(site)
		step    = 10 * time.Minute
	)
	ps, err := Nights(vis, testTrigger, testTrigger.Add(2*Day), step)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	for _, p := range ps {
		assert.Equal(t, "night", p.Label)
		assert.True(t, p.Duration() > 7*time.Hour && p.Duration() < 11*time.Hour, "duration %s", p.Duration())
		assert.True(t, IsNight(sunAltitude(vis, p.Starts)))
		assert.True(t, IsNight(sunAltitude(vis, p.Starts.Add(p.Duration()/2))))
		assert.False(t, IsNight(sunAltitude(vis, p.Ends)))
	}
	assert.True(t, ps[0].Ends.Before(ps[1].Starts))

	_, err = Nights(vis, testTrigger, testTrigger.Add(Day), 0)
	assert.Error(t, err)
}

func TestNightsOpenEnded(t *testing.T) {
	sky := stubSky{sun: darkAfter(testTrigger.Add(time.Hour))}
	ps, err := Nights(sky, testTrigger, testTrigger.Add(4*time.Hour), 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, testTrigger.Add(time.Hour), ps[0].Starts)
	assert.Equal(t, testTrigger.Add(4*time.Hour), ps[0].Ends)
}

func TestSetTime(t *testing.T) {
	setting := testTrigger.Add(45 * time.Minute)
	sky := stubSky{
		sun: alwaysDark,
		tile: func(t time.Time, _ Coord) float64 {
			if t.Before(setting) {
				return 40
			}
			return 10
		},
	}
	got, err := SetTime(sky, Coord{}, testTrigger, 2*time.Hour, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, testTrigger.Add(50*time.Minute), got)

	got, err = SetTime(sky, Coord{}, testTrigger, 30*time.Minute, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	for _, step := range []time.Duration{0, -time.Minute} {
		_, err = SetTime(sky, Coord{}, testTrigger, time.Hour, step)
		assert.Error(t, err, "step %s", step)
	}
}

func TestSunMoon(t *testing.T) {
	site, err := LookupSite("keck")
	require.NoError(t, err)
	sm := NewVisibility(site).SunMoon(testTrigger)
	assert.InDelta(t, 0, sm.Sun.Dec, 0.5)
	assert.True(t, sm.Illumination >= 0 && sm.Illumination <= 1)
}
