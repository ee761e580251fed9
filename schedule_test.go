package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testRanked = RankedTiles{
		{ID: 1, Probability: 0.4},
		{ID: 2, Probability: 0.3},
		{ID: 3, Probability: 0.2},
		{ID: 4, Probability: 0.08},
		{ID: 5, Probability: 0.02},
	}
	testTiles = []Tile{
		{ID: 1, RA: 10, Dec: -80},
		{ID: 2, RA: 20, Dec: 10},
		{ID: 3, RA: 30, Dec: 20},
		{ID: 4, RA: 40, Dec: 30},
		{ID: 5, RA: 50, Dec: 40},
	}
)

func rankWith(rt RankedTiles) RankFunc {
	return func(*SkyMap, int) (RankedTiles, error) {
		return rt, nil
	}
}

func runSchedule(t *testing.T, sky Sky, duration time.Duration, opts Options) *Plan {
	t.Helper()
	s := NewScheduler(rankWith(testRanked), testTiles, sky, opts)
	p, err := s.Schedule(context.Background(), nil, duration, testTrigger, 2*time.Minute)
	require.NoError(t, err)
	return p
}

func TestScheduleNight(t *testing.T) {
	p := runSchedule(t, stubSky{sun: alwaysDark}, 24*time.Hour, Options{})

	assert.Equal(t, 0.02, p.Threshold)
	assert.Equal(t, []int{1, 2, 3, 4}, p.TileIDs())
	assert.Equal(t, []float64{0.4, 0.3, 0.2, 0.08}, p.Probabilities())
	assert.InDelta(t, 0.98, p.Captured(), 1e-9)
	for i, e := range p.Events {
		assert.Equal(t, testTrigger.Add(time.Duration(i)*2*time.Minute), e.Time)
		assert.Equal(t, 0.9, e.Illumination)
	}
	assert.Equal(t, []float64{10, 10, 10, 10}, p.SunRA())
	assert.Equal(t, []float64{-5, -5, -5, -5}, p.SunDec())
	assert.Equal(t, []float64{190, 190, 190, 190}, p.MoonRA())
	assert.Equal(t, []float64{5, 5, 5, 5}, p.MoonDec())
	assert.Equal(t, []float64{0.9, 0.9, 0.9, 0.9}, p.Illumination())
}

func TestScheduleProperties(t *testing.T) {
	p := runSchedule(t, stubSky{sun: alwaysDark}, 24*time.Hour, Options{})

	seen := make(map[int]struct{})
	for i, e := range p.Events {
		_, ok := seen[e.TileID]
		assert.False(t, ok, "tile %d scheduled twice", e.TileID)
		seen[e.TileID] = struct{}{}

		assert.Greater(t, e.Probability, p.Threshold)
		if i > 0 {
			assert.GreaterOrEqual(t, p.Events[i-1].Probability, e.Probability)
		}
	}
	assert.NotContains(t, p.TileIDs(), 5)
}

func TestScheduleBudget(t *testing.T) {
	p := runSchedule(t, stubSky{sun: alwaysDark}, 4*time.Minute, Options{})
	assert.Equal(t, []int{1, 2, 3}, p.TileIDs())

	p = runSchedule(t, stubSky{sun: alwaysDark}, 0, Options{})
	assert.Equal(t, []int{1}, p.TileIDs())
}

func TestScheduleTilesDown(t *testing.T) {
	sky := stubSky{
		sun: alwaysDark,
		tile: func(_ time.Time, c Coord) float64 {
			if c.Dec < -60 {
				return 0
			}
			return 45
		},
	}
	p := runSchedule(t, sky, 24*time.Hour, Options{})
	assert.Equal(t, []int{2, 3, 4}, p.TileIDs())
}

func TestScheduleDaylightSkip(t *testing.T) {
	sunset := testTrigger.Add(2 * time.Hour)
	sky := stubSky{sun: darkAfter(sunset)}

	p := runSchedule(t, sky, 4*time.Minute, Options{})
	require.Equal(t, []int{1, 2}, p.TileIDs())
	assert.Equal(t, sunset, p.Events[0].Time)
	for _, e := range p.Events {
		assert.False(t, e.Time.Before(sunset))
	}
}

func TestScheduleDaylightInterrupt(t *testing.T) {
	var (
		dawn   = testTrigger.Add(5 * time.Minute)
		sunset = testTrigger.Add(6 * time.Hour)
		sky    = stubSky{
			sun: func(t time.Time) float64 {
				if !t.Before(dawn) && t.Before(sunset) {
					return 10
				}
				return -30
			},
		}
	)
	p := runSchedule(t, sky, 24*time.Hour, Options{})
	require.Equal(t, []int{1, 2, 3, 4}, p.TileIDs())
	assert.Equal(t, testTrigger, p.Events[0].Time)
	assert.Equal(t, testTrigger.Add(4*time.Minute), p.Events[2].Time)
	assert.Equal(t, sunset, p.Events[3].Time)
}

func TestScheduleUniformThreshold(t *testing.T) {
	uniform := RankedTiles{
		{ID: 1, Probability: 0.25},
		{ID: 2, Probability: 0.25},
		{ID: 3, Probability: 0.25},
		{ID: 4, Probability: 0.25},
	}
	s := NewScheduler(rankWith(uniform), testTiles, stubSky{sun: alwaysDark}, Options{})
	p, err := s.Schedule(context.Background(), nil, 24*time.Hour, testTrigger, 2*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0.25, p.Threshold)
	assert.Empty(t, p.Events)
}

func TestScheduleLocalTime(t *testing.T) {
	p := runSchedule(t, stubSky{sun: alwaysDark}, time.Hour, Options{Site: "palomar", UTCOffset: -8})
	require.NotEmpty(t, p.Events)
	assert.Equal(t, "palomar", p.Site)

	e := p.Events[0]
	_, offset := e.Local.Zone()
	assert.Equal(t, -8*3600, offset)
	assert.True(t, e.Local.Equal(e.Time))
	assert.True(t, e.SetsAt.IsZero())
}

func TestScheduleErrors(t *testing.T) {
	sky := stubSky{sun: alwaysDark}

	s := NewScheduler(rankWith(testRanked), testTiles[1:], sky, Options{})
	_, err := s.Schedule(context.Background(), nil, time.Hour, testTrigger, time.Minute)
	assert.True(t, errors.Is(err, ErrTileFileMissing))

	failing := func(*SkyMap, int) (RankedTiles, error) {
		return nil, unsupportedResolution(3)
	}
	s = NewScheduler(failing, testTiles, sky, Options{})
	_, err = s.Schedule(context.Background(), nil, time.Hour, testTrigger, time.Minute)
	assert.True(t, errors.Is(err, ErrUnsupportedResolution))

	s = NewScheduler(rankWith(testRanked), testTiles, sky, Options{})
	_, err = s.Schedule(context.Background(), nil, time.Hour, testTrigger, 0)
	assert.Error(t, err)

	s = NewScheduler(rankWith(testRanked), testTiles, stubSky{sun: func(time.Time) float64 { return 5 }}, Options{})
	_, err = s.Schedule(context.Background(), nil, time.Hour, testTrigger, time.Minute)
	assert.True(t, errors.Is(err, ErrSunsetNotFound))
}

func TestScheduleCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewScheduler(rankWith(testRanked), testTiles, stubSky{sun: alwaysDark}, Options{})
	_, err := s.Schedule(ctx, nil, time.Hour, testTrigger, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScheduleRealSky(t *testing.T) {
	site, err := LookupSite("palomar")
	require.NoError(t, err)

	s := NewScheduler(rankWith(testRanked), testTiles, NewVisibility(site), Options{Site: site.Name, UTCOffset: site.UTCOffset})
	p, err := s.Schedule(context.Background(), nil, 12*time.Hour, testTrigger, 5*time.Minute)
	require.NoError(t, err)

	vis := NewVisibility(site)
	seen := make(map[int]struct{})
	for _, e := range p.Events {
		assert.NotContains(t, seen, e.TileID)
		seen[e.TileID] = struct{}{}
		pos := vis.Positions(e.Time, []Coord{tileLookup(testTiles)[e.TileID].Coord()})
		assert.True(t, IsNight(pos.Sun.Alt), "tile %d at %s", e.TileID, e.Time)
		assert.True(t, IsTileUp(pos.Tiles[0].Alt), "tile %d at %s", e.TileID, e.Time)
	}
}
