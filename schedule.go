package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultIntegration = 120 * time.Second
	DefaultDuration    = 24 * time.Hour
	Day                = 24 * time.Hour
)

// Event is one pointing of the plan.
type Event struct {
	TileID       int       `json:"tile" yaml:"tile"`
	Time         time.Time `json:"time" yaml:"time"`
	Local        time.Time `json:"local" yaml:"local"`
	Probability  float64   `json:"probability" yaml:"probability"`
	SunRA        float64   `json:"sun_ra" yaml:"sun-ra"`
	SunDec       float64   `json:"sun_dec" yaml:"sun-dec"`
	MoonRA       float64   `json:"moon_ra" yaml:"moon-ra"`
	MoonDec      float64   `json:"moon_dec" yaml:"moon-dec"`
	Illumination float64   `json:"illumination" yaml:"illumination"`
	SetsAt       time.Time `json:"sets_at" yaml:"sets-at,omitempty"`
}

type Plan struct {
	ID          uuid.UUID     `json:"id" yaml:"id"`
	Site        string        `json:"site" yaml:"site"`
	Trigger     time.Time     `json:"trigger" yaml:"trigger"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
	Integration time.Duration `json:"integration" yaml:"integration"`
	Threshold   float64       `json:"threshold" yaml:"threshold"`
	Events      []Event       `json:"events" yaml:"events"`
}

func (p *Plan) TileIDs() []int {
	vs := make([]int, len(p.Events))
	for i, e := range p.Events {
		vs[i] = e.TileID
	}
	return vs
}

func (p *Plan) collect(get func(Event) float64) []float64 {
	vs := make([]float64, len(p.Events))
	for i, e := range p.Events {
		vs[i] = get(e)
	}
	return vs
}

func (p *Plan) Probabilities() []float64 {
	return p.collect(func(e Event) float64 { return e.Probability })
}

func (p *Plan) SunRA() []float64 {
	return p.collect(func(e Event) float64 { return e.SunRA })
}

func (p *Plan) SunDec() []float64 {
	return p.collect(func(e Event) float64 { return e.SunDec })
}

func (p *Plan) MoonRA() []float64 {
	return p.collect(func(e Event) float64 { return e.MoonRA })
}

func (p *Plan) MoonDec() []float64 {
	return p.collect(func(e Event) float64 { return e.MoonDec })
}

func (p *Plan) Illumination() []float64 {
	return p.collect(func(e Event) float64 { return e.Illumination })
}

// Captured returns the total probability covered by the plan.
func (p *Plan) Captured() float64 {
	var sum float64
	for _, e := range p.Events {
		sum += e.Probability
	}
	return sum
}

type Options struct {
	Site       string
	Cutoff     float64
	UTCOffset  float64
	Resolution int
	Logger     *slog.Logger
}

func (o Options) zone() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+g", o.UTCOffset), int(o.UTCOffset*3600))
}

type Scheduler struct {
	rank  RankFunc
	tiles map[int]Tile
	sky   Sky
	opts  Options
}

func NewScheduler(rank RankFunc, tiles []Tile, sky Sky, opts Options) *Scheduler {
	if opts.Cutoff <= 0 {
		opts.Cutoff = DefaultCutoff
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{
		rank:  rank,
		tiles: tileLookup(tiles),
		sky:   sky,
		opts:  opts,
	}
}

type candidate struct {
	RankedTile
	Coord
}

func (s *Scheduler) candidates(rt RankedTiles, threshold float64) ([]candidate, error) {
	var cs []candidate
	for _, r := range rt {
		t, ok := s.tiles[r.ID]
		if !ok {
			return nil, tileFileMissing("catalog", fmt.Errorf("tile %d not found", r.ID))
		}
		if r.Probability > threshold {
			cs = append(cs, candidate{RankedTile: r, Coord: t.Coord()})
		}
	}
	return cs, nil
}

// Schedule walks the simulated clock from trigger in steps of integration
// until duration is spent. During daylight the clock jumps to the next
// sunset, at night the highest ranked tile that is up, not yet observed and
// above the admission threshold is added to the plan.
func (s *Scheduler) Schedule(ctx context.Context, m *SkyMap, duration time.Duration, trigger time.Time, integration time.Duration) (*Plan, error) {
	if integration <= 0 {
		return nil, badUsage("integration time should be positive")
	}
	if duration < 0 {
		return nil, badUsage("duration should not be negative")
	}
	rt, err := s.rank(m, s.opts.Resolution)
	if err != nil {
		return nil, err
	}
	plan := Plan{
		ID:          uuid.New(),
		Site:        s.opts.Site,
		Trigger:     trigger.UTC(),
		Duration:    duration,
		Integration: integration,
		Threshold:   Threshold(rt, s.opts.Cutoff),
	}
	cs, err := s.candidates(rt, plan.Threshold)
	if err != nil {
		return nil, err
	}
	logger := s.opts.Logger.With("plan", plan.ID.String())
	logger.Debug("ranked tiles", "tiles", len(rt), "threshold", plan.Threshold, "candidates", len(cs))

	var (
		when    = plan.Trigger
		elapsed time.Duration
		done    = make(map[int]struct{})
		zone    = s.opts.zone()
	)
	if !IsNight(sunAltitude(s.sky, when)) {
		if when, err = AdvanceToSunset(s.sky, when, integration); err != nil {
			return nil, err
		}
		logger.Debug("trigger in daylight", "sunset", when)
	}
	for elapsed <= duration && len(done) < len(cs) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var (
			coords = make([]Coord, len(cs))
			pos    Positions
		)
		for i := range cs {
			coords[i] = cs[i].Coord
		}
		pos = s.sky.Positions(when, coords)
		if !IsNight(pos.Sun.Alt) {
			next, err := AdvanceToSunset(s.sky, when, integration)
			if err != nil {
				return nil, err
			}
			logger.Debug("daylight", "at", when, "sunset", next)
			when = next
		} else if i := s.pick(cs, pos, done); i >= 0 {
			c := cs[i]
			e, err := s.observe(c, when, zone, duration-elapsed, integration)
			if err != nil {
				return nil, err
			}
			done[c.ID] = struct{}{}
			plan.Events = append(plan.Events, e)
			logger.Debug("tile scheduled", "tile", c.ID, "at", when, "probability", c.Probability)
		}
		when = when.Add(integration)
		elapsed += integration
	}
	logger.Info("plan ready", "events", len(plan.Events), "captured", plan.Captured())
	return &plan, nil
}

func (s *Scheduler) pick(cs []candidate, pos Positions, done map[int]struct{}) int {
	for i, c := range cs {
		if _, ok := done[c.ID]; ok {
			continue
		}
		if IsTileUp(pos.Tiles[i].Alt) {
			return i
		}
	}
	return -1
}

func (s *Scheduler) observe(c candidate, when time.Time, zone *time.Location, left, step time.Duration) (Event, error) {
	sets, err := SetTime(s.sky, c.Coord, when, left, step)
	if err != nil {
		return Event{}, err
	}
	sm := s.sky.SunMoon(when)
	return Event{
		TileID:       c.ID,
		Time:         when,
		Local:        when.In(zone),
		Probability:  c.Probability,
		SunRA:        sm.Sun.RA,
		SunDec:       sm.Sun.Dec,
		MoonRA:       sm.Moon.RA,
		MoonDec:      sm.Moon.Dec,
		Illumination: sm.Illumination,
		SetsAt:       sets,
	}, nil
}
