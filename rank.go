package main

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

const DefaultCutoff = 0.99

type RankedTile struct {
	ID          int     `json:"id" yaml:"id"`
	Probability float64 `json:"probability" yaml:"probability"`
}

// RankedTiles is sorted by decreasing probability.
type RankedTiles []RankedTile

func (rt RankedTiles) IDs() []int {
	ids := make([]int, len(rt))
	for i, t := range rt {
		ids[i] = t.ID
	}
	return ids
}

func (rt RankedTiles) Probabilities() []float64 {
	ps := make([]float64, len(rt))
	for i, t := range rt {
		ps[i] = t.Probability
	}
	return ps
}

func (rt RankedTiles) Total() float64 {
	return floats.Sum(rt.Probabilities())
}

// Threshold returns the probability of the last tile of the smallest prefix
// of rt whose cumulative probability reaches cutoff. When no prefix reaches
// it, every tile qualifies and the threshold is zero.
func Threshold(rt RankedTiles, cutoff float64) float64 {
	if len(rt) == 0 {
		return 0
	}
	cs := floats.CumSum(make([]float64, len(rt)), rt.Probabilities())
	for i, c := range cs {
		if c >= cutoff {
			return rt[i].Probability
		}
	}
	return 0
}

// RankFunc ranks the tiles of a sky map at the requested resolution.
type RankFunc func(m *SkyMap, resolution int) (RankedTiles, error)

type Ranker struct {
	Index TileIndexCatalog
}

func NewRanker(c TileIndexCatalog) *Ranker {
	return &Ranker{Index: c}
}

// Rank snaps the resolution, rebins m and ranks the tiles of the matching
// index. A zero resolution means the native resolution of m.
func (r *Ranker) Rank(m *SkyMap, resolution int) (RankedTiles, error) {
	if resolution == 0 {
		resolution = m.Nside()
	}
	resolution = EffectiveResolution(resolution)
	x, err := r.Index.Load(resolution)
	if err != nil {
		return nil, err
	}
	um, err := Rebin(m, resolution)
	if err != nil {
		return nil, err
	}
	return RankTiles(um, x)
}

// RankTiles sums the probability of the pixels covered by every tile and
// sorts the tiles by decreasing probability, ties by increasing ID.
func RankTiles(m *SkyMap, x *TileIndex) (RankedTiles, error) {
	if m.Nside() != x.Nside {
		return nil, fmt.Errorf("sky map nside %d does not match tile index nside %d", m.Nside(), x.Nside)
	}
	rt := make(RankedTiles, len(x.Tiles))
	for i, t := range x.Tiles {
		var p float64
		for _, px := range t.Pixels {
			p += m.At(px)
		}
		rt[i] = RankedTile{ID: t.ID, Probability: p}
	}
	sort.SliceStable(rt, func(i, j int) bool {
		if rt[i].Probability == rt[j].Probability {
			return rt[i].ID < rt[j].ID
		}
		return rt[i].Probability > rt[j].Probability
	})
	return rt, nil
}

// NearestTile returns the ID of the tile whose center is the closest to
// ra/dec (degrees).
func NearestTile(ra, dec float64, ts []Tile) (int, error) {
	if len(ts) == 0 {
		return 0, badUsage("empty tile catalog")
	}
	var (
		best = -1
		dist = math.Inf(1)
		pt   = Coord{RA: ra, Dec: dec}
	)
	for i, t := range ts {
		if d := Separation(pt, t.Coord()); d < dist {
			best, dist = i, d
		}
	}
	return ts[best].ID, nil
}

// Searched is the localization cost of reaching a position by following
// the pixels in decreasing probability order.
type Searched struct {
	Area        float64 `json:"area" yaml:"area"`
	Probability float64 `json:"probability" yaml:"probability"`
	Resolution  int     `json:"resolution" yaml:"resolution"`
}

// SearchedArea returns the sky area (deg²) and the probability covered
// before the pixel nearest ra/dec is reached.
func SearchedArea(ra, dec float64, m *SkyMap, resolution int) (Searched, error) {
	if resolution == 0 {
		resolution = m.Nside()
	}
	resolution = EffectiveResolution(resolution)
	um, err := Rebin(m, resolution)
	if err != nil {
		return Searched{}, err
	}
	order := make([]int, um.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return um.At(order[i]) > um.At(order[j]) })

	var (
		pt   = Coord{RA: ra, Dec: dec}
		rank int
		dist = math.Inf(1)
	)
	for i, px := range order {
		pra, pdec := pixelRaDec(resolution, px)
		if d := Separation(pt, Coord{RA: pra, Dec: pdec}); d < dist {
			rank, dist = i, d
		}
	}
	var covered float64
	for _, px := range order[:rank] {
		covered += um.At(px)
	}
	return Searched{
		Area:        float64(rank) * PixelArea(resolution),
		Probability: covered,
		Resolution:  resolution,
	}, nil
}
