package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func rankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank [skymap]",
		Short: "rank the tiles by the probability they cover",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := skyMapArg(args)
			if err != nil {
				return err
			}
			rt, err := NewRanker(settings.Catalog()).Rank(m, settings.Resolution)
			if err != nil {
				return err
			}
			th := Threshold(rt, settings.Cutoff)
			logger.Info("tiles ranked", "tiles", len(rt), "total", rt.Total(), "threshold", th)
			return writeValue(cmd.OutOrStdout(), rt, func(w io.Writer) error {
				return ListRanked(w, rt, th)
			})
		},
	}
	addRankFlags(cmd)
	return cmd
}

func addRankFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVarP(&settings.Resolution, "resolution", "r", settings.Resolution, "resolution of the ranking (0: native resolution of the sky map)")
	fs.Float64Var(&settings.Cutoff, "cutoff", settings.Cutoff, "cumulative probability of the tiles worth observing")
}

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule [skymap]",
		Short: "plan the observation of the tiles from an observatory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := skyMapArg(args)
			if err != nil {
				return err
			}
			site, err := settings.Location()
			if err != nil {
				return err
			}
			tiles, err := LoadTiles(settings.Tiles)
			if err != nil {
				return err
			}
			trigger, err := settings.TriggerTime()
			if err != nil {
				return err
			}
			opts := Options{
				Site:       site.Name,
				Cutoff:     settings.Cutoff,
				UTCOffset:  site.UTCOffset,
				Resolution: settings.Resolution,
				Logger:     logger,
			}
			logger.Info("scheduling", "site", site.String(), "trigger", trigger, "duration", settings.Schedule.Duration.Duration, "integration", settings.Schedule.Integration.Duration)

			s := NewScheduler(NewRanker(settings.Catalog()).Rank, tiles, NewVisibility(site), opts)
			plan, err := s.Schedule(cmd.Context(), m, settings.Schedule.Duration.Duration, trigger, settings.Schedule.Integration.Duration)
			if err != nil {
				return err
			}
			pw := PlanWriter{
				Format: settings.Format,
				Inputs: []string{settings.SkyMap, settings.Tiles},
				Logger: logger,
			}
			return pw.WriteFile(settings.Output, plan)
		},
	}
	addRankFlags(cmd)
	addSiteFlags(cmd)
	fs := cmd.Flags()
	fs.StringVarP(&settings.Tiles, "tiles", "t", settings.Tiles, "tile catalog")
	fs.Var(&settings.Schedule.Duration, "duration", "observation time budget")
	fs.Var(&settings.Schedule.Integration, "integration", "integration time per tile")
	fs.StringVar(&settings.Schedule.Trigger, "trigger", settings.Schedule.Trigger, "trigger time (GPS seconds or RFC3339, default: now)")
	fs.StringVarP(&settings.Output, "output", "o", settings.Output, "write plan to file instead of stdout")
	return cmd
}

func addSiteFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&settings.Observatory.Name, "site", "s", settings.Observatory.Name, "observatory name or alias")
	fs.Var(&settings.Observatory.UTCOffset, "utc-offset", "hours between local time and UTC (default: offset of the site)")
}

func areaCmd() *cobra.Command {
	var ra, dec float64
	cmd := &cobra.Command{
		Use:   "area [skymap]",
		Short: "sky area searched before reaching a position",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := skyMapArg(args)
			if err != nil {
				return err
			}
			sa, err := SearchedArea(ra, dec, m, settings.Resolution)
			if err != nil {
				return err
			}
			return writeValue(cmd.OutOrStdout(), sa, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "ra: %.4f, dec: %.4f, searched area: %.3f deg2, probability: %.6f (nside %d)\n", ra, dec, sa.Area, sa.Probability, sa.Resolution)
				return err
			})
		},
	}
	fs := cmd.Flags()
	fs.Float64Var(&ra, "ra", 0, "right ascension (degrees)")
	fs.Float64Var(&dec, "dec", 0, "declination (degrees)")
	fs.IntVarP(&settings.Resolution, "resolution", "r", settings.Resolution, "resolution of the search")
	return cmd
}

type sourceTile struct {
	Tile        int     `json:"tile" yaml:"tile"`
	Rank        int     `json:"rank,omitempty" yaml:"rank,omitempty"`
	Probability float64 `json:"probability,omitempty" yaml:"probability,omitempty"`
}

func sourceCmd() *cobra.Command {
	var ra, dec float64
	cmd := &cobra.Command{
		Use:   "source [skymap]",
		Short: "find the tile containing a position and its rank",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tiles, err := LoadTiles(settings.Tiles)
			if err != nil {
				return err
			}
			id, err := NearestTile(ra, dec, tiles)
			if err != nil {
				return err
			}
			st := sourceTile{Tile: id}
			if len(args) > 0 || settings.SkyMap != "" {
				m, err := skyMapArg(args)
				if err != nil {
					return err
				}
				rt, err := NewRanker(settings.Catalog()).Rank(m, settings.Resolution)
				if err != nil {
					return err
				}
				for i, t := range rt {
					if t.ID == id {
						st.Rank, st.Probability = i+1, t.Probability
						break
					}
				}
			}
			return writeValue(cmd.OutOrStdout(), st, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "tile: %d, rank: %d, probability: %.6f\n", st.Tile, st.Rank, st.Probability)
				return err
			})
		},
	}
	fs := cmd.Flags()
	fs.Float64Var(&ra, "ra", 0, "right ascension (degrees)")
	fs.Float64Var(&dec, "dec", 0, "declination (degrees)")
	fs.StringVarP(&settings.Tiles, "tiles", "t", settings.Tiles, "tile catalog")
	fs.IntVarP(&settings.Resolution, "resolution", "r", settings.Resolution, "resolution of the ranking")
	return cmd
}

func allocateCmd() *cobra.Command {
	var (
		total  = NewDuration(2 * time.Hour)
		policy string
		arg    float64
	)
	cmd := &cobra.Command{
		Use:   "allocate [skymap]",
		Short: "split an observation time among the ranked tiles",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := ParseWeight(policy, arg)
			if err != nil {
				return err
			}
			m, err := skyMapArg(args)
			if err != nil {
				return err
			}
			rt, err := NewRanker(settings.Catalog()).Rank(m, settings.Resolution)
			if err != nil {
				return err
			}
			ds, err := Allocate(total.Duration, rt.Probabilities(), w)
			if err != nil {
				return err
			}
			logger.Info("time allocated", "tiles", len(ds), "total", total.Duration)
			return writeValue(cmd.OutOrStdout(), ds, func(w io.Writer) error {
				return ListAllocation(w, rt, ds)
			})
		},
	}
	fs := cmd.Flags()
	fs.Var(&total, "total", "total observation time")
	fs.StringVar(&policy, "weight", "identity", "weight policy (identity, power, offset)")
	fs.Float64Var(&arg, "weight-arg", 1, "exponent of the power policy or offset of the offset policy")
	fs.IntVarP(&settings.Resolution, "resolution", "r", settings.Resolution, "resolution of the ranking")
	return cmd
}

func nightsCmd() *cobra.Command {
	var (
		from string
		days int
		step = NewDuration(5 * time.Minute)
	)
	cmd := &cobra.Command{
		Use:   "nights",
		Short: "list the dark periods at an observatory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			site, err := settings.Location()
			if err != nil {
				return err
			}
			starts, err := ParseTrigger(from)
			if err != nil {
				return err
			}
			if days <= 0 {
				return badUsage("days should be positive")
			}
			ps, err := Nights(NewVisibility(site), starts, starts.Add(time.Duration(days)*Day), step.Duration)
			if err != nil {
				return err
			}
			logger.Info("nights", "site", site.Name, "count", len(ps))
			return writeValue(cmd.OutOrStdout(), ps, func(w io.Writer) error {
				return ListNights(w, ps, site.Zone())
			})
		},
	}
	addSiteFlags(cmd)
	fs := cmd.Flags()
	fs.StringVar(&from, "from", "", "start time (GPS seconds or RFC3339, default: now)")
	fs.IntVar(&days, "days", 1, "number of days to scan")
	fs.Var(&step, "step", "sampling interval")
	return cmd
}

func detectCmd() *cobra.Command {
	var (
		calib    string
		abs      float64
		dist     float64
		rank     int
		total    = NewDuration(2 * time.Hour)
		times    string
		optimize bool
		lo, hi   float64
	)
	cmd := &cobra.Command{
		Use:   "detect [skymap]",
		Short: "detectability of a source for candidate integration times",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := LoadCalibration(calib)
			if err != nil {
				return err
			}
			if optimize {
				m, err := skyMapArg(args)
				if err != nil {
					return err
				}
				rt, err := NewRanker(settings.Catalog()).Rank(m, settings.Resolution)
				if err != nil {
					return err
				}
				a, ds, err := OptimizeTimes(total.Duration, abs, lo, hi, rt.Probabilities(), c)
				if err != nil {
					return err
				}
				logger.Info("optimal offset", "offset", a, "tiles", len(ds))
				return writeValue(cmd.OutOrStdout(), ds, func(w io.Writer) error {
					return ListAllocation(w, rt, ds)
				})
			}
			var ds []time.Duration
			for _, t := range strings.Split(times, ",") {
				d, err := time.ParseDuration(strings.TrimSpace(t))
				if err != nil {
					return badUsage(fmt.Sprintf("invalid integration time %q", t))
				}
				ds = append(ds, d)
			}
			ps := Detectability(rank, ds, total.Duration, abs, dist, c)
			return writeValue(cmd.OutOrStdout(), ps, func(w io.Writer) error {
				return ListDetectability(w, ds, ps, c)
			})
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&calib, "calibration", "", "limiting magnitude vs integration time table")
	fs.Float64Var(&abs, "abs-mag", -16, "absolute magnitude of the source")
	fs.Float64Var(&dist, "distance", 200e6, "distance to the source (parsec)")
	fs.IntVar(&rank, "rank", 0, "rank (0 based) of the tile containing the source")
	fs.Var(&total, "total", "total observation time")
	fs.StringVar(&times, "times", "60s,300s,600s", "comma separated candidate integration times")
	fs.BoolVar(&optimize, "optimize", false, "search the offset weighting maximizing the reached depth")
	fs.Float64Var(&lo, "min-offset", 0, "lower bound of the offset search")
	fs.Float64Var(&hi, "max-offset", 1, "upper bound of the offset search")
	fs.IntVarP(&settings.Resolution, "resolution", "r", settings.Resolution, "resolution of the ranking")
	cmd.MarkFlagRequired("calibration")
	return cmd
}

func rebinCmd() *cobra.Command {
	var resolution int
	cmd := &cobra.Command{
		Use:   "rebin <skymap> <output>",
		Short: "change the resolution of a sky map conserving its probability",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := skyMapArg(args[:1])
			if err != nil {
				return err
			}
			nside := EffectiveResolution(resolution)
			um, err := Rebin(m, nside)
			if err != nil {
				return err
			}
			if err := WriteSkyMap(args[1], um); err != nil {
				return err
			}
			logger.Info("sky map rebinned", "file", args[1], "nside", nside, "total", um.Sum())
			return nil
		},
	}
	cmd.Flags().IntVarP(&resolution, "resolution", "r", 256, "target resolution")
	return cmd
}

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "manage the precomputed tile indexes",
	}
	var (
		nside int
		force bool
	)
	imp := &cobra.Command{
		Use:   "import <index.dat> [index.db]",
		Short: "convert a text tile index into a sqlite database",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isSupportedResolution(nside) {
				return unsupportedResolution(nside)
			}
			x, err := ReadTileIndexFile(args[0], nside)
			if err != nil {
				return checkError(err, nil)
			}
			if err := x.validate(); err != nil {
				return badUsage(err.Error())
			}
			dst := settings.Catalog().Path(nside, IndexDBExt)
			if len(args) > 1 {
				dst = args[1]
			}
			if _, err := os.Stat(dst); err == nil {
				if !force {
					return badUsage(fmt.Sprintf("%s already exists", dst))
				}
				if err := os.Remove(dst); err != nil {
					return checkError(err, nil)
				}
			} else if !errors.Is(err, os.ErrNotExist) {
				return checkError(err, nil)
			}
			if err := WriteTileIndexDB(dst, x); err != nil {
				return err
			}
			logger.Info("tile index imported", "file", dst, "nside", nside, "tiles", len(x.Tiles))
			return nil
		},
	}
	imp.Flags().IntVarP(&nside, "resolution", "r", 0, "resolution of the index")
	imp.Flags().BoolVar(&force, "force", false, "overwrite an existing database")
	imp.MarkFlagRequired("resolution")
	cmd.AddCommand(imp)
	return cmd
}

func sitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "list the registered observatories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ss, err := Sites()
			if err != nil {
				return err
			}
			return writeValue(cmd.OutOrStdout(), ss, func(w io.Writer) error {
				return ListSites(w, ss)
			})
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print version and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s-%s (%s)\n", Program, Version, BuildTime)
		},
	}
}
