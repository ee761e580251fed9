package main

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const timeFormat = "2006-01-02T15:04:05"

// PlanWriter encodes a plan. Inputs are the files the plan was computed
// from, reported with their md5 in the text preamble.
type PlanWriter struct {
	Format string
	Inputs []string
	Logger *slog.Logger
}

func (pw PlanWriter) Write(w io.Writer, p *Plan) error {
	switch strings.ToLower(pw.Format) {
	case FormatJSON:
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(p)
	case FormatYAML:
		e := yaml.NewEncoder(w)
		defer e.Close()
		e.SetIndent(2)
		return e.Encode(p)
	case FormatText, "":
		writePreamble(w, p)
		if err := writeMetadata(w, pw.Inputs, pw.logger()); err != nil {
			return err
		}
		return writeEvents(w, p)
	default:
		return badUsage(fmt.Sprintf("unsupported output format %q", pw.Format))
	}
}

func (pw PlanWriter) logger() *slog.Logger {
	if pw.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return pw.Logger
}

// WriteFile writes the plan to file, or to stdout when file is empty, and
// logs the md5 of what was written.
func (pw PlanWriter) WriteFile(file string, p *Plan) error {
	var (
		digest = md5.New()
		name   = file
	)
	if file == "" {
		name = "stdout"
		if err := pw.Write(io.MultiWriter(os.Stdout, digest), p); err != nil {
			return err
		}
	} else {
		f, err := os.Create(file)
		if err != nil {
			return checkError(err, nil)
		}
		if err := pw.Write(io.MultiWriter(f, digest), p); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return checkError(err, nil)
		}
	}
	pw.logger().Info("plan written", "file", name, "format", pw.Format, "md5", fmt.Sprintf("%x", digest.Sum(nil)))
	return nil
}

func writePreamble(w io.Writer, p *Plan) {
	fmt.Fprintf(w, "# %s-%s (build: %s)", Program, Version, BuildTime)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# "+strings.Join(os.Args, " "))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "# execution time: %s", ExecutionTime.Format(timeFormat))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "# plan: %s, site: %s", p.ID, p.Site)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "# trigger: %s (GPS: %.0f)", p.Trigger.Format(timeFormat), UTCToGPS(p.Trigger))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "# duration: %s, integration: %s, threshold: %.6g", p.Duration, p.Integration, p.Threshold)
	fmt.Fprintln(w)
	fmt.Fprintln(w)
}

func writeMetadata(w io.Writer, files []string, logger *slog.Logger) error {
	aboutFile := func(file string, digest hash.Hash) error {
		defer digest.Reset()

		r, err := os.Open(file)
		if err != nil {
			return checkError(err, nil)
		}
		defer r.Close()

		if _, err := io.Copy(digest, r); err != nil {
			return checkError(err, nil)
		}
		s, err := r.Stat()
		if err != nil {
			return checkError(err, nil)
		}
		var (
			modtime  = s.ModTime().Format("2006-01-02 15:04:05")
			filesize = s.Size()
			sum      = digest.Sum(nil)
		)
		logger.Info("input", "file", file, "md5", fmt.Sprintf("%x", sum), "lastmod", modtime, "size", filesize)
		fmt.Fprintf(w, "# %s: md5 = %x, lastmod: %s, size : %d bytes", file, sum, modtime, filesize)
		fmt.Fprintln(w)
		return nil
	}
	digest := md5.New()
	for _, f := range files {
		if f == "" {
			continue
		}
		if err := aboutFile(f, digest); err != nil {
			return err
		}
	}
	fmt.Fprintln(w)
	return nil
}

func writeEvents(w io.Writer, p *Plan) error {
	fmt.Fprintf(w, "%3s | %6s | %-19s | %-19s | %-10s | %7s | %7s | %7s | %7s | %5s | %-19s", "#", "TILE", "TIME (UTC)", "LOCAL", "PROB", "SUN RA", "SUN DEC", "MOON RA", "MOON DE", "ILLUM", "SETS (UTC)")
	fmt.Fprintln(w)
	var captured float64
	for i, e := range p.Events {
		captured += e.Probability
		sets := "-"
		if !e.SetsAt.IsZero() {
			sets = e.SetsAt.Format(timeFormat)
		}
		fmt.Fprintf(w, "%3d | %6d | %-19s | %-19s | %-10.6f | %7.3f | %7.3f | %7.3f | %7.3f | %5.3f | %-19s",
			i+1,
			e.TileID,
			e.Time.Format(timeFormat),
			e.Local.Format(timeFormat),
			e.Probability,
			e.SunRA,
			e.SunDec,
			e.MoonRA,
			e.MoonDec,
			e.Illumination,
			sets,
		)
		fmt.Fprintln(w)
	}
	_, err := fmt.Fprintf(w, "# %d tiles, captured probability: %.6f, span: %s\n", len(p.Events), captured, planSpan(p))
	return err
}

func planSpan(p *Plan) time.Duration {
	if len(p.Events) == 0 {
		return 0
	}
	return p.Events[len(p.Events)-1].Time.Add(p.Integration).Sub(p.Events[0].Time)
}
