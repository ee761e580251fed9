package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/midbel/toml"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var ExecutionTime time.Time

type Duration struct {
	time.Duration
}

func NewDuration(d time.Duration) Duration {
	return Duration{Duration: d}
}

func (d *Duration) String() string {
	return d.Duration.String()
}

func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err == nil {
		d.Duration = v
	}
	return err
}

func (d *Duration) Type() string {
	return "duration"
}

// Offset is a UTC offset in hours that remembers whether it was given, so
// that an explicit 0 still replaces the offset of a registered site.
type Offset struct {
	Hours float64
	set   bool
}

func NewOffset(hours float64) Offset {
	return Offset{Hours: hours, set: true}
}

func (o *Offset) IsSet() bool {
	return o.set
}

func (o *Offset) String() string {
	if !o.set {
		return ""
	}
	return strconv.FormatFloat(o.Hours, 'g', -1, 64)
}

func (o *Offset) Set(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return err
	}
	o.Hours, o.set = v, true
	return nil
}

func (o *Offset) Type() string {
	return "hours"
}

// SiteOption selects an observatory from the registry by name or describes
// a custom one when Name is not registered and coordinates are given.
type SiteOption struct {
	Name      string  `toml:"name"`
	Latitude  float64 `toml:"latitude"`
	Longitude float64 `toml:"longitude"`
	Elevation float64 `toml:"elevation"`
	UTCOffset Offset  `toml:"utc-offset"`
}

func (o SiteOption) custom() bool {
	return o.Latitude != 0 || o.Longitude != 0
}

type ScheduleOption struct {
	Duration    Duration `toml:"duration"`
	Integration Duration `toml:"integration"`
	Trigger     string   `toml:"trigger"`
}

type Settings struct {
	SkyMap      string  `toml:"skymap"`
	Tiles       string  `toml:"tiles"`
	IndexDir    string  `toml:"index-dir"`
	IndexPrefix string  `toml:"index-prefix"`
	Resolution  int     `toml:"resolution"`
	Cutoff      float64 `toml:"cutoff"`
	Format      string  `toml:"format"`
	Output      string  `toml:"output"`

	Observatory SiteOption     `toml:"site"`
	Schedule    ScheduleOption `toml:"schedule"`
}

func Default() *Settings {
	return &Settings{
		IndexDir:    ".",
		IndexPrefix: DefaultIndexPrefix,
		Cutoff:      DefaultCutoff,
		Format:      FormatText,
		Observatory: SiteOption{Name: "palomar"},
		Schedule: ScheduleOption{
			Duration:    NewDuration(DefaultDuration),
			Integration: NewDuration(DefaultIntegration),
		},
	}
}

func (s *Settings) Load(file string) error {
	if err := toml.DecodeFile(file, s); err != nil {
		return badUsage(fmt.Sprintf("invalid configuration file: %v", err))
	}
	return s.Validate()
}

func (s *Settings) Validate() error {
	if s.Resolution < 0 {
		return badUsage("resolution should not be negative")
	}
	if s.Cutoff <= 0 || s.Cutoff > 1 {
		return badUsage(fmt.Sprintf("cutoff should be in ]0, 1], got %g", s.Cutoff))
	}
	switch strings.ToLower(s.Format) {
	case FormatText, FormatJSON, FormatYAML:
	default:
		return badUsage(fmt.Sprintf("unsupported output format %q", s.Format))
	}
	if s.Schedule.Integration.Duration <= 0 {
		return badUsage("integration time should be positive")
	}
	if s.Schedule.Duration.Duration < 0 {
		return badUsage("duration should not be negative")
	}
	return nil
}

func (s *Settings) Catalog() TileIndexCatalog {
	return TileIndexCatalog{Dir: s.IndexDir, Prefix: s.IndexPrefix}
}

// Location resolves the observatory. A utc-offset given in the settings
// replaces the offset of a registered site.
func (s *Settings) Location() (Site, error) {
	o := s.Observatory
	site, err := LookupSite(o.Name)
	if err != nil {
		if !o.custom() {
			return Site{}, err
		}
		site = Site{
			Name:      o.Name,
			Latitude:  o.Latitude,
			Longitude: o.Longitude,
			Elevation: o.Elevation,
			UTCOffset: o.UTCOffset.Hours,
		}
		if site.Name == "" {
			site.Name = "custom"
		}
	}
	if o.UTCOffset.IsSet() {
		site.UTCOffset = o.UTCOffset.Hours
	}
	if site.Latitude < -90 || site.Latitude > 90 {
		return Site{}, badUsage(fmt.Sprintf("latitude out of range: %g", site.Latitude))
	}
	return site, nil
}

// TriggerTime accepts GPS seconds or an RFC3339 date. The execution time is
// used when no trigger is set.
func (s *Settings) TriggerTime() (time.Time, error) {
	return ParseTrigger(s.Schedule.Trigger)
}

func ParseTrigger(str string) (time.Time, error) {
	str = strings.TrimSpace(str)
	if str == "" {
		return ExecutionTime, nil
	}
	if gps, err := strconv.ParseFloat(str, 64); err == nil {
		if gps < 0 {
			return time.Time{}, timeBadSyntax(str)
		}
		return GPSToUTC(gps), nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, str); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, timeBadSyntax(str)
}

func (s *Settings) dump(logger *slog.Logger) {
	logger.Info("build", "version", Version, "build", BuildTime)
	logger.Debug("settings", "skymap", s.SkyMap, "tiles", s.Tiles, "index-dir", s.IndexDir, "index-prefix", s.IndexPrefix)
	logger.Debug("settings", "resolution", s.Resolution, "cutoff", s.Cutoff, "format", s.Format, "output", s.Output)
	logger.Debug("settings", "site", s.Observatory.Name, "utc-offset", s.Observatory.UTCOffset.String())
	logger.Debug("settings", "duration", s.Schedule.Duration.Duration, "integration", s.Schedule.Integration.Duration, "trigger", s.Schedule.Trigger)
}
