package main

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed sites.yaml
var sitesData []byte

// Site is an observatory location. Longitude is positive east.
type Site struct {
	Name      string   `yaml:"name" toml:"name" json:"name"`
	Aliases   []string `yaml:"aliases,omitempty" toml:"-" json:"-"`
	Latitude  float64  `yaml:"latitude" toml:"latitude" json:"latitude"`
	Longitude float64  `yaml:"longitude" toml:"longitude" json:"longitude"`
	Elevation float64  `yaml:"elevation" toml:"elevation" json:"elevation"`
	UTCOffset float64  `yaml:"utc-offset" toml:"utc-offset" json:"utc_offset"`
}

func (s Site) String() string {
	return fmt.Sprintf("%s (%.4f, %.4f, %.0fm)", s.Name, s.Latitude, s.Longitude, s.Elevation)
}

// Zone returns the fixed local zone of the site.
func (s Site) Zone() *time.Location {
	return time.FixedZone(s.Name, int(s.UTCOffset*3600))
}

func (s Site) matches(n string) bool {
	if strings.EqualFold(s.Name, n) {
		return true
	}
	for _, a := range s.Aliases {
		if strings.EqualFold(a, n) {
			return true
		}
	}
	return false
}

func Sites() ([]Site, error) {
	var ss []Site
	if err := yaml.Unmarshal(sitesData, &ss); err != nil {
		return nil, genericErr(fmt.Sprintf("decoding site registry: %v", err))
	}
	sort.Slice(ss, func(i, j int) bool { return ss[i].Name < ss[j].Name })
	return ss, nil
}

func LookupSite(n string) (Site, error) {
	ss, err := Sites()
	if err != nil {
		return Site{}, err
	}
	for _, s := range ss {
		if s.matches(n) {
			return s, nil
		}
	}
	return Site{}, unknownSite(n)
}
