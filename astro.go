package main

import (
	"math"
	"time"
)

const (
	j2000 = 2451545.0

	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi

	earthRadiusKm = 6378.14
	auKm          = 149597870.7
)

// Coord is an equatorial position in degrees.
type Coord struct {
	RA  float64
	Dec float64
}

// Horizontal is a position in the local alt-az frame, in degrees. Azimuth is
// measured from north through east.
type Horizontal struct {
	Alt float64
	Az  float64
}

// Body is a geocentric position with its distance in kilometers.
type Body struct {
	Coord
	Distance float64
}

// JulianDate converts a UTC instant to a Julian Date.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	var (
		y   = float64(t.Year())
		m   = float64(t.Month())
		d   = float64(t.Day())
		h   = float64(t.Hour())
		min = float64(t.Minute())
		s   = float64(t.Second()) + float64(t.Nanosecond())/1e9
	)
	if m <= 2 {
		y -= 1
		m += 12
	}
	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + b - 1524.5
	return jd + (h+min/60+s/3600)/24
}

// GMST returns the Greenwich mean sidereal time in radians (IAU-82).
func GMST(t time.Time) float64 {
	tu := (JulianDate(t) - j2000) / 36525

	sec := 67310.54841 +
		(3155760000.0+8640184.812866)*tu +
		0.093104*tu*tu -
		6.2e-6*tu*tu*tu

	sec = math.Mod(sec, 86400)
	if sec < 0 {
		sec += 86400
	}
	return sec / 86400 * 2 * math.Pi
}

func normDegrees(v float64) float64 {
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return v
}

func obliquity(n float64) float64 {
	return (23.439 - 0.0000004*n) * deg2rad
}

func eclipticToEquatorial(lambda, beta, eps float64) Coord {
	var (
		l = math.Cos(beta) * math.Cos(lambda)
		m = math.Cos(eps)*math.Cos(beta)*math.Sin(lambda) - math.Sin(eps)*math.Sin(beta)
		n = math.Sin(eps)*math.Cos(beta)*math.Sin(lambda) + math.Cos(eps)*math.Sin(beta)
	)
	return Coord{
		RA:  normDegrees(math.Atan2(m, l) * rad2deg),
		Dec: math.Asin(n) * rad2deg,
	}
}

// SunPosition returns the apparent geocentric position of the sun using the
// low precision formulae of the Astronomical Almanac (about 0.01 degree).
func SunPosition(t time.Time) Body {
	var (
		n = JulianDate(t) - j2000
		l = normDegrees(280.460 + 0.9856474*n)
		g = normDegrees(357.528+0.9856003*n) * deg2rad
	)
	lambda := (l + 1.915*math.Sin(g) + 0.020*math.Sin(2*g)) * deg2rad
	r := 1.00014 - 0.01671*math.Cos(g) - 0.00014*math.Cos(2*g)
	return Body{
		Coord:    eclipticToEquatorial(lambda, 0, obliquity(n)),
		Distance: r * auKm,
	}
}

// MoonPosition returns the geocentric position of the moon using the low
// precision series of the Astronomical Almanac (about 0.3 degree).
func MoonPosition(t time.Time) Body {
	var (
		n  = JulianDate(t) - j2000
		tc = n / 36525
	)
	sind := func(v float64) float64 { return math.Sin(normDegrees(v) * deg2rad) }
	cosd := func(v float64) float64 { return math.Cos(normDegrees(v) * deg2rad) }

	lambda := 218.32 + 481267.881*tc +
		6.29*sind(135.0+477198.87*tc) -
		1.27*sind(259.3-413335.36*tc) +
		0.66*sind(235.7+890534.22*tc) +
		0.21*sind(269.9+954397.74*tc) -
		0.19*sind(357.5+35999.05*tc) -
		0.11*sind(186.5+966404.03*tc)
	beta := 5.13*sind(93.3+483202.02*tc) +
		0.28*sind(228.2+960400.89*tc) -
		0.28*sind(318.3+6003.15*tc) -
		0.17*sind(217.6-407332.21*tc)
	parallax := 0.9508 +
		0.0518*cosd(135.0+477198.87*tc) +
		0.0095*cosd(259.3-413335.36*tc) +
		0.0078*cosd(235.7+890534.22*tc) +
		0.0028*cosd(269.9+954397.74*tc)

	return Body{
		Coord:    eclipticToEquatorial(normDegrees(lambda)*deg2rad, beta*deg2rad, obliquity(n)),
		Distance: earthRadiusKm / math.Sin(parallax*deg2rad),
	}
}

// Separation returns the angular distance between two positions in degrees.
func Separation(a, b Coord) float64 {
	var (
		d1, d2 = a.Dec * deg2rad, b.Dec * deg2rad
		dra    = (a.RA - b.RA) * deg2rad
		cos    = math.Sin(d1)*math.Sin(d2) + math.Cos(d1)*math.Cos(d2)*math.Cos(dra)
	)
	return math.Acos(math.Max(-1, math.Min(1, cos))) * rad2deg
}

// Illumination returns the illuminated fraction of the lunar disk.
func Illumination(sun, moon Body) float64 {
	elong := Separation(sun.Coord, moon.Coord) * deg2rad
	phase := math.Atan2(sun.Distance*math.Sin(elong), moon.Distance-sun.Distance*math.Cos(elong))
	return 0.5 * (1 + math.Cos(phase))
}

// ToHorizontal transforms c for an observer at lat/lon (degrees) given the
// Greenwich sidereal time in radians.
func ToHorizontal(c Coord, lat, lon, gmst float64) Horizontal {
	var (
		phi   = lat * deg2rad
		dec   = c.Dec * deg2rad
		ha    = gmst + lon*deg2rad - c.RA*deg2rad
		sinAl = math.Sin(phi)*math.Sin(dec) + math.Cos(phi)*math.Cos(dec)*math.Cos(ha)
	)
	alt := math.Asin(math.Max(-1, math.Min(1, sinAl)))
	az := math.Atan2(-math.Sin(ha)*math.Cos(dec), math.Sin(dec)*math.Cos(phi)-math.Cos(dec)*math.Sin(phi)*math.Cos(ha))
	return Horizontal{
		Alt: alt * rad2deg,
		Az:  normDegrees(az * rad2deg),
	}
}

var GPSEpoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// leaps lists the UTC instants at which GPS-UTC increased by one second.
var leaps = []time.Time{
	time.Date(1981, time.July, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1982, time.July, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1983, time.July, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1985, time.July, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1988, time.January, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1991, time.January, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1992, time.July, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1993, time.July, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1994, time.July, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1996, time.January, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1997, time.July, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1999, time.January, 1, 0, 0, 0, 0, time.UTC),
	time.Date(2006, time.January, 1, 0, 0, 0, 0, time.UTC),
	time.Date(2009, time.January, 1, 0, 0, 0, 0, time.UTC),
	time.Date(2012, time.July, 1, 0, 0, 0, 0, time.UTC),
	time.Date(2015, time.July, 1, 0, 0, 0, 0, time.UTC),
	time.Date(2017, time.January, 1, 0, 0, 0, 0, time.UTC),
}

// GPSToUTC converts seconds since the GPS epoch to UTC.
func GPSToUTC(gps float64) time.Time {
	sec, frac := math.Modf(gps)
	t := GPSEpoch.Add(time.Duration(sec) * time.Second).Add(time.Duration(frac * float64(time.Second)))
	for i := len(leaps); i > 0; i-- {
		if u := t.Add(-time.Duration(i) * time.Second); !u.Before(leaps[i-1]) {
			return u
		}
	}
	return t
}

// UTCToGPS converts a UTC instant to seconds since the GPS epoch.
func UTCToGPS(t time.Time) float64 {
	var n int
	for _, l := range leaps {
		if !t.Before(l) {
			n++
		}
	}
	return t.Sub(GPSEpoch).Seconds() + float64(n)
}
