package prayer

import (
	"fmt"
	"math"
	"time"
)

// BaseTimes are the unadjusted instants of one day, expressed in the
// location of the requested date.
type BaseTimes struct {
	Fajr    time.Time
	Sunrise time.Time
	Dhuhr   time.Time
	Asr     time.Time
	Maghrib time.Time
	Isha    time.Time
}

// Of returns the base instant of a scheduled prayer.
func (b BaseTimes) Of(id ID) time.Time {
	switch id {
	case Fajr:
		return b.Fajr
	case Dhuhr:
		return b.Dhuhr
	case Asr:
		return b.Asr
	case Maghrib:
		return b.Maghrib
	case Isha:
		return b.Isha
	}
	return time.Time{}
}

// Solver turns a location, calendar date and parameter set into base times.
// Implementations must be deterministic.
type Solver interface {
	BaseTimes(c Coordinates, date time.Time, p Params) (BaseTimes, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(c Coordinates, date time.Time, p Params) (BaseTimes, error)

func (f SolverFunc) BaseTimes(c Coordinates, date time.Time, p Params) (BaseTimes, error) {
	return f(c, date, p)
}

// sunriseAngle accounts for refraction and the solar disc radius.
const sunriseAngle = 0.833

// AstronomicalSolver computes prayer times from the apparent solar position.
// When twilight angles are never reached (high latitudes in summer), Fajr and
// Isha fall back to the middle of the night. Results are rounded to the
// nearest minute.
type AstronomicalSolver struct{}

var _ Solver = AstronomicalSolver{}

func (AstronomicalSolver) BaseTimes(c Coordinates, date time.Time, p Params) (BaseTimes, error) {
	if err := c.Validate(); err != nil {
		return BaseTimes{}, err
	}
	y, m, d := date.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	jd := julianDay(y, int(m), d)
	day := solarDay{jd: jd, lat: c.Latitude, lng: c.Longitude}

	noon := day.noon(12 - c.Longitude/15)
	sunrise, ok := day.angleTime(sunriseAngle, noon, -1)
	if !ok {
		return BaseTimes{}, fmt.Errorf("%w: sunrise at %.4f,%.4f on %s", ErrUnresolvableSolarPosition, c.Latitude, c.Longitude, date.Format(DateLayout))
	}
	sunset, ok := day.angleTime(sunriseAngle, noon, 1)
	if !ok {
		return BaseTimes{}, fmt.Errorf("%w: sunset at %.4f,%.4f on %s", ErrUnresolvableSolarPosition, c.Latitude, c.Longitude, date.Format(DateLayout))
	}
	asr, ok := day.asrTime(p.ShadowFactor, noon)
	if !ok {
		return BaseTimes{}, fmt.Errorf("%w: asr at %.4f,%.4f on %s", ErrUnresolvableSolarPosition, c.Latitude, c.Longitude, date.Format(DateLayout))
	}

	halfNight := (24 - (sunset - sunrise)) / 2
	fajr, ok := day.angleTime(p.FajrAngle, noon, -1)
	if safe := sunrise - halfNight; !ok || fajr < safe {
		fajr = safe
	}
	var isha float64
	if p.IshaInterval > 0 {
		isha = sunset + p.IshaInterval.Hours()
	} else {
		isha, ok = day.angleTime(p.IshaAngle, noon, 1)
		if safe := sunset + halfNight; !ok || isha > safe {
			isha = safe
		}
	}

	at := func(hours float64) time.Time {
		return midnight.Add(time.Duration(hours * float64(time.Hour))).Round(time.Minute).In(date.Location())
	}
	return BaseTimes{
		Fajr:    at(fajr),
		Sunrise: at(sunrise),
		Dhuhr:   at(noon),
		Asr:     at(asr),
		Maghrib: at(sunset),
		Isha:    at(isha),
	}, nil
}

// solarDay evaluates solar events for one UTC calendar day. All times are
// fractional UTC hours from that day's midnight.
type solarDay struct {
	jd  float64
	lat float64
	lng float64
}

func (s solarDay) position(hours float64) (decl, eqt float64) {
	return sunPosition(s.jd + hours/24)
}

// noon refines the transit time starting from an estimate.
func (s solarDay) noon(estimate float64) float64 {
	t := estimate
	for i := 0; i < 2; i++ {
		_, eqt := s.position(t)
		t = 12 - s.lng/15 - eqt
	}
	return t
}

// angleTime returns the time the sun is angle degrees below the horizon,
// before transit for direction -1 and after it for 1.
func (s solarDay) angleTime(angle, noon float64, direction float64) (float64, bool) {
	t := noon
	for i := 0; i < 2; i++ {
		decl, _ := s.position(t)
		h, ok := hourAngle(-angle, s.lat, decl)
		if !ok {
			return 0, false
		}
		t = noon + direction*h
	}
	return t, true
}

func (s solarDay) asrTime(factor, noon float64) (float64, bool) {
	t := noon + 3
	for i := 0; i < 2; i++ {
		decl, _ := s.position(t)
		altitude := arccotDeg(factor + tanDeg(math.Abs(s.lat-decl)))
		h, ok := hourAngle(altitude, s.lat, decl)
		if !ok {
			return 0, false
		}
		t = noon + h
	}
	return t, true
}

// hourAngle returns the hours between transit and the sun reaching altitude.
func hourAngle(altitude, lat, decl float64) (float64, bool) {
	cos := (sinDeg(altitude) - sinDeg(lat)*sinDeg(decl)) / (cosDeg(lat) * cosDeg(decl))
	if cos < -1 || cos > 1 || math.IsNaN(cos) {
		return 0, false
	}
	return arccosDeg(cos) / 15, true
}

// sunPosition returns the solar declination in degrees and the equation of
// time in hours for a Julian day.
func sunPosition(jd float64) (decl, eqt float64) {
	d := jd - 2451545.0
	g := fixAngle(357.529 + 0.98560028*d)
	q := fixAngle(280.459 + 0.98564736*d)
	l := fixAngle(q + 1.915*sinDeg(g) + 0.020*sinDeg(2*g))
	e := 23.439 - 0.00000036*d

	ra := fixHour(arctan2Deg(cosDeg(e)*sinDeg(l), cosDeg(l)) / 15)
	eqt = q/15 - ra
	eqt -= 24 * math.Round(eqt/24)
	decl = arcsinDeg(sinDeg(e) * sinDeg(l))
	return decl, eqt
}

// julianDay returns the Julian day at 0h UT of a Gregorian date.
func julianDay(year, month, day int) float64 {
	if month <= 2 {
		year--
		month += 12
	}
	a := math.Floor(float64(year) / 100)
	b := 2 - a + math.Floor(a/4)
	return math.Floor(365.25*float64(year+4716)) + math.Floor(30.6001*float64(month+1)) + float64(day) + b - 1524.5
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }

func sinDeg(d float64) float64 { return math.Sin(deg2rad(d)) }
func cosDeg(d float64) float64 { return math.Cos(deg2rad(d)) }
func tanDeg(d float64) float64 { return math.Tan(deg2rad(d)) }

func arcsinDeg(x float64) float64     { return rad2deg(math.Asin(x)) }
func arccosDeg(x float64) float64     { return rad2deg(math.Acos(x)) }
func arccotDeg(x float64) float64     { return rad2deg(math.Atan(1 / x)) }
func arctan2Deg(y, x float64) float64 { return rad2deg(math.Atan2(y, x)) }

func fixAngle(a float64) float64 { return fix(a, 360) }
func fixHour(h float64) float64  { return fix(h, 24) }

func fix(a, b float64) float64 {
	a = a - b*math.Floor(a/b)
	if a < 0 {
		a += b
	}
	return a
}
