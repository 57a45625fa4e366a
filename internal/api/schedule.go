package api

import (
	"time"

	"github.com/waqtapp/waqt/pkg/prayer"
)

// Day is one computed day with the inputs it was computed from.
type Day struct {
	Date              string                   `json:"date"`
	Location          prayer.Coordinates       `json:"location"`
	JuristicMethod    prayer.JuristicMethod    `json:"juristicMethod"`
	CalculationMethod prayer.CalculationMethod `json:"calculationMethod"`
	Sunrise           time.Time                `json:"sunrise"`
	Schedule          prayer.DaySchedule       `json:"schedule"`
}

// Month is every day of one calendar month.
type Month struct {
	Month string            `json:"month"`
	Days  []prayer.MonthDay `json:"days"`
}

// Next is the upcoming prayer with a countdown taken at At.
type Next struct {
	prayer.NextEvent
	At        time.Time `json:"at"`
	Countdown string    `json:"countdown"`
}

// Qibla is the direction of the Kaaba from the configured location.
type Qibla struct {
	Location prayer.Coordinates `json:"location"`
	Bearing  float64            `json:"bearing"`
	Compass  string             `json:"compass"`
}

// GetSchedule computes the schedule of forDate's calendar day, or today's
// when forDate is zero.
func (a *Api) GetSchedule(forDate time.Time) (*Day, error) {
	s := a.settings.Prayer()
	if forDate.IsZero() {
		forDate = a.calc.Now()
	}
	schedule, err := a.calc.ComputeSettings(s, forDate)
	if err != nil {
		return nil, err
	}
	sunrise, err := a.calc.Sunrise(s.Location, s.Method, s.Juristic, forDate)
	if err != nil {
		a.log.Warning("api: sunrise for %s: %v", forDate.Format(prayer.DateLayout), err)
	}
	return &Day{
		Date:              forDate.In(a.calc.Location()).Format(prayer.DateLayout),
		Location:          s.Location,
		JuristicMethod:    s.Juristic,
		CalculationMethod: s.Method,
		Sunrise:           sunrise,
		Schedule:          schedule,
	}, nil
}

// GetMonthSchedule computes every day of referenceMonth's month, or of the
// current month when referenceMonth is zero.
func (a *Api) GetMonthSchedule(referenceMonth time.Time) (*Month, error) {
	if referenceMonth.IsZero() {
		referenceMonth = a.calc.Now()
	}
	s := a.settings.Prayer()
	days, err := a.calc.ComputeMonth(s.Location, s.Offsets, s.Juristic, s.Method, referenceMonth)
	if err != nil {
		return nil, err
	}
	return &Month{Month: referenceMonth.In(a.calc.Location()).Format("2006-01"), Days: days}, nil
}

// GetNextEvent resolves the next prayer after now, or after the current
// instant when now is zero. It returns nil when there is nothing to resolve.
func (a *Api) GetNextEvent(now time.Time) (*Next, error) {
	if now.IsZero() {
		now = a.calc.Now()
	}
	schedule, err := a.calc.ComputeSettings(a.settings.Prayer(), now)
	if err != nil {
		return nil, err
	}
	next, ok := prayer.Resolve(schedule, now)
	if !ok {
		return nil, nil
	}
	return &Next{
		NextEvent: next,
		At:        now,
		Countdown: prayer.Countdown(next.Item.AdjustedTime, now),
	}, nil
}

// Qibla returns the Kaaba bearing from the configured location.
func (a *Api) Qibla() (*Qibla, error) {
	loc := a.settings.Snapshot().Location
	bearing, err := prayer.Qibla(loc)
	if err != nil {
		return nil, err
	}
	return &Qibla{Location: loc, Bearing: bearing, Compass: prayer.CompassPoint(bearing)}, nil
}
