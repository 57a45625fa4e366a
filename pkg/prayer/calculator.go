package prayer

import (
	"fmt"
	"time"
)

// Calculator builds day and month schedules on top of a Solver.
type Calculator struct {
	solver Solver
	loc    *time.Location
	now    func() time.Time
}

// NewCalculator returns a Calculator that resolves dates in loc. A nil
// solver selects the AstronomicalSolver and a nil loc selects time.Local.
func NewCalculator(solver Solver, loc *time.Location) *Calculator {
	if solver == nil {
		solver = AstronomicalSolver{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Calculator{solver: solver, loc: loc, now: time.Now}
}

// SetClock replaces the clock used when no date is given.
func (c *Calculator) SetClock(now func() time.Time) { c.now = now }

// Location returns the civil time zone schedules are expressed in.
func (c *Calculator) Location() *time.Location { return c.loc }

// Now returns the current instant in the calculator's zone.
func (c *Calculator) Now() time.Time { return c.now().In(c.loc) }

// Compute returns the schedule for the calendar date of forDate in the
// calculator's zone. A zero forDate means today.
func (c *Calculator) Compute(location Coordinates, offsets Offsets, juristic JuristicMethod, method CalculationMethod, forDate time.Time) (DaySchedule, error) {
	if err := location.Validate(); err != nil {
		return nil, err
	}
	if err := offsets.Validate(); err != nil {
		return nil, err
	}
	params, err := MethodParams(method, juristic)
	if err != nil {
		return nil, err
	}
	if forDate.IsZero() {
		forDate = c.now()
	}
	y, m, d := forDate.In(c.loc).Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, c.loc)

	base, err := c.solver.BaseTimes(location, date, params)
	if err != nil {
		return nil, fmt.Errorf("solve %s: %w", date.Format(DateLayout), err)
	}
	schedule := make(DaySchedule, 0, len(Sequence))
	for i, id := range Sequence {
		t := base.Of(id)
		offset := offsets[id]
		schedule = append(schedule, Item{
			ID:            id,
			Label:         id.Label(),
			BaseTime:      t,
			AdjustedTime:  t.Add(time.Duration(offset) * time.Minute),
			OffsetMinutes: offset,
			Order:         i,
		})
	}
	return schedule, nil
}

// ComputeMonth returns one schedule per calendar day of the month that
// contains referenceMonth. A zero referenceMonth means the current month.
func (c *Calculator) ComputeMonth(location Coordinates, offsets Offsets, juristic JuristicMethod, method CalculationMethod, referenceMonth time.Time) ([]MonthDay, error) {
	if referenceMonth.IsZero() {
		referenceMonth = c.now()
	}
	y, m, _ := referenceMonth.In(c.loc).Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, c.loc)
	days := make([]MonthDay, 0, 31)
	for day := first; day.Month() == m; day = day.AddDate(0, 0, 1) {
		schedule, err := c.Compute(location, offsets, juristic, method, day)
		if err != nil {
			return nil, err
		}
		days = append(days, MonthDay{Date: day.Format(DateLayout), Schedule: schedule})
	}
	return days, nil
}

// Sunrise returns the unscheduled sunrise instant of forDate.
func (c *Calculator) Sunrise(location Coordinates, method CalculationMethod, juristic JuristicMethod, forDate time.Time) (time.Time, error) {
	params, err := MethodParams(method, juristic)
	if err != nil {
		return time.Time{}, err
	}
	if forDate.IsZero() {
		forDate = c.now()
	}
	y, m, d := forDate.In(c.loc).Date()
	base, err := c.solver.BaseTimes(location, time.Date(y, m, d, 0, 0, 0, 0, c.loc), params)
	if err != nil {
		return time.Time{}, err
	}
	return base.Sunrise, nil
}

// ComputeSettings is Compute with the inputs bundled in s.
func (c *Calculator) ComputeSettings(s Settings, forDate time.Time) (DaySchedule, error) {
	return c.Compute(s.Location, s.Offsets, s.Juristic, s.Method, forDate)
}
