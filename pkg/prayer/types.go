package prayer

import (
	"fmt"
	"strings"
	"time"
)

// ID identifies one of the five scheduled daily prayers.
type ID string

const (
	Fajr    ID = "fajr"
	Dhuhr   ID = "dhuhr"
	Asr     ID = "asr"
	Maghrib ID = "maghrib"
	Isha    ID = "isha"
)

// Sequence is the fixed display and rollover order of the daily prayers.
// An item's index in Sequence is its Order.
var Sequence = [...]ID{Fajr, Dhuhr, Asr, Maghrib, Isha}

// Info carries the display metadata of a prayer.
type Info struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

var infos = map[ID]Info{
	Fajr:    {Title: "Fajar", Description: "Pre-dawn serenity anchored in reflection."},
	Dhuhr:   {Title: "Zuhr", Description: "Midday pause that recenters intention."},
	Asr:     {Title: "Asr", Description: "Afternoon focus that keeps momentum grounded."},
	Maghrib: {Title: "Maghrib", Description: "Sunset gratitude embracing transition."},
	Isha:    {Title: "Isha", Description: "Night-time calm to close the day with dhikr."},
}

// Order returns the index of id in Sequence, or -1 if id is unknown.
func (id ID) Order() int {
	for i, s := range Sequence {
		if s == id {
			return i
		}
	}
	return -1
}

// Valid reports whether id is one of the five scheduled prayers.
func (id ID) Valid() bool { return id.Order() >= 0 }

// Info returns the display metadata of id.
func (id ID) Info() Info { return infos[id] }

// Label returns the display title of id.
func (id ID) Label() string { return infos[id].Title }

// ParseID parses a case-insensitive prayer identifier.
func ParseID(s string) (ID, error) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPrayer, s)
	}
	return id, nil
}

// Coordinates is a geographic location. Label is display-only and never
// takes part in any computation.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     string  `json:"label"`
}

// Validate checks the latitude and longitude ranges.
func (c Coordinates) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 || c.Latitude != c.Latitude {
		return fmt.Errorf("%w: latitude %v out of [-90, 90]", ErrInvalidCoordinates, c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 || c.Longitude != c.Longitude {
		return fmt.Errorf("%w: longitude %v out of [-180, 180]", ErrInvalidCoordinates, c.Longitude)
	}
	return nil
}

// DefaultLocation is used until the user picks a location.
var DefaultLocation = Coordinates{
	Latitude:  19.076,
	Longitude: 72.8777,
	Label:     "Mumbai, India",
}

// JuristicMethod selects the Asr shadow convention.
type JuristicMethod string

const (
	// Standard uses a shadow factor of 1 (the earlier Asr).
	Standard JuristicMethod = "STANDARD"
	// Hanafi uses a shadow factor of 2 (the later Asr).
	Hanafi JuristicMethod = "HANAFI"
)

// Valid reports whether j is a known juristic method.
func (j JuristicMethod) Valid() bool { return j == Standard || j == Hanafi }

// ShadowFactor returns the Asr shadow length multiplier.
func (j JuristicMethod) ShadowFactor() float64 {
	if j == Hanafi {
		return 2
	}
	return 1
}

// ParseJuristicMethod parses a case-insensitive juristic method.
func ParseJuristicMethod(s string) (JuristicMethod, error) {
	j := JuristicMethod(strings.ToUpper(strings.TrimSpace(s)))
	if !j.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownJuristicMethod, s)
	}
	return j, nil
}

// Offsets maps each prayer to a signed minute adjustment.
type Offsets map[ID]int

// DefaultOffsets returns a complete zero offset map.
func DefaultOffsets() Offsets {
	o := make(Offsets, len(Sequence))
	for _, id := range Sequence {
		o[id] = 0
	}
	return o
}

// Validate checks that o has exactly one entry per prayer.
func (o Offsets) Validate() error {
	for _, id := range Sequence {
		if _, ok := o[id]; !ok {
			return fmt.Errorf("%w: missing %s", ErrIncompleteOffsets, id)
		}
	}
	if len(o) != len(Sequence) {
		for id := range o {
			if !id.Valid() {
				return fmt.Errorf("%w: unexpected %q", ErrIncompleteOffsets, id)
			}
		}
	}
	return nil
}

// Clone returns an independent copy of o.
func (o Offsets) Clone() Offsets {
	c := make(Offsets, len(o))
	for k, v := range o {
		c[k] = v
	}
	return c
}

// IsZero reports whether every offset is zero.
func (o Offsets) IsZero() bool {
	for _, v := range o {
		if v != 0 {
			return false
		}
	}
	return true
}

// Item is one prayer of a computed day.
type Item struct {
	ID            ID        `json:"id"`
	Label         string    `json:"label"`
	BaseTime      time.Time `json:"baseTime"`
	AdjustedTime  time.Time `json:"adjustedTime"`
	OffsetMinutes int       `json:"offsetMinutes"`
	Order         int       `json:"order"`
}

// DaySchedule is the five items of one calendar date, sorted by Order.
type DaySchedule []Item

// MonthDay is one entry of a month timetable.
type MonthDay struct {
	Date     string      `json:"date"`
	Schedule DaySchedule `json:"schedule"`
}

// NextEvent points at the upcoming item. When every item of the day has
// passed, Item is the first prayer of the following day and RolledToNextDay
// is set.
type NextEvent struct {
	Item            Item `json:"item"`
	Index           int  `json:"index"`
	RolledToNextDay bool `json:"rolledToNextDay"`
}

// DateLayout is the calendar date layout used in month tables and trigger ids.
const DateLayout = "2006-01-02"

// Settings is the full input set of a schedule computation.
type Settings struct {
	Location Coordinates       `json:"location"`
	Offsets  Offsets           `json:"prayerOffsets"`
	Juristic JuristicMethod    `json:"juristicMethod"`
	Method   CalculationMethod `json:"calculationMethod"`
}
