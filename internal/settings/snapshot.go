package settings

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/waqtapp/waqt/pkg/prayer"
)

// StorageKey is the persisted key of the settings envelope.
const StorageKey = "waqt.settings"

// SchemaVersion is the version written by this build. Version 1 predates
// the calculation method field.
const SchemaVersion = 2

// ErrCorruptSnapshot is returned when the persisted envelope is not JSON.
var ErrCorruptSnapshot = errors.New("corrupt settings snapshot")

// Profile identifies the user to the optional remote backend.
type Profile struct {
	UserID string `json:"userId,omitempty"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
}

// Snapshot is the complete persisted settings state. Consumers receive it by
// value; only Store mutates it.
type Snapshot struct {
	Profile                Profile                  `json:"profile"`
	Location               prayer.Coordinates       `json:"location"`
	JuristicMethod         prayer.JuristicMethod    `json:"juristicMethod"`
	CalculationMethod      prayer.CalculationMethod `json:"calculationMethod"`
	PrayerOffsets          prayer.Offsets           `json:"prayerOffsets"`
	HasCompletedOnboarding bool                     `json:"hasCompletedOnboarding"`
	SchemaVersion          int                      `json:"schemaVersion"`
}

// Defaults returns the state of a fresh install.
func Defaults() Snapshot {
	return Snapshot{
		Location:          prayer.DefaultLocation,
		JuristicMethod:    prayer.Hanafi,
		CalculationMethod: prayer.DefaultCalculationMethod,
		PrayerOffsets:     prayer.DefaultOffsets(),
		SchemaVersion:     SchemaVersion,
	}
}

// Prayer returns the computation inputs of s.
func (s Snapshot) Prayer() prayer.Settings {
	return prayer.Settings{
		Location: s.Location,
		Offsets:  s.PrayerOffsets.Clone(),
		Juristic: s.JuristicMethod,
		Method:   s.CalculationMethod,
	}
}

func (s Snapshot) clone() Snapshot {
	s.PrayerOffsets = s.PrayerOffsets.Clone()
	return s
}

type envelope struct {
	State   json.RawMessage `json:"state"`
	Version int             `json:"version"`
}

// Encode serialises s in the current schema.
func Encode(s Snapshot) (string, error) {
	s.SchemaVersion = SchemaVersion
	state, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(envelope{State: state, Version: SchemaVersion})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Decode parses a persisted envelope and migrates it to SchemaVersion.
// Migration only fills fields that did not exist in the stored version.
// migrated reports whether the stored version was older.
func Decode(raw string) (s Snapshot, migrated bool, err error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return Snapshot{}, false, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if len(env.State) == 0 || string(env.State) == "null" {
		return Snapshot{}, false, fmt.Errorf("%w: missing state", ErrCorruptSnapshot)
	}
	if err := json.Unmarshal(env.State, &s); err != nil {
		return Snapshot{}, false, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	version := env.Version
	if version < 1 {
		version = 1
	}
	if version < 2 {
		s = migrateV1(s)
		migrated = true
	}
	s.SchemaVersion = SchemaVersion
	return s, migrated, nil
}

func migrateV1(s Snapshot) Snapshot {
	if s.CalculationMethod == "" {
		s.CalculationMethod = prayer.DefaultCalculationMethod
	}
	return s
}
