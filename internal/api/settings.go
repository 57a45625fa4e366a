package api

import (
	"github.com/waqtapp/waqt/internal/settings"
	"github.com/waqtapp/waqt/pkg/prayer"
)

// Settings returns the current settings snapshot.
func (a *Api) Settings() settings.Snapshot {
	return a.settings.Snapshot()
}

func (a *Api) SetProfile(name, email string) settings.Snapshot {
	return a.settings.SetProfile(settings.Profile{Name: name, Email: email})
}

func (a *Api) SetLocation(c prayer.Coordinates) (settings.Snapshot, error) {
	return a.settings.SetLocation(c)
}

func (a *Api) SetJuristicMethod(s string) (settings.Snapshot, error) {
	j, err := prayer.ParseJuristicMethod(s)
	if err != nil {
		return settings.Snapshot{}, err
	}
	return a.settings.SetJuristicMethod(j)
}

func (a *Api) SetCalculationMethod(s string) (settings.Snapshot, error) {
	m, err := prayer.ParseCalculationMethod(s)
	if err != nil {
		return settings.Snapshot{}, err
	}
	return a.settings.SetCalculationMethod(m)
}

func (a *Api) UpdateOffset(id string, minutes int) (settings.Snapshot, error) {
	p, err := prayer.ParseID(id)
	if err != nil {
		return settings.Snapshot{}, err
	}
	return a.settings.UpdateOffset(p, minutes)
}

func (a *Api) ResetOffsets() settings.Snapshot {
	return a.settings.ResetOffsets()
}

func (a *Api) CompleteOnboarding() settings.Snapshot {
	return a.settings.MarkOnboardingComplete()
}

// Methods lists the supported calculation methods.
func (a *Api) Methods() []prayer.Method {
	return prayer.Methods
}
