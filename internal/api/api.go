// Package api is the service facade shared by the RPC layer: schedule
// queries against the current settings, settings mutators and reminder
// management.
package api

import (
	"time"

	"github.com/waqtapp/waqt/internal/notify"
	"github.com/waqtapp/waqt/internal/settings"
	"github.com/waqtapp/waqt/pkg/logger"
	"github.com/waqtapp/waqt/pkg/prayer"
)

type Api struct {
	log        logger.Logger
	calc       *prayer.Calculator
	settings   *settings.Store
	reconciler *notify.Reconciler
}

func NewApi(l logger.Logger, calc *prayer.Calculator, s *settings.Store, r *notify.Reconciler) *Api {
	return &Api{
		log:        logger.OrNop(l),
		calc:       calc,
		settings:   s,
		reconciler: r,
	}
}

// Now returns the current instant in the schedule time zone.
func (a *Api) Now() time.Time { return a.calc.Now() }

// Location returns the schedule time zone.
func (a *Api) Location() *time.Location { return a.calc.Location() }

func (a *Api) Close() error {
	return a.settings.Close()
}
