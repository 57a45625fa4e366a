package notify

import (
	"sort"
	"time"

	"github.com/waqtapp/waqt/pkg/prayer"
)

// TriggerSpec is a planned reminder.
type TriggerSpec struct {
	ID      string    `json:"id"`
	Prayer  prayer.ID `json:"prayer"`
	FiresAt time.Time `json:"firesAt"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`
}

// TriggerID is the stable id of the reminder for prayer id on the calendar
// date of adjusted (in adjusted's zone).
func TriggerID(id prayer.ID, adjusted time.Time) string {
	return "prayer-" + string(id) + "-" + adjusted.Format(prayer.DateLayout)
}

// Planner turns schedules into trigger specs. It is pure.
type Planner struct {
	msgs *Messages
}

func NewPlanner(msgs *Messages) *Planner {
	if msgs == nil {
		msgs = DefaultMessages()
	}
	return &Planner{msgs: msgs}
}

// Lead is how long before the adjusted time advance reminders fire.
func (p *Planner) Lead() time.Duration {
	return time.Duration(p.msgs.LeadMinutes) * time.Minute
}

// urgent prayers fire exactly at their adjusted time.
func urgent(id prayer.ID) bool { return id == prayer.Maghrib }

// FireTime returns when the reminder for item fires.
func (p *Planner) FireTime(item prayer.Item) time.Time {
	if urgent(item.ID) {
		return item.AdjustedTime
	}
	return item.AdjustedTime.Add(-p.Lead())
}

// Spec builds the trigger for item regardless of now.
func (p *Planner) Spec(item prayer.Item) TriggerSpec {
	tmpl := p.msgs.Advance
	if urgent(item.ID) {
		tmpl = p.msgs.Urgent
	}
	title, body := tmpl.render(item.Label, p.msgs.LeadMinutes)
	return TriggerSpec{
		ID:      TriggerID(item.ID, item.AdjustedTime),
		Prayer:  item.ID,
		FiresAt: p.FireTime(item),
		Title:   title,
		Body:    body,
	}
}

// Plan returns one spec per item whose fire time is after now, first
// occurrence of an id winning, sorted by fire time.
func (p *Planner) Plan(schedules []prayer.DaySchedule, now time.Time) []TriggerSpec {
	seen := make(map[string]bool)
	var specs []TriggerSpec
	for _, day := range schedules {
		for _, item := range day {
			spec := p.Spec(item)
			if !spec.FiresAt.After(now) || seen[spec.ID] {
				continue
			}
			seen[spec.ID] = true
			specs = append(specs, spec)
		}
	}
	sort.SliceStable(specs, func(i, j int) bool { return specs[i].FiresAt.Before(specs[j].FiresAt) })
	return specs
}
