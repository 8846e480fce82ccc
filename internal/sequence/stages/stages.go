// Package stages defines the email follow-up sequence and the candidate
// windows used to find leads that became due for a stage.
package stages

import "time"

// Template names a sequence email; it is also the catalog key and the
// template_name stored in the send log.
type Template string

const (
	TemplateWelcome   Template = "welcome"
	TemplateFollowup1 Template = "followup_1"
	TemplateFollowup2 Template = "followup_2"
	TemplateFollowup3 Template = "followup_3"
)

// WindowTolerance is the half-width of every candidate window. It absorbs
// scheduler jitter; it is not configurable per stage.
const WindowTolerance = 30 * time.Minute

// Stage is one email of the sequence, due Offset after lead creation.
type Stage struct {
	Template Template      `json:"template"`
	Offset   time.Duration `json:"offset"`
}

var (
	Welcome   = Stage{Template: TemplateWelcome, Offset: 0}
	Followup1 = Stage{Template: TemplateFollowup1, Offset: 24 * time.Hour}
	Followup2 = Stage{Template: TemplateFollowup2, Offset: 48 * time.Hour}
	Followup3 = Stage{Template: TemplateFollowup3, Offset: 168 * time.Hour}
)

// Followups returns the scheduler-driven stages in ascending offset order.
func Followups() []Stage {
	return []Stage{Followup1, Followup2, Followup3}
}

// All returns every stage, welcome first.
func All() []Stage {
	return append([]Stage{Welcome}, Followups()...)
}

// Window is an inclusive creation-time range.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// WindowFor returns [now-offset-tolerance, now-offset+tolerance]: the leads
// whose creation time plus offset lies within tolerance of now.
func WindowFor(offset time.Duration, now time.Time) Window {
	anchor := now.Add(-offset)
	return Window{
		Start: anchor.Add(-WindowTolerance),
		End:   anchor.Add(WindowTolerance),
	}
}

// Contains reports whether t lies in the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
