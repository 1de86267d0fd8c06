// Package visibility applies role and scheduling rules on top of audience matching.
package visibility

import (
	"strings"
	"time"

	"notice_board/internal/audience"
	"notice_board/internal/model"
)

// Layouts accepted for the scheduled publish date and time.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var timeLayouts = []string{TimeLayout, "15:04:05"}

// Gate decides which notices a viewer may see. The zero value uses
// time.Now and UTC.
type Gate struct {
	Now      func() time.Time
	Location *time.Location
}

// New creates a Gate evaluating schedules in loc.
func New(loc *time.Location) *Gate {
	return &Gate{Now: time.Now, Location: loc}
}

// VisibleNotices returns the notices viewer may see, preserving input order.
//
// Admins see everything, including scheduled notices that are not live yet.
// Faculty see only their own notices. Students see notices whose audience
// includes them and which are live.
func (g *Gate) VisibleNotices(notices []model.Notice, viewer model.Viewer) []model.Notice {
	out := make([]model.Notice, 0, len(notices))
	for _, n := range notices {
		if g.CanView(n, viewer) {
			out = append(out, n)
		}
	}
	return out
}

// CanView reports whether a single notice is visible to viewer.
func (g *Gate) CanView(n model.Notice, viewer model.Viewer) bool {
	switch viewer.Role {
	case model.RoleAdmin:
		return true
	case model.RoleFaculty:
		return viewer.ID != "" && n.PublishedBy == viewer.ID
	case model.RoleStudent:
		return audience.Matches(n.Target, viewer.Profile) && g.IsLive(n)
	}
	return false
}

// IsLive reports whether n has reached its publish instant. Unscheduled
// notices are always live; a schedule that cannot be parsed never goes live.
func (g *Gate) IsLive(n model.Notice) bool {
	if !n.IsScheduled {
		return true
	}
	at, ok := ScheduledInstant(n, g.location())
	if !ok {
		return false
	}
	return !g.now().Before(at)
}

func (g *Gate) now() time.Time {
	if g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

func (g *Gate) location() *time.Location {
	if g.Location == nil {
		return time.UTC
	}
	return g.Location
}

// ScheduledInstant combines the scheduled date and time of n in loc.
// A missing or unparseable time means start of day. The second result is
// false when n has no parseable date.
func ScheduledInstant(n model.Notice, loc *time.Location) (time.Time, bool) {
	date, err := time.ParseInLocation(DateLayout, strings.TrimSpace(n.ScheduledPublishDate), loc)
	if err != nil {
		return time.Time{}, false
	}

	raw := strings.TrimSpace(n.ScheduledPublishTime)
	for _, layout := range timeLayouts {
		tod, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		return time.Date(date.Year(), date.Month(), date.Day(),
			tod.Hour(), tod.Minute(), tod.Second(), 0, loc), true
	}
	return date, true
}
