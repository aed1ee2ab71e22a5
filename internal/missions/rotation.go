// Package missions selects and times out the periodic mission subset.
package missions

import (
	"fmt"
	"math/rand"
	"time"

	"worksafe/internal/domain"
)

const (
	// DefaultWindow is how long a mission selection stays active.
	DefaultWindow = 14 * time.Hour
	// DefaultActiveCount is how many missions a rotation draws.
	DefaultActiveCount = 4
)

// Rotation is the persisted mission selection. It is stored as one document
// so a reader never sees a partially replaced set.
type Rotation struct {
	Anchor   time.Time        `json:"anchor"`
	Missions []domain.Mission `json:"missions"`
}

// Expired reports whether the rotation must be redrawn at now.
// A rotation without an anchor is always expired.
func (r Rotation) Expired(now time.Time, window time.Duration) bool {
	if r.Anchor.IsZero() {
		return true
	}
	return now.Sub(r.Anchor) >= window
}

// Ensure returns the rotation active at now. When current is expired a new
// selection of count missions is drawn from catalog without replacement, all
// completion flags start false, and the anchor moves to now. rotated reports
// whether a redraw happened. current is never modified.
func Ensure(now time.Time, catalog []domain.Mission, current Rotation, window time.Duration, count int, rnd *rand.Rand) (next Rotation, rotated bool) {
	if !current.Expired(now, window) {
		return current, false
	}
	return Draw(now, catalog, count, rnd), true
}

// Draw builds a fresh rotation anchored at now.
func Draw(now time.Time, catalog []domain.Mission, count int, rnd *rand.Rand) Rotation {
	if count > len(catalog) {
		count = len(catalog)
	}
	order := rnd.Perm(len(catalog))
	selected := make([]domain.Mission, 0, count)
	for _, idx := range order[:count] {
		m := catalog[idx]
		m.Completed = false
		selected = append(selected, m)
	}
	return Rotation{Anchor: now, Missions: selected}
}

// Remaining is the time left in the window, zero at or past expiry.
func Remaining(now, anchor time.Time, window time.Duration) time.Duration {
	if anchor.IsZero() {
		return 0
	}
	left := window - now.Sub(anchor)
	if left < 0 {
		return 0
	}
	return left
}

// FormatRemaining renders a countdown as "14h 3m 9s".
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%dh %dm %ds", total/3600, (total%3600)/60, total%60)
}

// Completion reports the effect of completing a mission.
type Completion struct {
	Mission domain.Mission
	// WasCompleted is the flag before the call. A reward is due only when it
	// was false.
	WasCompleted bool
}

// Rewardable reports whether this completion flipped the flag false to true.
func (c Completion) Rewardable() bool {
	return !c.WasCompleted
}

// Complete marks id as completed and returns the updated rotation. Completing
// an already completed mission leaves the rotation unchanged.
func Complete(r Rotation, id string) (Rotation, Completion, error) {
	for i, m := range r.Missions {
		if m.ID != id {
			continue
		}
		result := Completion{Mission: m, WasCompleted: m.Completed}
		if m.Completed {
			return r, result, nil
		}
		updated := make([]domain.Mission, len(r.Missions))
		copy(updated, r.Missions)
		updated[i].Completed = true
		result.Mission = updated[i]
		return Rotation{Anchor: r.Anchor, Missions: updated}, result, nil
	}
	return r, Completion{}, domain.ErrMissionNotFound
}

// Find returns the mission with id in the rotation.
func (r Rotation) Find(id string) (domain.Mission, bool) {
	for _, m := range r.Missions {
		if m.ID == id {
			return m, true
		}
	}
	return domain.Mission{}, false
}
