package agenda

import (
	"fmt"
	"time"
)

// Classification splits a resolved agenda around a point in time.
type Classification struct {
	// Active holds every event whose interval contains the point,
	// [start, end) half-open: a point exactly at end is not active.
	Active []Event
	// Next is the first event with start >= the point, or nil. Scanning
	// stops at the first such event; later ones are never "next".
	Next *Event
}

// Classify walks events in order (the skeleton order contract) and collects
// the active set and the next upcoming event relative to at.
func Classify(events []Event, at time.Time) Classification {
	var c Classification
	now := Clock(at)
	for i, ev := range events {
		switch {
		case !now.Before(ev.Start) && now.Before(ev.End):
			c.Active = append(c.Active, ev)
		case !ev.Start.Before(now):
			c.Next = &events[i]
			return c
		}
	}
	return c
}

// ClassifyAt resolves at's date and classifies it in one step.
func (s *Store) ClassifyAt(at time.Time) (Classification, error) {
	events, err := s.ResolveDay(at)
	if err != nil {
		return Classification{}, err
	}
	return Classify(events, at), nil
}

// Until returns the wall-clock distance from at to the time-of-day t
// re-anchored onto at's calendar date, floored to whole seconds.
func Until(t TimeOfDay, at time.Time) time.Duration {
	d := t.At(at, at.Location()).Sub(at)
	return d.Truncate(time.Second)
}

// FormatDelta renders a duration as "Xm Ys". Flooring (not rounding) to the
// second is deliberate and matched by Until.
func FormatDelta(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%dm %ds", secs/60, secs%60)
}
