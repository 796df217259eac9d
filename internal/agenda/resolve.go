package agenda

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimetableExhausted is returned when the daily schedule asks for more
// lesson slots than the weekday's timetable row provides. This is a data
// entry mismatch between schedule.csv and timetable.csv and must never be
// truncated away silently.
var ErrTimetableExhausted = errors.New("timetable row exhausted")

// slotCursor walks a weekday's ordered lesson slots. Making the positional
// consumption an explicit type keeps the exhaustion failure mode visible.
type slotCursor struct {
	slots []*Lesson
	pos   int
}

func (c *slotCursor) next() (*Lesson, bool) {
	if c.pos >= len(c.slots) {
		return nil, false
	}
	l := c.slots[c.pos]
	c.pos++
	return l, true
}

// ResolveDay merges the daily schedule skeleton with date's timetable row.
//
// The Nth "lesson" entry of the skeleton binds to the Nth slot of the row;
// an empty slot drops the entry (free period). Sundays resolve to an empty
// agenda with no error; that one policy applies to queries and notification
// arming alike. Output preserves skeleton order.
func (s *Store) ResolveDay(date time.Time) ([]Event, error) {
	wd := date.In(s.loc).Weekday()
	if wd == time.Sunday {
		return nil, nil
	}
	cur := &slotCursor{slots: s.grid[(int(wd)+6)%7]} // Monday -> row 0

	out := make([]Event, 0, len(s.skeleton))
	for _, ev := range s.skeleton {
		if ev.Type != TypeLesson {
			out = append(out, ev)
			continue
		}
		lesson, ok := cur.next()
		if !ok {
			return nil, fmt.Errorf("%s %s at slot %d: %w",
				wd, ev.Start, cur.pos, ErrTimetableExhausted)
		}
		if lesson == nil {
			continue // free period, drop the placeholder
		}
		ev.Lesson = lesson
		out = append(out, ev)
	}
	return out, nil
}
