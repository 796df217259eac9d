// Package agenda loads the static lesson/timetable/schedule definitions and
// resolves them into the concrete event list for a calendar date.
package agenda

import (
	"fmt"
	"time"
)

// TypeLesson is the only skeleton entry type with special meaning: entries
// tagged with it are bound positionally against the weekday's timetable row.
// Every other type string (meal, break, ...) is opaque.
const TypeLesson = "lesson"

type Link struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Lesson is an immutable entry of the lesson dictionary, keyed by Shortname.
type Lesson struct {
	Shortname string `yaml:"shortname"`
	Name      string `yaml:"name"`
	Links     []Link `yaml:"links"`
}

// TimeOfDay is a naive wall-clock time. It is combined with a calendar date
// (and the configured location) only at resolution time.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay accepts "HH:MM" and "HH:MM:SS".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	var err error
	switch {
	case len(s) == 5:
		_, err = fmt.Sscanf(s, "%02d:%02d", &t.Hour, &t.Minute)
	case len(s) == 8:
		_, err = fmt.Sscanf(s, "%02d:%02d:%02d", &t.Hour, &t.Minute, &t.Second)
	default:
		return TimeOfDay{}, fmt.Errorf("time %q: want HH:MM or HH:MM:SS", s)
	}
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("time %q: %w", s, err)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 || t.Second < 0 || t.Second > 59 {
		return TimeOfDay{}, fmt.Errorf("time %q: out of range", s)
	}
	return t, nil
}

// Clock extracts the time-of-day of t (second precision).
func Clock(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return TimeOfDay{Hour: h, Minute: m, Second: s}
}

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

func (t TimeOfDay) daySeconds() int { return t.Hour*3600 + t.Minute*60 + t.Second }

func (t TimeOfDay) Before(u TimeOfDay) bool { return t.daySeconds() < u.daySeconds() }

// At anchors the time-of-day onto day's calendar date in loc.
func (t TimeOfDay) At(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.In(loc).Date()
	return time.Date(y, m, d, t.Hour, t.Minute, t.Second, 0, loc)
}

// Event is one time-boxed entry of a day. For resolved lesson events Lesson
// is non-nil; for skeleton placeholders and non-lesson events it is nil.
type Event struct {
	Type   string
	Name   string
	Start  TimeOfDay
	End    TimeOfDay
	Lesson *Lesson
}

func (e Event) IsLesson() bool { return e.Lesson != nil }

// TimeRange renders the "HH:MM-HH:MM" span used in messages.
func (e Event) TimeRange() string { return e.Start.String() + "-" + e.End.String() }
