// Package render turns resolved agenda data into outbound Telegram HTML.
// Markup stays out of internal/agenda: the core resolves and classifies,
// render decides how it looks.
package render

import (
	"time"

	"classbot/internal/agenda"
	"classbot/pkg/tgui"
)

// Divider separates consecutive events in a listing.
const Divider = "================\n"

const (
	nothingToday   = "Nothing else today, time to rest!"
	emptyAgenda    = "Empty :)"
	invalidArg     = "Could not parse that date, try e.g. 2026-09-01 or +2"
	noShoutingNote = "PLEASE don't shout!\n\n"
)

func InvalidArgument() string { return string(tgui.Esc(invalidArg)) }

func NoShoutingPrefix() string { return string(tgui.Esc(noShoutingNote)) }

// Event renders one event block (title line plus link lines for lessons).
func Event(e agenda.Event) tgui.H {
	if !e.IsLesson() {
		return tgui.B(e.Name) + " " + tgui.Esc(e.TimeRange()) + "\n"
	}
	out := tgui.Esc(e.Name) + " " + tgui.B(e.Lesson.Name) + " " + tgui.Esc(e.TimeRange()) + "\n"
	for _, l := range e.Lesson.Links {
		out += tgui.Link(l.Name, l.URL) + "\n"
	}
	return out
}

// Agenda renders the full event list for a day, or a canned placeholder for
// an empty day.
func Agenda(events []agenda.Event) string {
	if len(events) == 0 {
		return string(tgui.B(emptyAgenda))
	}
	parts := make([]tgui.H, len(events))
	for i, e := range events {
		parts[i] = Event(e)
	}
	return string(tgui.Join(tgui.Esc(Divider), parts...))
}

// Now renders the current/next classification at the given instant: every
// active event with its remaining time, else the next one with the waiting
// time, else the canned nothing-scheduled line.
func Now(c agenda.Classification, at time.Time) string {
	if len(c.Active) > 0 {
		parts := make([]tgui.H, len(c.Active))
		for i, e := range c.Active {
			left := agenda.FormatDelta(agenda.Until(e.End, at))
			parts[i] = Event(e) + tgui.Esc("Ends in: "+left)
		}
		return string(tgui.Join(tgui.Esc(Divider), parts...))
	}
	if c.Next != nil {
		wait := agenda.FormatDelta(agenda.Until(c.Next.Start, at))
		return string(Event(*c.Next) + tgui.Esc("Starts in: "+wait))
	}
	return string(tgui.Esc(nothingToday))
}
