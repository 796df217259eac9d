package render

import (
	"strings"
	"testing"
	"time"

	"classbot/internal/agenda"
)

func lessonEvent() agenda.Event {
	return agenda.Event{
		Type:  agenda.TypeLesson,
		Name:  "1st period",
		Start: agenda.TimeOfDay{Hour: 8},
		End:   agenda.TimeOfDay{Hour: 8, Minute: 45},
		Lesson: &agenda.Lesson{
			Shortname: "math",
			Name:      "Mathematics <advanced>",
			Links:     []agenda.Link{{Name: "Zoom", URL: "https://example.com/m?a=1&b=2"}},
		},
	}
}

func mealEvent() agenda.Event {
	return agenda.Event{
		Type:  "meal",
		Name:  "Breakfast",
		Start: agenda.TimeOfDay{Hour: 8, Minute: 45},
		End:   agenda.TimeOfDay{Hour: 9},
	}
}

func TestEventPlain(t *testing.T) {
	t.Parallel()
	got := string(Event(mealEvent()))
	if got != "<b>Breakfast</b> 08:45-09:00\n" {
		t.Fatalf("plain event = %q", got)
	}
}

func TestEventLessonEscapesAndLinks(t *testing.T) {
	t.Parallel()
	got := string(Event(lessonEvent()))
	if !strings.Contains(got, "<b>Mathematics &lt;advanced&gt;</b>") {
		t.Fatalf("lesson name not escaped/bold: %q", got)
	}
	if !strings.Contains(got, `<a href="https://example.com/m?a=1&amp;b=2">Zoom</a>`) {
		t.Fatalf("link missing or unescaped: %q", got)
	}
	if !strings.HasPrefix(got, "1st period ") {
		t.Fatalf("skeleton name should lead the line: %q", got)
	}
}

func TestAgendaDividerAndEmpty(t *testing.T) {
	t.Parallel()
	got := Agenda([]agenda.Event{lessonEvent(), mealEvent()})
	if !strings.Contains(got, "================") {
		t.Fatalf("listing lacks divider: %q", got)
	}
	if Agenda(nil) != "<b>Empty :)</b>" {
		t.Fatalf("empty agenda = %q", Agenda(nil))
	}
}

func TestNowVariants(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 8, 31, 8, 30, 0, 0, time.UTC)
	le := lessonEvent()
	me := mealEvent()

	active := Now(agenda.Classification{Active: []agenda.Event{le}, Next: &me}, at)
	if !strings.Contains(active, "Ends in: 15m 0s") {
		t.Fatalf("active rendering = %q", active)
	}

	upcoming := Now(agenda.Classification{Next: &me}, at)
	if !strings.Contains(upcoming, "Starts in: 15m 0s") {
		t.Fatalf("upcoming rendering = %q", upcoming)
	}

	idle := Now(agenda.Classification{}, at)
	if !strings.Contains(idle, "Nothing else today") {
		t.Fatalf("idle rendering = %q", idle)
	}
}
