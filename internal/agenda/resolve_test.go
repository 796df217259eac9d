package agenda

import (
	"errors"
	"testing"
	"time"
)

// 2026-08-31 is a Monday.
func monday(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
}

func TestResolveDayMonday(t *testing.T) {
	t.Parallel()
	s := testStore(t)

	// Monday row is [math, free]: first placeholder binds math, second pops
	// the free slot and is dropped. The meal passes through untouched.
	events, err := s.ResolveDay(monday(t))
	if err != nil {
		t.Fatalf("ResolveDay: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	first := events[0]
	if !first.IsLesson() || first.Lesson.Shortname != "math" {
		t.Fatalf("first event = %+v, want bound math lesson", first)
	}
	if first.Name != "1st period" || first.TimeRange() != "08:00-08:45" {
		t.Fatalf("lesson event kept wrong skeleton fields: %+v", first)
	}
	second := events[1]
	if second.IsLesson() || second.Type != "meal" || second.Name != "Breakfast" {
		t.Fatalf("second event = %+v, want the meal", second)
	}
}

func TestResolveDayKeepsSkeletonOrder(t *testing.T) {
	t.Parallel()
	s := testStore(t)

	// Tuesday row is [phys, math]: both placeholders bind, nothing dropped.
	events, err := s.ResolveDay(monday(t).AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("ResolveDay: %v", err)
	}
	want := []string{"1st period", "Breakfast", "2nd period"}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, name := range want {
		if events[i].Name != name {
			t.Fatalf("event %d = %q, want %q", i, events[i].Name, name)
		}
	}
	if events[0].Lesson.Shortname != "phys" || events[2].Lesson.Shortname != "math" {
		t.Fatalf("positional binding broken: %+v", events)
	}
}

func TestResolveDaySundayEmpty(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	events, err := s.ResolveDay(monday(t).AddDate(0, 0, 6))
	if err != nil {
		t.Fatalf("Sunday must not error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("Sunday agenda not empty: %+v", events)
	}
}

func TestResolveDayExhaustion(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// One slot per row, but the skeleton demands two lessons.
	s, err := Load(Config{
		LessonsPath:   writeFile(t, dir, "lessons.yaml", lessonsYAML),
		TimetablePath: writeFile(t, dir, "timetable.csv", "math\nmath\nmath\nmath\nmath\nmath\n"),
		SchedulePath:  writeFile(t, dir, "schedule.csv", scheduleCSV),
		Timezone:      "UTC",
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	_, err = s.ResolveDay(monday(t))
	if !errors.Is(err, ErrTimetableExhausted) {
		t.Fatalf("want ErrTimetableExhausted, got %v", err)
	}
}

func TestResolveDayWeekdayRowMapping(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	// Saturday row is [free, phys]: first placeholder dropped, second binds.
	events, err := s.ResolveDay(monday(t).AddDate(0, 0, 5))
	if err != nil {
		t.Fatalf("ResolveDay: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	if events[0].Type != "meal" {
		t.Fatalf("first kept event should be the meal, got %+v", events[0])
	}
	if !events[1].IsLesson() || events[1].Lesson.Shortname != "phys" {
		t.Fatalf("Saturday second period should bind phys, got %+v", events[1])
	}
}
