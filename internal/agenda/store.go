package agenda

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// gridRows is the number of timetable rows: Monday..Saturday. Sunday carries
// no lessons and has no row.
const gridRows = 6

// LoadError marks a malformed static definition. Load failures are fatal at
// startup: the process refuses to serve with a partially loaded timetable.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load %s: %v", e.File, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

type Config struct {
	LessonsPath   string
	TimetablePath string
	SchedulePath  string
	Timezone      string
}

// Store holds the loaded definitions. It is immutable after Load and safe
// for concurrent use.
type Store struct {
	lessons  map[string]*Lesson
	grid     [][]*Lesson // gridRows rows of optional slots
	skeleton []Event
	loc      *time.Location
}

func Load(cfg Config) (*Store, error) {
	loc := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		var err error
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("timezone %q: %w", tz, err)
		}
	}

	lessons, err := loadLessons(cfg.LessonsPath)
	if err != nil {
		return nil, err
	}
	grid, err := loadGrid(cfg.TimetablePath, lessons)
	if err != nil {
		return nil, err
	}
	skeleton, err := loadSkeleton(cfg.SchedulePath)
	if err != nil {
		return nil, err
	}
	return &Store{lessons: lessons, grid: grid, skeleton: skeleton, loc: loc}, nil
}

func (s *Store) Location() *time.Location { return s.loc }

// Skeleton returns the raw daily schedule as loaded (no lesson binding).
func (s *Store) Skeleton() []Event { return append([]Event(nil), s.skeleton...) }

func loadLessons(path string) (map[string]*Lesson, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Err: err}
	}
	var list []Lesson
	if err := yaml.Unmarshal(b, &list); err != nil {
		return nil, &LoadError{File: path, Err: err}
	}
	out := make(map[string]*Lesson, len(list))
	for i := range list {
		l := list[i]
		if strings.TrimSpace(l.Shortname) == "" {
			return nil, &LoadError{File: path, Err: fmt.Errorf("lesson %d: missing shortname", i)}
		}
		if strings.TrimSpace(l.Name) == "" {
			return nil, &LoadError{File: path, Err: fmt.Errorf("lesson %q: missing name", l.Shortname)}
		}
		if _, dup := out[l.Shortname]; dup {
			return nil, &LoadError{File: path, Err: fmt.Errorf("duplicate shortname %q", l.Shortname)}
		}
		out[l.Shortname] = &list[i]
	}
	return out, nil
}

func loadGrid(path string, lessons map[string]*Lesson) ([][]*Lesson, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{File: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // rows may have different slot counts

	var grid [][]*Lesson
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &LoadError{File: path, Err: err}
		}
		row := make([]*Lesson, 0, len(rec))
		for _, cell := range rec {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				row = append(row, nil) // free period
				continue
			}
			l, ok := lessons[cell]
			if !ok {
				return nil, &LoadError{File: path, Err: fmt.Errorf("row %d: unknown lesson %q", len(grid)+1, cell)}
			}
			row = append(row, l)
		}
		grid = append(grid, row)
	}
	if len(grid) != gridRows {
		return nil, &LoadError{File: path, Err: fmt.Errorf("want %d rows (Mon..Sat), got %d", gridRows, len(grid))}
	}
	return grid, nil
}

func loadSkeleton(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{File: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, &LoadError{File: path, Err: fmt.Errorf("header: %w", err)}
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, want := range []string{"type", "name", "start_time", "end_time"} {
		if _, ok := col[want]; !ok {
			return nil, &LoadError{File: path, Err: fmt.Errorf("header: missing column %q", want)}
		}
	}

	var events []Event
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &LoadError{File: path, Err: err}
		}
		ev := Event{
			Type: strings.TrimSpace(rec[col["type"]]),
			Name: strings.TrimSpace(rec[col["name"]]),
		}
		if ev.Start, err = ParseTimeOfDay(strings.TrimSpace(rec[col["start_time"]])); err != nil {
			return nil, &LoadError{File: path, Err: fmt.Errorf("line %d: %w", line, err)}
		}
		if ev.End, err = ParseTimeOfDay(strings.TrimSpace(rec[col["end_time"]])); err != nil {
			return nil, &LoadError{File: path, Err: fmt.Errorf("line %d: %w", line, err)}
		}
		if !ev.Start.Before(ev.End) {
			return nil, &LoadError{File: path, Err: fmt.Errorf("line %d: start %s not before end %s", line, ev.Start, ev.End)}
		}
		// Source order is the chronological contract; no re-sort anywhere.
		events = append(events, ev)
	}
	return events, nil
}
