// Package store holds the file-backed recipient state: the subscriber
// registry mutated at runtime and the static command allow-list.
package store

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Subscribers is the durable set of chat ids that receive event
// notifications. Persistence is one id per line; a missing file is an empty
// set. Every mutation rewrites the file through a temp file + rename so a
// crash mid-write never leaves a torn registry.
type Subscribers struct {
	log  *slog.Logger
	path string

	mu  sync.Mutex
	ids map[int64]struct{}
}

func OpenSubscribers(path string, log *slog.Logger) (*Subscribers, error) {
	ids, err := readIDFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("subscribers %s: %w", path, err)
	}
	return &Subscribers{log: log, path: path, ids: ids}, nil
}

// Subscribe adds chatID and reports whether it was newly added.
func (s *Subscribers) Subscribe(chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[chatID]; ok {
		return false, nil
	}
	s.ids[chatID] = struct{}{}
	if err := s.persistLocked(); err != nil {
		delete(s.ids, chatID)
		return false, err
	}
	s.log.Info("chat subscribed", slog.Int64("chat_id", chatID))
	return true, nil
}

func (s *Subscribers) Unsubscribe(chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[chatID]; !ok {
		return nil
	}
	delete(s.ids, chatID)
	if err := s.persistLocked(); err != nil {
		s.ids[chatID] = struct{}{}
		return err
	}
	s.log.Info("chat unsubscribed", slog.Int64("chat_id", chatID))
	return nil
}

// Snapshot returns the current ids, sorted for deterministic broadcasts.
func (s *Subscribers) Snapshot() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *Subscribers) persistLocked() error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".subscribers-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, id := range s.sortedLocked() {
		fmt.Fprintf(w, "%d\n", id)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *Subscribers) sortedLocked() []int64 {
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func readIDFile(path string) (map[int64]struct{}, error) {
	ids := map[int64]struct{}{}
	f, err := os.Open(path)
	if err != nil {
		return ids, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ids[id] = struct{}{}
	}
	return ids, sc.Err()
}
