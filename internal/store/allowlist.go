package store

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// AllowList is the set of chat ids permitted to use gated commands, loaded
// from a text file: one id per line, anything after '#' is a comment. A
// loaded list is immutable; reloads build a new one.
type AllowList struct {
	ids map[int64]struct{}
}

func LoadAllowList(path string) (*AllowList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("allowlist %s: %w", path, err)
	}
	defer f.Close()

	ids := map[int64]struct{}{}
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		raw := sc.Text()
		if i := strings.IndexByte(raw, '#'); i >= 0 {
			raw = raw[:i]
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("allowlist %s line %d: %w", path, line, err)
		}
		ids[id] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("allowlist %s: %w", path, err)
	}
	return &AllowList{ids: ids}, nil
}

func (a *AllowList) Allowed(chatID int64) bool {
	_, ok := a.ids[chatID]
	return ok
}

func (a *AllowList) Len() int { return len(a.ids) }
