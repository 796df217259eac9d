package store

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSubscribersMissingFileIsEmpty(t *testing.T) {
	t.Parallel()
	s, err := OpenSubscribers(filepath.Join(t.TempDir(), "subs.txt"), discard())
	if err != nil {
		t.Fatalf("OpenSubscribers: %v", err)
	}
	if got := s.Snapshot(); len(got) != 0 {
		t.Fatalf("snapshot = %v, want empty", got)
	}
}

func TestSubscribeRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "subs.txt")
	if err := os.WriteFile(path, []byte("100\n200\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := OpenSubscribers(path, discard())
	if err != nil {
		t.Fatalf("OpenSubscribers: %v", err)
	}

	added, err := s.Subscribe(300)
	if err != nil || !added {
		t.Fatalf("Subscribe(300) = %v, %v; want newly added", added, err)
	}
	if added, _ := s.Subscribe(300); added {
		t.Fatal("double subscribe must report already present")
	}
	if err := s.Unsubscribe(300); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	// Set equality with the pre-subscribe content.
	if got := s.Snapshot(); !reflect.DeepEqual(got, []int64{100, 200}) {
		t.Fatalf("snapshot = %v, want [100 200]", got)
	}

	// The file round-trips through a fresh open too.
	s2, err := OpenSubscribers(path, discard())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := s2.Snapshot(); !reflect.DeepEqual(got, []int64{100, 200}) {
		t.Fatalf("reloaded snapshot = %v", got)
	}
}

func TestUnsubscribeUnknownIsNoop(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "subs.txt")
	s, err := OpenSubscribers(path, discard())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Unsubscribe(42); err != nil {
		t.Fatalf("Unsubscribe on empty set: %v", err)
	}
	if _, err := os.Stat(path); err == nil {
		t.Fatal("noop unsubscribe should not create the file")
	}
}

func TestSubscribersRejectGarbage(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "subs.txt")
	if err := os.WriteFile(path, []byte("100\nnope\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenSubscribers(path, discard()); err == nil {
		t.Fatal("want error for non-numeric line")
	}
}

func TestAllowList(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "allowed.txt")
	content := "# staff chats\n-596626366 # test chat\n410684289\n\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := LoadAllowList(path)
	if err != nil {
		t.Fatalf("LoadAllowList: %v", err)
	}
	if a.Len() != 2 {
		t.Fatalf("Len = %d, want 2", a.Len())
	}
	if !a.Allowed(-596626366) || !a.Allowed(410684289) {
		t.Fatal("listed ids must be allowed")
	}
	if a.Allowed(1) {
		t.Fatal("unlisted id must be denied")
	}
}

func TestAllowListMalformed(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "allowed.txt")
	if err := os.WriteFile(path, []byte("abc\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAllowList(path); err == nil {
		t.Fatal("want error for malformed id")
	}
}
