package notifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"classbot/internal/agenda"
	"classbot/internal/kit"
	"classbot/internal/scheduler"
	"classbot/internal/store"
)

type fakeAdapter struct {
	mu      sync.Mutex
	sent    []int64
	failFor map[int64]error
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                         { return nil }
func (f *fakeAdapter) UpdateMenuCommands(ctx context.Context, cmds []kit.BotCommand) error {
	return nil
}

func (f *fakeAdapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[to.ChatID]; err != nil {
		return kit.MessageRef{}, err
	}
	f.sent = append(f.sent, to.ChatID)
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(f.sent)}, nil
}

func (f *fakeAdapter) sentTo() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]int64(nil), f.sent...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

const lessonsYAML = "- shortname: math\n  name: Mathematics\n  links: []\n"
const timetableCSV = "math,math\nmath,math\nmath,math\nmath,math\nmath,math\nmath,math\n"
const scheduleCSV = `type,name,start_time,end_time
lesson,1st period,08:00,08:45
meal,Breakfast,08:45,09:00
lesson,2nd period,09:00,09:45
`

func testFixture(t *testing.T) (*Service, *scheduler.Service, *fakeAdapter, *store.Subscribers) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	ag, err := agenda.Load(agenda.Config{
		LessonsPath:   write("lessons.yaml", lessonsYAML),
		TimetablePath: write("timetable.csv", timetableCSV),
		SchedulePath:  write("schedule.csv", scheduleCSV),
		Timezone:      "UTC",
	})
	if err != nil {
		t.Fatalf("agenda.Load: %v", err)
	}
	subs, err := store.OpenSubscribers(filepath.Join(dir, "subscribers.txt"), log)
	if err != nil {
		t.Fatal(err)
	}
	sched := scheduler.New(scheduler.Config{Workers: 1, Location: time.UTC}, log)
	ad := &fakeAdapter{failFor: map[int64]error{}}
	n := New(Config{RatePerSec: 1000}, sched, ag, subs, ad, log)
	return n, sched, ad, subs
}

// futureMonday returns a Monday at least a week out, so every event start
// lies in the future regardless of when the test runs.
func futureMonday() time.Time {
	d := time.Now().UTC().AddDate(0, 0, 7)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func TestArmDayIdempotent(t *testing.T) {
	t.Parallel()
	n, sched, _, _ := testFixture(t)

	if err := n.ArmDay(context.Background(), futureMonday()); err != nil {
		t.Fatalf("ArmDay: %v", err)
	}
	first := sched.Armed()
	if len(first) != 3 {
		t.Fatalf("armed %d timers, want 3: %v", len(first), first)
	}
	if err := n.ArmDay(context.Background(), futureMonday()); err != nil {
		t.Fatalf("re-arm: %v", err)
	}
	second := sched.Armed()
	if len(second) != 3 {
		t.Fatalf("re-arm duplicated timers: %v", second)
	}
}

func TestArmDaySundayArmsNothing(t *testing.T) {
	t.Parallel()
	n, sched, _, _ := testFixture(t)
	sunday := futureMonday().AddDate(0, 0, 6)
	if err := n.ArmDay(context.Background(), sunday); err != nil {
		t.Fatalf("Sunday arm must not error: %v", err)
	}
	if got := sched.Armed(); len(got) != 0 {
		t.Fatalf("Sunday armed timers: %v", got)
	}
}

func TestArmDaySkipsAlreadyStarted(t *testing.T) {
	t.Parallel()
	n, sched, _, _ := testFixture(t)
	// Arming for a date far in the past: every start has passed, so nothing
	// may be armed (and nothing may fire immediately).
	if err := n.ArmDay(context.Background(), futureMonday().AddDate(0, 0, -14)); err != nil {
		t.Fatalf("ArmDay: %v", err)
	}
	if got := sched.Armed(); len(got) != 0 {
		t.Fatalf("past events were armed: %v", got)
	}
}

func TestBroadcastContinuesPastFailures(t *testing.T) {
	t.Parallel()
	n, _, ad, subs := testFixture(t)
	for _, id := range []int64{100, 200, 300} {
		if _, err := subs.Subscribe(id); err != nil {
			t.Fatal(err)
		}
	}
	ad.failFor[200] = errors.New("blocked by user")

	ev := agenda.Event{Type: "meal", Name: "Breakfast",
		Start: agenda.TimeOfDay{Hour: 8, Minute: 45}, End: agenda.TimeOfDay{Hour: 9}}
	if err := n.Broadcast(context.Background(), ev); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}
	got := ad.sentTo()
	if len(got) != 2 || got[0] != 100 || got[1] != 300 {
		t.Fatalf("delivered to %v, want [100 300]", got)
	}
}

func TestStartRegistersDailyRearm(t *testing.T) {
	t.Parallel()
	n, sched, _, _ := testFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	defer sched.Stop(context.Background())

	if err := n.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !sched.Remove(rearmJobName) {
		t.Fatal("daily rearm job was not registered")
	}
}
