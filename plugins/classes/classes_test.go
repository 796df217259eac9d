package classes

import (
	"testing"
	"time"
)

func TestParseWhen(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		arg     string
		want    time.Time
		wantErr bool
	}{
		{arg: "2026-09-03 14:30", want: time.Date(2026, 9, 3, 14, 30, 0, 0, time.UTC)},
		{arg: "2026-09-03", want: time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC)},
		{arg: "14:30", want: time.Date(2026, 9, 1, 14, 30, 0, 0, time.UTC)},
		{arg: "garbage", wantErr: true},
		{arg: "25:00", wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.arg, func(t *testing.T) {
			t.Parallel()
			got, err := parseWhen(tc.arg, now)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("parseWhen(%q): want error", tc.arg)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("parseWhen(%q) = %v, want %v", tc.arg, got, tc.want)
			}
		})
	}
}

func TestParseDay(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	if got, err := parseDay("+2", now); err != nil || got.Day() != 3 {
		t.Fatalf("+2: got %v err %v", got, err)
	}
	if got, err := parseDay("2026-09-05", now); err != nil || got.Day() != 5 {
		t.Fatalf("date: got %v err %v", got, err)
	}
	if _, err := parseDay("+x", now); err == nil {
		t.Fatal("+x: want error")
	}
	if _, err := parseDay("tomorrow", now); err == nil {
		t.Fatal("tomorrow: want error")
	}
}
