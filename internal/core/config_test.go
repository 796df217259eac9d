package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validConfigYAML = `telegram:
  token: "123:abc"
  poll_timeout: 10s
timezone: UTC
data:
  lessons: ./lessons.yaml
  timetable: ./timetable.csv
  schedule: ./schedule.csv
  subscribers: ./subscriptors.txt
  allowlist: ./allowed.txt
logging:
  level: debug
  console: true
scheduler:
  workers: 2
  default_timeout: 30s
notify:
  rearm_at: "00:00:30"
  rate_per_sec: 3
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigLoad(t *testing.T) {
	t.Parallel()

	m := NewConfigManager(writeConfig(t, validConfigYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Scheduler.Workers != 2 {
		t.Fatalf("workers = %d", cfg.Scheduler.Workers)
	}
	if m.Get() != cfg {
		t.Fatal("Get did not return the loaded config")
	}
}

func TestConfigRejectsUnknownField(t *testing.T) {
	t.Parallel()

	m := NewConfigManager(writeConfig(t, validConfigYAML+"bogus: 1\n"))
	if _, err := m.Load(); err == nil {
		t.Fatal("want error for unknown top-level field")
	}
}

func TestConfigValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mangle  func(string) string
		wantErr string
	}{
		{
			name:    "negative workers",
			mangle:  func(s string) string { return strings.Replace(s, "workers: 2", "workers: -1", 1) },
			wantErr: "scheduler.workers",
		},
		{
			name:    "bad timezone",
			mangle:  func(s string) string { return strings.Replace(s, "timezone: UTC", "timezone: Mars/Olympus", 1) },
			wantErr: "timezone",
		},
		{
			name:    "missing data path",
			mangle:  func(s string) string { return strings.Replace(s, "allowlist: ./allowed.txt", `allowlist: ""`, 1) },
			wantErr: "data.allowlist",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m := NewConfigManager(writeConfig(t, tc.mangle(validConfigYAML)))
			_, err := m.Load()
			if err == nil {
				t.Fatal("want validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("err = %v, want mention of %s", err, tc.wantErr)
			}
		})
	}
}

func TestConfigRequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")

	yml := strings.Replace(validConfigYAML, `token: "123:abc"`, `token: ""`, 1)
	m := NewConfigManager(writeConfig(t, yml))
	if _, err := m.Load(); err == nil || !strings.Contains(err.Error(), "telegram.token") {
		t.Fatalf("err = %v, want telegram.token error", err)
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()

	if d, err := parseDurationOrDefault("x", "", 5); err != nil || d != 5 {
		t.Fatalf("empty: d=%v err=%v", d, err)
	}
	if d, err := parseDurationOrDefault("x", "2s", 0); err != nil || d.Seconds() != 2 {
		t.Fatalf("2s: d=%v err=%v", d, err)
	}
	if _, err := parseDurationOrDefault("x", "nope", 0); err == nil {
		t.Fatal("want parse error")
	}
}
