package core

type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Timezone  string          `yaml:"timezone"`
	Data      DataConfig      `yaml:"data"`
	Logging   LoggingConfig   `yaml:"logging"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Notify    NotifyConfig    `yaml:"notify"`
}

type TelegramConfig struct {
	Token string `yaml:"token"`
	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `yaml:"poll_timeout"`
}

// DataConfig points at the static definitions and the file-backed state.
type DataConfig struct {
	Lessons     string `yaml:"lessons"`
	Timetable   string `yaml:"timetable"`
	Schedule    string `yaml:"schedule"`
	Subscribers string `yaml:"subscribers"`
	AllowList   string `yaml:"allowlist"`
}

type LoggingConfig struct {
	Level   string      `yaml:"level"`
	Console bool        `yaml:"console"`
	File    LoggingFile `yaml:"file"`
}

type LoggingFile struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type SchedulerConfig struct {
	Workers int `yaml:"workers"`
	// DefaultTimeout is a Go duration string; "0s" disables the global cap.
	DefaultTimeout string `yaml:"default_timeout"`
}

type NotifyConfig struct {
	// RearmAt is the daily re-arm instant, "HH:MM:SS" local time.
	RearmAt    string `yaml:"rearm_at"`
	RatePerSec int    `yaml:"rate_per_sec"`
}
