package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	yaml "go.yaml.in/yaml/v3"
)

type ConfigManager struct {
	path string

	mu   sync.RWMutex
	cfg  *Config
	subs []chan *Config
}

func NewConfigManager(path string) *ConfigManager {
	return &ConfigManager{path: path}
}

func (m *ConfigManager) Load() (*Config, error) {
	b, err := os.ReadFile(m.path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(b)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", m.path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", m.path, err)
	}
	m.mu.Lock()
	m.cfg = &cfg
	m.mu.Unlock()
	return &cfg, nil
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Telegram.Token) == "" && os.Getenv("TELEGRAM_TOKEN") == "" {
		return fmt.Errorf("telegram.token is required (or set TELEGRAM_TOKEN)")
	}
	if cfg.Scheduler.Workers < 0 {
		return fmt.Errorf("scheduler.workers must be >= 0")
	}
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("timezone: invalid %q: %w", tz, err)
		}
	}
	for name, p := range map[string]string{
		"data.lessons":     cfg.Data.Lessons,
		"data.timetable":   cfg.Data.Timetable,
		"data.schedule":    cfg.Data.Schedule,
		"data.subscribers": cfg.Data.Subscribers,
		"data.allowlist":   cfg.Data.AllowList,
	} {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%s is required", name)
		}
	}
	return nil
}

func (m *ConfigManager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *ConfigManager) Subscribe(buffer int) <-chan *Config {
	ch := make(chan *Config, buffer)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

func (m *ConfigManager) publish(cfg *Config) {
	m.mu.RLock()
	subs := append([]chan *Config{}, m.subs...)
	m.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- cfg:
		default:
			// slow subscriber; keep the watcher moving
		}
	}
}

// Watch republishes the config whenever the file changes on disk. Writes are
// debounced so a partial write never reaches subscribers.
func (m *ConfigManager) Watch(ctx context.Context) error {
	dir := filepath.Dir(m.path)
	file := filepath.Base(m.path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(250*time.Millisecond, func() {
			cfg, err := m.Load()
			if err == nil && cfg != nil {
				m.publish(cfg)
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-w.Events:
			if ev.Name == filepath.Join(dir, file) {
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					debounce()
				}
			}
		case <-w.Errors:
			// keep watching
		}
	}
}

func parseDurationOrDefault(name, raw string, def time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}
