package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Manager keeps a Config in sync with a JSON file on disk. Watch mode uses it
// to pick up configuration edits without restarting the scheduler.
type Manager struct {
	path         string
	mu           sync.RWMutex
	cfg          Config
	watcher      *fsnotify.Watcher
	debounce     time.Duration
	onChange     func(Config)
	suppressSelf atomic.Bool
}

type managerOptions struct {
	configPath    string
	initialConfig *Config
	debounce      time.Duration
}

type ManagerOption func(*managerOptions)

func WithConfigPath(path string) ManagerOption {
	return func(o *managerOptions) {
		o.configPath = path
	}
}

func WithInitialConfig(cfg *Config) ManagerOption {
	return func(o *managerOptions) {
		o.initialConfig = cfg
	}
}

func NewManager(opts ...ManagerOption) (*Manager, error) {
	options := managerOptions{
		debounce: 300 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&options)
	}

	configPath := options.configPath
	if configPath == "" {
		var err error
		configPath, err = defaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	cfg, err := loadOrCreateConfig(configPath, options)
	if err != nil {
		return nil, err
	}

	return &Manager{
		path:     configPath,
		cfg:      cfg,
		debounce: options.debounce,
	}, nil
}

func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) UpdateFromJSON(jsonStr string) error {
	var cfg Config
	if err := json.Unmarshal([]byte(jsonStr), &cfg); err != nil {
		return fmt.Errorf("parse config json: %w", err)
	}
	return m.Update(cfg)
}

func (m *Manager) Update(newCfg Config) error {
	if err := newCfg.Validate(); err != nil {
		return err
	}

	m.mu.RLock()
	current := m.cfg
	m.mu.RUnlock()
	if reflect.DeepEqual(current, newCfg) {
		return nil
	}

	m.suppressSelf.Store(true)
	defer time.AfterFunc(m.debounce, func() { m.suppressSelf.Store(false) })

	if err := writeConfigFile(m.path, newCfg); err != nil {
		m.suppressSelf.Store(false)
		return err
	}

	m.applyConfig(newCfg)
	return nil
}

// Watch reloads the config when the file changes on disk. onChange is invoked
// with the new valid config after the debounce window.
func (m *Manager) Watch(ctx context.Context, onChange func(Config)) error {
	m.mu.Lock()
	m.onChange = onChange
	if m.watcher != nil {
		m.mu.Unlock()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.watcher = watcher
	debounce := m.debounce
	configPath := m.path
	m.mu.Unlock()

	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}

	go m.watchLoop(ctx, watcher, configPath, debounce)
	return nil
}

func (m *Manager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, configPath string, debounce time.Duration) {
	defer watcher.Close()

	var timerMu sync.Mutex
	var timer *time.Timer
	trigger := func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounce, m.reloadFromDisk)
		timerMu.Unlock()
	}

	for {
		select {
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !m.isConfigEvent(evt, configPath) {
				continue
			}
			if m.suppressSelf.Load() {
				continue
			}
			trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				log.Printf("config watcher error: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) isConfigEvent(evt fsnotify.Event, configPath string) bool {
	if filepath.Clean(evt.Name) != filepath.Clean(configPath) {
		return false
	}
	return evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (m *Manager) reloadFromDisk() {
	var cfg Config
	if err := loadConfigFromFile(m.path, &cfg); err != nil {
		log.Printf("config reload failed: %v", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("config validation failed: %v", err)
		return
	}

	m.mu.RLock()
	current := m.cfg
	m.mu.RUnlock()
	if reflect.DeepEqual(current, cfg) {
		return
	}
	m.applyConfig(cfg)
}

func (m *Manager) applyConfig(cfg Config) {
	m.mu.Lock()
	m.cfg = cfg
	cb := m.onChange
	m.mu.Unlock()

	if cb != nil {
		cb(cfg)
	}
}

func loadOrCreateConfig(path string, options managerOptions) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err == nil {
		if err := loadConfigFromFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return Config{}, err
		}
		return cfg, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("stat config: %w", err)
	}

	switch {
	case options.initialConfig != nil:
		cfg = *options.initialConfig
	default:
		cfg = *DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	if err := writeConfigFile(path, cfg); err != nil {
		return Config{}, fmt.Errorf("write initial config: %w", err)
	}

	return cfg, nil
}

func loadConfigFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, cfg)
}

func writeConfigFile(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".kabuto", "config.json"), nil
}
