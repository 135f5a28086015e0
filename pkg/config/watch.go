package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ChangeFunc receives each reloaded config, or the error that kept it from
// loading.
type ChangeFunc func(*Config, error)

// Watcher keeps the latest successfully loaded config for a file.
type Watcher struct {
	path string
	v    *viper.Viper

	mu      sync.RWMutex
	current *Config
}

// Watch loads path and reloads it whenever it changes on disk, calling fn
// after every reload attempt. fn runs on the watcher's goroutine and should
// only hand off work.
func Watch(path string, fn ChangeFunc) (*Watcher, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("watching config requires a file path")
	}
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	cfg, err := decode(v, path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{path: path, v: v, current: cfg}
	v.OnConfigChange(func(evt fsnotify.Event) {
		cfg, err := decode(v, path)
		if err == nil {
			w.mu.Lock()
			w.current = cfg
			w.mu.Unlock()
		} else {
			err = fmt.Errorf("reloading %s: %w", evt.Name, err)
		}
		if fn != nil {
			fn(cfg, err)
		}
	})
	v.WatchConfig()
	return w, nil
}

// Current returns the last config that loaded without error.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Path returns the watched file.
func (w *Watcher) Path() string { return w.path }
