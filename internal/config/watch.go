package config

import (
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch loads the configuration and re-decodes it whenever the backing file is
// written. onChange receives only configurations that pass Validate; an invalid
// edit is logged and ignored so the running process keeps its last good config.
//
// Only settings that are safe to swap at runtime (currently the log level) should
// be applied by onChange. Listener addresses and pool sizes require a restart.
func Watch(configPath string, onChange func(*Config)) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if v.ConfigFileUsed() == "" {
		return cfg, nil
	}

	// viper delivers change events from a single goroutine
	current := cfg
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := decode(v)
		if err != nil {
			slog.Warn("ignoring invalid configuration change", "file", e.Name, "error", err)
			return
		}
		if err := reloadable(current, next); err != nil {
			slog.Warn("configuration change only partially applied", "file", e.Name, "error", err)
		}
		current = next
		slog.Info("configuration reloaded", "file", e.Name)
		onChange(next)
	})
	v.WatchConfig()
	return cfg, nil
}

// reloadable reports whether the difference between two configurations can be
// applied without a restart.
func reloadable(prev, next *Config) error {
	if prev.Server != next.Server {
		return fmt.Errorf("server settings changed; restart required")
	}
	if prev.Database != next.Database {
		return fmt.Errorf("database settings changed; restart required")
	}
	return nil
}
