package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DefaultPath is where the Loader looks when no explicit path is given.
const DefaultPath = "config.yaml"

// ConfigError reports a failure to read or decode the configuration source.
type ConfigError struct {
	Op   string
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Loader holds the raw configuration document and exposes section and
// dotted-path access. Updates mutate only the in-memory copy; there is no
// write-back to disk.
type Loader struct {
	mu        sync.RWMutex
	path      string
	explicit  bool
	logger    *zap.Logger
	validator *Validator
	doc       map[string]any
}

// NewLoader builds a Loader for the given path. An empty path selects
// DefaultPath; if that file does not exist a warning is logged and an empty
// document is kept.
func NewLoader(path string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	return &Loader{path: path, explicit: explicit, logger: logger, validator: NewValidator(logger)}
}

// Load reads the configuration source once and validates it. A missing or
// malformed source yields a *ConfigError, except for the implicit default
// location, which is tolerated with a warning. A syntactically valid but
// empty source yields an empty document. A non-empty document that fails
// validation yields a *ConfigError listing the validation errors; warnings
// are logged but do not block loading.
func (l *Loader) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := os.Stat(l.path); err != nil {
		if l.explicit {
			return &ConfigError{Op: "read", Path: l.path, Err: err}
		}
		l.logger.Warn("default config file not found, using empty configuration",
			zap.String("path", l.path))
		l.doc = map[string]any{}
		return nil
	}

	v := viper.New()
	v.SetConfigFile(l.path)
	if err := v.ReadInConfig(); err != nil {
		return &ConfigError{Op: "parse", Path: l.path, Err: err}
	}
	settings := v.AllSettings()
	if len(settings) == 0 {
		l.logger.Warn("configuration source is empty", zap.String("path", l.path))
		l.doc = map[string]any{}
		return nil
	}
	if !l.validator.ValidateAll(settings) {
		return &ConfigError{
			Op:   "validate",
			Path: l.path,
			Err:  errors.New(strings.Join(l.validator.Errors(), "; ")),
		}
	}
	l.doc = settings
	l.logger.Info("configuration loaded", zap.String("path", l.path))
	return nil
}

// Reload re-reads the full document from the source.
func (l *Loader) Reload() error {
	l.logger.Info("reloading configuration", zap.String("path", l.path))
	return l.Load()
}

// Document returns the whole configuration document.
func (l *Loader) Document() (map[string]any, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.doc == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return l.doc, nil
}

// Section returns the named top-level section, failing when it is absent.
func (l *Loader) Section(name string) (map[string]any, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.doc == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	raw, ok := l.doc[name]
	if !ok {
		return nil, fmt.Errorf("config section not found: %s", name)
	}
	section, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("config section %s is not a mapping", name)
	}
	return section, nil
}

// Nested walks a dot-separated path and fails when any segment is missing.
func (l *Loader) Nested(path string) (any, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.doc == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	value, ok := walk(l.doc, path)
	if !ok {
		return nil, fmt.Errorf("config path not found: %s", path)
	}
	return value, nil
}

// NestedOr walks a dot-separated path and returns def when any segment is
// missing.
func (l *Loader) NestedOr(path string, def any) any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	value, ok := walk(l.doc, path)
	if !ok {
		return def
	}
	return value
}

// Update sets a key within a section on the in-memory document only.
func (l *Loader) Update(section, key string, value any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.doc == nil {
		l.doc = map[string]any{}
	}
	sec, ok := l.doc[section].(map[string]any)
	if !ok {
		sec = map[string]any{}
		l.doc[section] = sec
	}
	sec[key] = value
	l.logger.Info("configuration updated in memory",
		zap.String("section", section), zap.String("key", key))
}

func walk(doc map[string]any, path string) (any, bool) {
	if doc == nil {
		return nil, false
	}
	var current any = doc
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
