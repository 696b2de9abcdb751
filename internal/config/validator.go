package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var (
	semverPattern     = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	ipPattern         = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)
	domainPattern     = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)
	bucketNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*[a-z0-9]$`)
)

// contentSources are the selectors the crawler understands.
var contentSources = map[string]struct{}{
	"raw_html":     {},
	"cleaned_html": {},
	"fit_html":     {},
}

// Validator walks the raw configuration document and accumulates errors and
// warnings per section. A document is invalid iff the error list is
// non-empty; warnings never block validity.
type Validator struct {
	logger   *zap.Logger
	errors   []string
	warnings []string
}

// NewValidator builds a Validator.
func NewValidator(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{logger: logger}
}

// Errors returns a copy of the accumulated error list.
func (v *Validator) Errors() []string {
	return append([]string(nil), v.errors...)
}

// Warnings returns a copy of the accumulated warning list.
func (v *Validator) Warnings() []string {
	return append([]string(nil), v.warnings...)
}

func (v *Validator) errorf(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *Validator) warnf(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

// ValidateAll checks every known section. The error and warning lists are
// reset at the start of each call. Absent optional sections are skipped;
// absent database or storage sections are themselves errors.
func (v *Validator) ValidateAll(doc map[string]any) bool {
	v.errors = v.errors[:0]
	v.warnings = v.warnings[:0]

	if section, ok := sectionOf(doc, "app"); ok {
		v.validateApp(section)
	}
	if section, ok := sectionOf(doc, "server"); ok {
		v.validateServer(section)
	}
	if section, ok := sectionOf(doc, "database"); ok {
		v.validateDatabase(section)
	} else {
		v.errorf("missing required config section 'database'")
	}
	if section, ok := sectionOf(doc, "storage"); ok {
		v.validateStorage(section)
	} else {
		v.errorf("missing required config section 'storage'")
	}
	if section, ok := sectionOf(doc, "ai"); ok {
		v.validateAI(section)
	}
	if section, ok := sectionOf(doc, "crawl"); ok {
		v.validateCrawl(section)
	}
	if section, ok := sectionOf(doc, "logging"); ok {
		v.validateLogging(section)
	}

	v.report()
	return len(v.errors) == 0
}

func (v *Validator) validateApp(section map[string]any) {
	for _, field := range []string{"name", "version"} {
		if _, ok := section[field]; !ok {
			v.errorf("app config missing required field: %s", field)
		}
	}
	if version, ok := stringOf(section, "version"); ok && !semverPattern.MatchString(version) {
		v.warnf("app version is not semantic (x.y.z): %s", version)
	}
}

func (v *Validator) validateServer(section map[string]any) {
	if port, ok := intOf(section, "port"); ok && (port < 1 || port > 65535) {
		v.errorf("server port out of range: %d", port)
	}
	if workers, ok := intOf(section, "workers"); ok && workers < 1 {
		v.errorf("server workers must be >= 1: %d", workers)
	}
	if timeout, ok := floatOf(section, "timeout_seconds"); ok && timeout <= 0 {
		v.errorf("server timeout must be positive: %v", timeout)
	}
}

func (v *Validator) validateDatabase(section map[string]any) {
	for _, field := range []string{"host", "port", "name", "username", "password"} {
		if _, ok := section[field]; !ok {
			v.errorf("database config missing required field: %s", field)
		}
	}
	if port, ok := intOf(section, "port"); ok && (port < 1 || port > 65535) {
		v.errorf("database port out of range: %d", port)
	}
	if host, ok := stringOf(section, "host"); ok && !isValidHost(host) {
		v.warnf("database host format looks wrong: %s", host)
	}
	if pool, ok := sectionOf(section, "pool"); ok {
		if size, ok := intOf(pool, "size"); ok && size < 1 {
			v.errorf("database pool size must be >= 1: %d", size)
		}
		if overflow, ok := intOf(pool, "max_overflow"); ok && overflow < 0 {
			v.errorf("database pool max_overflow must be >= 0: %d", overflow)
		}
	}
}

func (v *Validator) validateStorage(section map[string]any) {
	if _, ok := section["provider"]; !ok {
		v.errorf("storage config missing required field: provider")
	}
	if endpoint, ok := stringOf(section, "endpoint"); ok && !isValidEndpoint(endpoint) {
		v.errorf("storage endpoint is not host:port: %s", endpoint)
	}
	if rawBuckets, ok := section["buckets"]; ok {
		buckets, ok := rawBuckets.(map[string]any)
		if !ok {
			v.errorf("storage buckets must be a mapping")
			return
		}
		for kind, raw := range buckets {
			name, _ := raw.(string)
			if !isValidBucketName(name) {
				v.errorf("storage bucket name invalid for %s: %q", kind, name)
			}
		}
	}
}

func (v *Validator) validateAI(section map[string]any) {
	providers, _ := sectionOf(section, "providers")
	if defaultProvider, ok := stringOf(section, "default_provider"); ok {
		if _, configured := providers[defaultProvider]; !configured {
			v.errorf("default AI provider %q is not configured", defaultProvider)
		}
	}
	for name, raw := range providers {
		providerCfg, ok := raw.(map[string]any)
		if !ok {
			v.errorf("ai provider %s config must be a mapping", name)
			continue
		}
		v.validateAIProvider(name, providerCfg)
	}
	if extraction, ok := sectionOf(section, "extraction"); ok {
		if maxLen, ok := intOf(extraction, "max_content_length"); ok && maxLen <= 0 {
			v.errorf("ai extraction max_content_length must be positive: %d", maxLen)
		}
	}
}

func (v *Validator) validateAIProvider(name string, section map[string]any) {
	// local_llm is the designated no-credential provider.
	if name != "local_llm" {
		key, present := stringOf(section, "api_key")
		switch {
		case !present:
			v.warnf("ai provider %s has no api_key configured", name)
		case strings.TrimSpace(key) == "":
			v.warnf("ai provider %s api_key is empty", name)
		}
	}
	if baseURL, ok := stringOf(section, "base_url"); ok && !isValidURL(baseURL) {
		v.errorf("ai provider %s base_url is invalid: %s", name, baseURL)
	}
	if maxTokens, ok := intOf(section, "max_tokens"); ok && maxTokens <= 0 {
		v.errorf("ai provider %s max_tokens must be positive: %d", name, maxTokens)
	}
	if temperature, ok := floatOf(section, "temperature"); ok && (temperature < 0 || temperature > 2) {
		v.errorf("ai provider %s temperature out of range [0, 2]: %v", name, temperature)
	}
}

func (v *Validator) validateCrawl(section map[string]any) {
	if raw, ok := section["content_sources"]; ok {
		sources, ok := raw.([]any)
		if !ok {
			v.errorf("crawl content_sources must be a list")
		} else {
			for _, rawSource := range sources {
				source, _ := rawSource.(string)
				if _, known := contentSources[source]; !known {
					v.warnf("unknown crawl content source: %s", source)
				}
			}
		}
	}
	if timeouts, ok := sectionOf(section, "timeout"); ok {
		for kind, raw := range timeouts {
			value, ok := toFloat(raw)
			if !ok || value <= 0 {
				v.errorf("crawl %s timeout must be positive: %v", kind, raw)
			}
		}
	}
}

func (v *Validator) validateLogging(section map[string]any) {
	if level, ok := stringOf(section, "level"); ok {
		switch strings.ToLower(level) {
		case "debug", "info", "warn", "warning", "error":
		default:
			v.errorf("invalid logging level: %s", level)
		}
	}
	if raw, ok := section["files"]; ok {
		if _, isMap := raw.(map[string]any); !isMap {
			v.errorf("logging files config must be a mapping")
		}
	}
}

// report logs the outcome. The distinction between fully valid and valid
// with warnings is informational only; callers rely on the boolean and the
// accumulated lists.
func (v *Validator) report() {
	for _, e := range v.errors {
		v.logger.Error("config validation error", zap.String("detail", e))
	}
	for _, w := range v.warnings {
		v.logger.Warn("config validation warning", zap.String("detail", w))
	}
	switch {
	case len(v.errors) > 0:
		v.logger.Error("configuration invalid", zap.Int("errors", len(v.errors)))
	case len(v.warnings) > 0:
		v.logger.Info("configuration valid with warnings", zap.Int("warnings", len(v.warnings)))
	default:
		v.logger.Info("configuration valid")
	}
}

func sectionOf(doc map[string]any, name string) (map[string]any, bool) {
	raw, ok := doc[name]
	if !ok {
		return nil, false
	}
	section, ok := raw.(map[string]any)
	return section, ok
}

func stringOf(section map[string]any, key string) (string, bool) {
	raw, ok := section[key]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

func intOf(section map[string]any, key string) (int, bool) {
	raw, ok := section[key]
	if !ok {
		return 0, false
	}
	switch n := raw.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

func floatOf(section map[string]any, key string) (float64, bool) {
	raw, ok := section[key]
	if !ok {
		return 0, false
	}
	return toFloat(raw)
}

func toFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func isValidHost(host string) bool {
	return ipPattern.MatchString(host) || domainPattern.MatchString(host)
}

func isValidEndpoint(endpoint string) bool {
	parts := strings.Split(endpoint, ":")
	if len(parts) != 2 {
		return false
	}
	port := 0
	if _, err := fmt.Sscanf(parts[1], "%d", &port); err != nil {
		return false
	}
	return isValidHost(parts[0]) && port >= 1 && port <= 65535
}

func isValidURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func isValidBucketName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	return bucketNamePattern.MatchString(name)
}
