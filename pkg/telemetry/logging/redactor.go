package logging

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"mercator-hq/tagstream/pkg/config"
)

// Redactor masks credentials and, optionally, resource identifiers in log
// fields.
type Redactor struct {
	patterns []*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternOCID        = "ocid"
	PatternBearerToken = "bearer_token"
	PatternSignature   = "signature"
	PatternPrivateKey  = "private_key"
	PatternPassword    = "password"
)

// ocidPattern matches an OCID and keeps everything but the unique suffix:
// ocid1.<type>.<realm>.<region>[.<future>].<unique>
var ocidPattern = regexp.MustCompile(`\b(ocid1\.[a-z0-9_]+\.[a-z0-9-]+\.[a-z0-9-]*(?:\.[a-z0-9-]+)?)\.[a-z0-9]{6,}\b`)

// defaultPatterns are always applied.
var defaultPatterns = []*redactPattern{
	{
		name:        PatternBearerToken,
		regex:       regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`),
		replacement: "Bearer ***",
	},
	{
		// Authorization: Signature version="1",keyId="...",signature="..."
		name:        PatternSignature,
		regex:       regexp.MustCompile(`(signature|keyId)="[^"]*"`),
		replacement: `$1="***"`,
	},
	{
		name:        PatternPrivateKey,
		regex:       regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`),
		replacement: "***PRIVATE KEY***",
	},
	{
		name:        PatternPassword,
		regex:       regexp.MustCompile(`(password|passphrase|pass_phrase)[:=]\s*[^\s]+`),
		replacement: "$1: ***",
	},
}

// NewRedactor creates a Redactor with the built-in patterns, the OCID
// pattern when redactOCIDs is set, and custom patterns.
func NewRedactor(redactOCIDs bool, custom []config.RedactPattern) (*Redactor, error) {
	r := &Redactor{patterns: append([]*redactPattern(nil), defaultPatterns...)}

	if redactOCIDs {
		r.patterns = append(r.patterns, &redactPattern{
			name:        PatternOCID,
			regex:       ocidPattern,
			replacement: "$1.***",
		})
	}

	for _, p := range custom {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid redact pattern %q: %w", p.Name, err)
		}
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: p.Replacement,
		})
	}

	return r, nil
}

// RedactString redacts a string value.
func (r *Redactor) RedactString(value string) string {
	if r == nil || value == "" {
		return value
	}

	redacted := value
	for _, pattern := range r.patterns {
		redacted = pattern.regex.ReplaceAllString(redacted, pattern.replacement)
	}
	return redacted
}

// RedactAttr redacts a log attribute. Sensitive keys are masked entirely;
// strings and errors are matched against the patterns; groups are walked.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	if r == nil {
		return a
	}

	v := a.Value.Resolve()

	if isSensitiveKey(a.Key) && v.Kind() != slog.KindGroup {
		return slog.String(a.Key, "***")
	}

	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindGroup:
		group := v.Group()
		out := make([]slog.Attr, len(group))
		for i, ga := range group {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// isSensitiveKey checks if a key name indicates sensitive data.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)

	sensitiveKeys := []string{
		"password", "passphrase", "pass_phrase",
		"secret", "token",
		"authorization",
		"private_key", "privatekey", "key_content",
	}

	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// RedactOCID masks the unique suffix of a single OCID, keeping its type,
// realm and region visible. Strings that are not OCIDs are returned as is.
func RedactOCID(id string) string {
	return ocidPattern.ReplaceAllString(id, "$1.***")
}
