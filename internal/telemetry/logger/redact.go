package logger

import (
	"encoding/hex"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// KeyAttrName is the attribute under which cache keys are logged.
const KeyAttrName = "key"

// cacheKeyAttrs are attribute names that carry cache keys.
var cacheKeyAttrs = []string{KeyAttrName, "from", "to"}

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"auth",
	"bearer",
	"signature",
}

// Query parameters that sign a URL. A URL carrying any of them has its
// whole query string masked.
var signingParams = []string{
	"x-amz-signature",
	"x-goog-signature",
	"signature",
	"sig",
	"token",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// KeyAttr returns the attribute for logging a cache key.
func KeyAttr(key string) slog.Attr {
	return slog.String(KeyAttrName, key)
}

// redactSensitive checks if an attribute contains sensitive data
// and redacts it if necessary.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()

		// Signed URLs keep scheme, host and path.
		if masked, ok := maskSignedURL(strVal); ok {
			return slog.String(a.Key, masked)
		}

		// If key name suggests sensitive data and value is non-empty, fully redact
		if strVal != "" && IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
	}

	// Handle nested groups recursively
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

func isCacheKeyAttr(name string) bool {
	for _, k := range cacheKeyAttrs {
		if name == k {
			return true
		}
	}
	return false
}

// fingerprintAttr replaces a string value with its fingerprint.
func fingerprintAttr(a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	return slog.String(a.Key, Fingerprint(a.Value.String()))
}

// Fingerprint returns a short stable digest of value, suitable for
// correlating log lines without revealing the value.
func Fingerprint(value string) string {
	sum := blake2b.Sum256([]byte(value))
	return "fp:" + hex.EncodeToString(sum[:6])
}

// maskSignedURL masks the query string of a URL that carries a signing
// parameter. It reports false for anything else.
func maskSignedURL(value string) (string, bool) {
	if !strings.Contains(value, "://") || !strings.Contains(value, "?") {
		return "", false
	}
	u, err := url.Parse(value)
	if err != nil || u.RawQuery == "" {
		return "", false
	}

	signed := false
	for param := range u.Query() {
		p := strings.ToLower(param)
		for _, s := range signingParams {
			if p == s {
				signed = true
			}
		}
	}
	if !signed {
		return "", false
	}

	u.RawQuery = ""
	u.Fragment = ""
	return u.String() + "?***", true
}

// RedactString manually redacts a string value.
// Use this when you need to redact a value before logging.
func RedactString(value string) string {
	if masked, ok := maskSignedURL(value); ok {
		return masked
	}
	return value
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

// IsSensitiveValue checks if a value appears to be sensitive.
func IsSensitiveValue(value string) bool {
	_, ok := maskSignedURL(value)
	return ok
}
