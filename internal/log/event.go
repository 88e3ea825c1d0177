package log

import (
	"context"
	"log/slog"
	"strings"
)

const redacted = "[REDACTED]"

// sensitiveKeys are matched as substrings of the lowercased attribute key.
var sensitiveKeys = []string{"token", "secret", "password", "authorization", "api_key"}

// Event writes a structured domain event. The event name is stored under
// "event"; fields whose key looks like a credential are redacted.
func (l *Logger) Event(ctx context.Context, name string, fields map[string]any) {
	attrs := make([]slog.Attr, 0, len(fields)+1)
	attrs = append(attrs, slog.String("event", name))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, RedactValue(k, v)))
	}
	l.Logger.LogAttrs(ctx, slog.LevelInfo, name, attrs...)
}

// RedactValue hides v when key names a credential.
func RedactValue(key string, v any) any {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return redacted
		}
	}
	return v
}
