package logging

import (
	"log/slog"
	"strings"

	"go.uber.org/zap"
)

// Redacted replaces the value of every sensitive attribute.
const Redacted = "[REDACTED]"

var sensitiveKeys = map[string]struct{}{
	"token":         {},
	"password":      {},
	"passphrase":    {},
	"authorization": {},
}

// IsSensitive reports whether values logged under key must be hidden.
// Matching ignores case and also covers keys such as "auth_token".
func IsSensitive(key string) bool {
	k := strings.ToLower(key)
	if _, ok := sensitiveKeys[k]; ok {
		return true
	}
	return strings.HasSuffix(k, "_token") || strings.HasSuffix(k, "_password")
}

// RedactAttr is a slog.HandlerOptions.ReplaceAttr that hides sensitive
// values at any group depth.
func RedactAttr(_ []string, a slog.Attr) slog.Attr {
	if IsSensitive(a.Key) {
		return slog.String(a.Key, Redacted)
	}
	return a
}

// redactArgs rewrites a key-value list (as accepted by zap's *w methods)
// so that sensitive values never reach the core. args is not modified.
func redactArgs(args []any) []any {
	var out []any
	for i := 0; i < len(args); i++ {
		switch v := args[i].(type) {
		case zap.Field:
			if IsSensitive(v.Key) {
				out = ensureCopy(out, args)
				out[i] = zap.String(v.Key, Redacted)
			}
		case string:
			if i+1 < len(args) && IsSensitive(v) {
				out = ensureCopy(out, args)
				out[i+1] = Redacted
			}
			i++
		}
	}
	if out == nil {
		return args
	}
	return out
}

func ensureCopy(out, args []any) []any {
	if out != nil {
		return out
	}
	return append([]any(nil), args...)
}
