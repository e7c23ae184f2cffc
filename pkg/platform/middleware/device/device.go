// Package device derives a coarse "Browser on OS" label from the User-Agent
// for log attributes. It is never used for identification.
package device

import (
	"context"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

type contextKeyLabel struct{}

// Middleware stores the label of the request's User-Agent in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithLabel(r.Context(), Label(r.UserAgent()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetLabel retrieves the device label from the context, or "unknown".
func GetLabel(ctx context.Context) string {
	if label, ok := ctx.Value(contextKeyLabel{}).(string); ok && label != "" {
		return label
	}
	return "unknown"
}

// WithLabel injects a device label into a context.
// Useful for tests that don't run the full HTTP middleware chain.
func WithLabel(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, contextKeyLabel{}, label)
}

// Label turns a raw User-Agent into "Browser on OS", "bot" or "unknown".
func Label(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "unknown"
	}
	ua := useragent.New(raw)
	if ua.Bot() {
		return "bot"
	}
	browser, _ := ua.Browser()
	os := ua.OS()
	switch {
	case browser == "" && os == "":
		return "unknown"
	case os == "":
		return browser
	case browser == "":
		return os
	}
	return browser + " on " + os
}
