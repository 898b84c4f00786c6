package transport

import (
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// AnalyticsQuery holds the optional query parameters of the analytics endpoint.
type AnalyticsQuery struct {
	// AsOf pins the reference instant; nil means now.
	AsOf *time.Time
}

// ParseAnalyticsQuery reads the as_of parameter.
func ParseAnalyticsQuery(args *fasthttp.Args) (AnalyticsQuery, error) {
	asOf, err := ParseInstant(string(args.Peek("as_of")))
	if err != nil {
		return AnalyticsQuery{}, fmt.Errorf("as_of: %w", err)
	}
	return AnalyticsQuery{AsOf: asOf}, nil
}

// ParseInstant accepts RFC 3339 or a plain date, read as midnight UTC. An
// empty value yields nil.
func ParseInstant(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%q is neither RFC 3339 nor YYYY-MM-DD", raw)
}
