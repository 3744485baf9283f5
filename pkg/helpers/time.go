package helpers

import (
	"context"
	"fmt"
	"strings"
	"time"

	mailtpl "github.com/oksasatya/fitness-onboarding/pkg/mailer/templates"
)

const mailTimeLayout = "02 January 2006, 15:04 MST"

// LocalizeTimesIfPossible rewrites the display times of an email job into the
// recipient's timezone, guessed from the request IP, and fills Location when
// the producer left it empty. Lookup failures leave data untouched.
func LocalizeTimesIfPossible(ctx context.Context, resolver mailtpl.GeoResolver, data map[string]any) {
	if resolver == nil || data == nil {
		return
	}
	ip := strings.TrimSpace(fmt.Sprint(data["IP"]))
	if ip == "" || ip == "<nil>" {
		return
	}
	g, err := resolver.Lookup(ctx, ip)
	if err != nil {
		return
	}
	if loc := strings.TrimSpace(fmt.Sprint(data["Location"])); loc == "" || loc == "<nil>" {
		if s := mailtpl.FormatGeo(g); s != "" {
			data["Location"] = s
		}
	}
	if strings.TrimSpace(g.Timezone) == "" {
		return
	}
	loc, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return
	}
	for src, dst := range map[string]string{"ExpiresAt": "ExpiresAtText", "TimeAt": "Time"} {
		if t, ok := parseTimeAny(data[src]); ok && !t.IsZero() {
			data[dst] = t.In(loc).Format(mailTimeLayout)
		}
	}
}

func parseTimeAny(v any) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t, true
	}
	s := fmt.Sprintf("%v", v)
	layouts := []string{
		time.RFC3339,
		"2006-01-02 15:04:05 -0700 MST",
		"2006-01-02 15:04:05 -0700",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
