// Package present derives human-readable titles, impact strings, and
// elapsed-duration strings from incident and alert data. All functions are
// pure; none touch stores or mutate their inputs.
package present

import (
	"fmt"
	"strings"
	"time"

	"github.com/vladvaleanu/nxforge-correlator/internal/domain"
)

// maxTitleLen is the cap on single-alert titles: 97 visible characters
// plus a trailing "...".
const maxTitleLen = 100

// Title derives an incident title from an alert group. A single-alert group
// takes the alert's message, truncated to 100 characters with a trailing
// ellipsis when longer. A multi-alert group takes the form
// "{count} {Humanized Source} Alerts".
func Title(g *domain.AlertGroup) string {
	if len(g.Alerts) == 1 {
		return truncate(g.Alerts[0].Message, maxTitleLen)
	}
	return fmt.Sprintf("%d %s Alerts", len(g.Alerts), HumanizeSource(g.Source))
}

// HumanizeSource turns a machine source name into display form:
// hyphens become spaces and each word is title-cased
// ("power-meter" -> "Power Meter").
func HumanizeSource(source string) string {
	words := strings.Split(strings.ReplaceAll(source, "-", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// impactLabels are examined in fixed priority order when building the
// impact string.
var impactLabels = []struct {
	key    string
	format string
}{
	{"zone", "Zone %s"},
	{"rack", "Rack %s"},
	{"device", "%s"},
}

// Impact derives a descriptive impact string from a group's shared labels.
// Present labels among zone, rack, and device contribute fragments joined
// with ", " and prefixed with "Affects ". When none are present the impact
// falls back to "Affects {source}".
func Impact(g *domain.AlertGroup) string {
	var parts []string
	for _, l := range impactLabels {
		if v, ok := g.SharedLabels[l.key]; ok {
			parts = append(parts, fmt.Sprintf(l.format, v))
		}
	}
	if len(parts) == 0 {
		return "Affects " + g.Source
	}
	return "Affects " + strings.Join(parts, ", ")
}

// Elapsed formats the wall-clock time elapsed since t. Not suitable for
// deterministic tests; use ElapsedAt with a fixed reference time instead.
func Elapsed(t time.Time) string {
	return ElapsedAt(t, time.Now().UTC())
}

// ElapsedAt formats the time elapsed between t and now:
// "{h}h {m}m" when at least an hour has passed, "{m}m {s}s" when at least
// a minute has passed, "{s}s" otherwise.
func ElapsedAt(t, now time.Time) string {
	elapsed := now.Sub(t)
	hours := int(elapsed.Hours())
	minutes := int(elapsed.Minutes())
	seconds := int(elapsed.Seconds())

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes%60)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	}
	return fmt.Sprintf("%ds", seconds)
}

// truncate caps s at max characters, replacing the tail with "..." when the
// input is longer. Operates on runes so multi-byte input is not split.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
