// Package version normalizes free-form version strings into comparable
// canonical tokens. The server ships under two tagging schemes: weekly
// tags like "weekly.2024.15" on the nightly channel and semantic
// versions like "v1.2.3" on the stable channel.
package version

import (
	"regexp"
	"strings"
)

var (
	weeklyRe = regexp.MustCompile(`weekly\.\d{4}\.\d+`)
	semverRe = regexp.MustCompile(`\d+\.\d+\.\d+`)
)

// Canonicalize reduces raw to a comparable token. It returns "" when raw
// is empty or whitespace; a weekly tag or semver triple verbatim when one
// is embedded in raw; otherwise the trimmed, lowercased input with a
// single leading "v" or "v-" prefix stripped.
func Canonicalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if m := weeklyRe.FindString(raw); m != "" {
		return m
	}
	if m := semverRe.FindString(raw); m != "" {
		return m
	}

	s := strings.ToLower(raw)
	if rest, ok := strings.CutPrefix(s, "v-"); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(s, "v"); ok {
		return rest
	}
	return s
}

// IsUpToDate reports whether the installed version matches the target.
// Comparison is equality only; an unparseable side yields false so that
// an unknown state forces reconciliation instead of silently skipping it.
func IsUpToDate(current, target string) bool {
	c := Canonicalize(current)
	t := Canonicalize(target)
	if c == "" || t == "" {
		return false
	}
	return c == t
}
