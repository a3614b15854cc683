package discovery

import (
	"regexp"
	"strings"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
)

var (
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	stringLit    = regexp.MustCompile(`'(?:[^']|'')*'`)
)

// qualified matches an optionally schema-qualified, optionally quoted name.
func qualified(name string) string {
	n := regexp.QuoteMeta(name)
	return `(?:(?:"?\w+"?)\.)?(?:"` + n + `"|\b` + n + `\b)`
}

// Classify reports the strongest access a routine body makes of the named
// object: DELETE over UPDATE over INSERT, and SELECT for any other mention.
// Comments and string literals are ignored. ok is false when the body never
// mentions the name.
func Classify(body, name string) (kind impact.DependencyType, ok bool) {
	if name == "" {
		return impact.DependencyUnknown, false
	}
	text := stripNoise(body)
	q := qualified(name)

	patterns := []struct {
		kind impact.DependencyType
		re   *regexp.Regexp
	}{
		{impact.DependencyDelete, regexp.MustCompile(`(?i)\bDELETE\s+(?:FROM\s+)?` + q)},
		{impact.DependencyDelete, regexp.MustCompile(`(?i)\bTRUNCATE\s+(?:TABLE\s+)?` + q)},
		{impact.DependencyUpdate, regexp.MustCompile(`(?i)\bUPDATE\s+(?:ONLY\s+)?` + q)},
		{impact.DependencyUpdate, regexp.MustCompile(`(?i)\bMERGE\s+INTO\s+` + q)},
		{impact.DependencyInsert, regexp.MustCompile(`(?i)\bINSERT\s+INTO\s+` + q)},
		{impact.DependencySelect, regexp.MustCompile(`(?i)` + q)},
	}
	for _, p := range patterns {
		if p.re.MatchString(text) {
			return p.kind, true
		}
	}
	return impact.DependencyUnknown, false
}

func stripNoise(body string) string {
	body = blockComment.ReplaceAllString(body, " ")
	body = lineComment.ReplaceAllString(body, " ")
	body = stringLit.ReplaceAllString(body, "''")
	return strings.TrimSpace(body)
}
