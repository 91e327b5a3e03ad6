package command

import (
	"regexp"
	"slices"
	"strings"
)

var (
	quotedPattern    = regexp.MustCompile(`'[^']*'|"[^"]*"`)
	separatorPattern = regexp.MustCompile(`[;|&]`)
	groupedPattern   = regexp.MustCompile(`\(([^()]+)\)`)
)

// quotedPlaceholder replaces quoted text so separators inside quotes are
// not treated as command boundaries.
const quotedPlaceholder = "__JCString__"

// IsSupported reports whether every command in a shell line is allowed.
//
// The line is split on ';', '|' and '&'. Each part is allowed when its first
// word, its first two words ("rpm -qa"), or a parenthesised first word such
// as "(hostname).Substring(0,3)" appears in allowed. On Windows the first
// word is compared lower-cased. The returned message lists the rejected
// commands.
func IsSupported(line string, allowed []string, osType string) (bool, string) {
	masked := quotedPattern.ReplaceAllString(line, quotedPlaceholder)

	ok := true
	var rejected []string
	for _, part := range separatorPattern.Split(masked, -1) {
		words := strings.Fields(part)
		if len(words) == 0 {
			continue
		}
		if partAllowed(words, allowed, osType) {
			continue
		}
		ok = false
		rejected = append(rejected, words[0])
	}

	if ok {
		return true, ""
	}
	return false, "unsupported command: " + strings.Join(rejected, ", ")
}

func partAllowed(words []string, allowed []string, osType string) bool {
	first := words[0]
	if osType == "Windows" {
		first = strings.ToLower(first)
	}
	if slices.Contains(allowed, first) {
		return true
	}
	if len(words) > 1 && slices.Contains(allowed, words[0]+" "+words[1]) {
		return true
	}
	if m := groupedPattern.FindStringSubmatch(first); m != nil {
		return slices.Contains(allowed, m[0]) || slices.Contains(allowed, m[1])
	}
	return false
}
