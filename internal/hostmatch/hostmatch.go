// Package hostmatch selects spec scopes by testing their HostName pattern
// against the current host's short name.
//
// A pattern matches when it matches at the start of the host name; it does
// not have to consume the whole name. "web" matches both "web01" and
// "webserver". Authors anchor explicitly ("^web01$") for an exact match.
package hostmatch

import (
	"regexp"
	"sync"

	"github.com/venkatbhat62/JaaduConfig/internal/logging"
)

var (
	mu    sync.Mutex
	cache = make(map[string]*regexp.Regexp)
)

// Compile compiles pattern with start-of-string anchoring.
func Compile(pattern string) (*regexp.Regexp, error) {
	mu.Lock()
	defer mu.Unlock()

	if re, ok := cache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return nil, err
	}
	cache[pattern] = re
	return re, nil
}

// Matches reports whether pattern matches hostName from its first character.
// An invalid pattern is logged and never matches.
func Matches(pattern, hostName string) bool {
	re, err := Compile(pattern)
	if err != nil {
		logger := logging.GetLogger("hostmatch")
		logger.Warn().
			Err(err).
			Str("pattern", pattern).
			Msg("Invalid HostName pattern, scope skipped")
		return false
	}
	return re.MatchString(hostName)
}
