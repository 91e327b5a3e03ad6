package template

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// baseFuncs returns the functions that do not depend on render state. The
// sprig library is the base; the entries below take precedence over it.
//
// contains, hasPrefix, hasSuffix, replace and split are the strings package
// functions, so the subject comes first: {{ contains .Host "db" }}. Sprig's
// pipeline order ({{ .Host | contains "db" }}) does not apply to them.
func baseFuncs() template.FuncMap {
	titleCaser := cases.Title(language.English)

	overrides := template.FuncMap{
		// String functions
		"lower":     strings.ToLower,
		"upper":     strings.ToUpper,
		"title":     titleCaser.String,
		"trimSpace": strings.TrimSpace,
		"contains":  strings.Contains,
		"hasPrefix": strings.HasPrefix,
		"hasSuffix": strings.HasSuffix,
		"replace":   strings.ReplaceAll,
		"split":     strings.Split,

		// Formatting functions
		"indent": indent,

		// Host functions
		"JCString": jcString,
	}

	funcs := sprig.TxtFuncMap()
	for name, fn := range overrides {
		funcs[name] = fn
	}
	return funcs
}

// indent adds n spaces of indentation to each non-empty line.
func indent(n int, s string) string {
	prefix := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

// jcString returns s[start:end] with slice semantics that tolerate
// out-of-range and negative positions (counted from the end). Without end
// the rest of the string is returned.
func jcString(s any, start any, end ...any) (string, error) {
	if s == nil {
		return "", nil
	}
	str := fmt.Sprint(s)

	from, err := toInt(start)
	if err != nil {
		return "", fmt.Errorf("JCString start: %w", err)
	}
	to := len(str)
	if len(end) > 0 && end[0] != nil {
		if to, err = toInt(end[0]); err != nil {
			return "", fmt.Errorf("JCString end: %w", err)
		}
	}

	from = clampIndex(from, len(str))
	to = clampIndex(to, len(str))
	if from >= to {
		return "", nil
	}
	return str[from:to], nil
}

func clampIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	return max(0, min(i, n))
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case int32:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(n))
	default:
		return 0, fmt.Errorf("not an integer: %v", v)
	}
}

// toStrings accepts a list or a comma separated string of host names.
func toStrings(v any) []string {
	switch list := v.(type) {
	case nil:
		return nil
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		var out []string
		for _, item := range strings.Split(list, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}
