package dynvars

import (
	"cmp"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	conditionPattern = regexp.MustCompile(`^\s*(>=|<=|!=|==|=|>|<)\s*(.*?)\s*$`)
	floatPrefix      = regexp.MustCompile(`^\d+\.\d+`)
	intPrefix        = regexp.MustCompile(`^\d+`)
)

// ValidCondition reports whether condition has an operator and a value.
func ValidCondition(condition string) bool {
	return conditionPattern.MatchString(condition)
}

// Compare checks command output against a condition such as "> 2" or
// "= active". Multi-line output compares its line count. A single line is
// compared as a float, an integer or a string depending on how it starts.
func Compare(lines []string, condition string) (bool, error) {
	m := conditionPattern.FindStringSubmatch(condition)
	if m == nil {
		return false, fmt.Errorf("condition %q: expected an operator followed by a value", condition)
	}
	op, want := m[1], m[2]

	if len(lines) > 1 {
		n, err := strconv.Atoi(want)
		if err != nil {
			return false, fmt.Errorf("condition %q: line count needs an integer: %w", condition, err)
		}
		return compareOrdered(op, len(lines), n), nil
	}

	got := ""
	if len(lines) == 1 {
		got = strings.TrimSpace(lines[0])
	}

	if s := floatPrefix.FindString(got); s != "" {
		gotF, _ := strconv.ParseFloat(s, 64)
		wantF, err := strconv.ParseFloat(want, 64)
		if err != nil {
			return false, fmt.Errorf("condition %q: expected a number: %w", condition, err)
		}
		return compareOrdered(op, gotF, wantF), nil
	}

	if s := intPrefix.FindString(got); s != "" {
		gotI, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return false, fmt.Errorf("output %q: %w", got, err)
		}
		wantI, err := strconv.ParseInt(want, 10, 64)
		if err != nil {
			// "5" against "> 4.5" still makes sense as floats.
			wantF, ferr := strconv.ParseFloat(want, 64)
			if ferr != nil {
				return false, fmt.Errorf("condition %q: expected a number: %w", condition, err)
			}
			return compareOrdered(op, float64(gotI), wantF), nil
		}
		return compareOrdered(op, gotI, wantI), nil
	}

	return compareOrdered(op, got, strings.Trim(want, `"'`)), nil
}

func compareOrdered[T cmp.Ordered](op string, got, want T) bool {
	switch op {
	case ">=":
		return got >= want
	case "<=":
		return got <= want
	case ">":
		return got > want
	case "<":
		return got < want
	case "=", "==":
		return got == want
	case "!=":
		return got != want
	}
	return false
}
