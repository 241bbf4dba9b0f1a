package utils

import (
	"sort"
	"strconv"
	"strings"
)

// RangeError lists every item-number token that could not be parsed.
type RangeError struct {
	Tokens []string
}

func (e *RangeError) Error() string {
	return "invalid values: " + strings.Join(e.Tokens, ", ")
}

// ResolveRanges turns item-number expressions into a sorted set of 1-based
// indices. Supported forms are "N", "A-B", "-B" (from 1), "A-" (up to
// maxValue) and "-" (1 to maxValue). Ranges are clipped to maxValue.
// Without tokens the result is nil; tokens that are all blank are an error.
// Every malformed token is reported; nothing is returned on failure.
func ResolveRanges(tokens []string, maxValue int) ([]int, error) {
	var invalid []string
	seen := make(map[int]struct{})
	given := false
	for _, raw := range tokens {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}
		given = true
		lo, hi, ok := parseRange(token, maxValue)
		if !ok {
			invalid = append(invalid, raw)
			continue
		}
		for i := lo; i <= hi; i++ {
			seen[i] = struct{}{}
		}
	}
	if len(invalid) > 0 {
		return nil, &RangeError{Tokens: invalid}
	}
	if !given {
		if len(tokens) > 0 {
			return nil, &RangeError{Tokens: []string{strings.Join(tokens, ",")}}
		}
		return nil, nil
	}
	result := make([]int, 0, len(seen))
	for i := range seen {
		result = append(result, i)
	}
	sort.Ints(result)
	return result, nil
}

// SplitRanges splits a comma-separated expression such as "1,3-5,9-".
func SplitRanges(expr string) []string {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	return strings.Split(expr, ",")
}

func parseRange(token string, maxValue int) (int, int, bool) {
	left, right, isRange := strings.Cut(token, "-")
	if !isRange {
		n, ok := parseIndex(token)
		return n, min(n, maxValue), ok
	}
	lo, hi := 1, maxValue
	if left != "" {
		n, ok := parseIndex(left)
		if !ok {
			return 0, 0, false
		}
		lo = n
	}
	if right != "" {
		n, ok := parseIndex(right)
		if !ok {
			return 0, 0, false
		}
		hi = n
	}
	return lo, min(hi, maxValue), true
}

// item numbers start at 1
func parseIndex(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
