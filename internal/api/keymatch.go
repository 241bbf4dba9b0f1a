package api

import "strings"

// FullKeyLength is the length of every Humble Bundle order key.
const FullKeyLength = 16

// MatchKeys returns the keys starting with input, ignoring case. A full
// length input is returned as is without searching.
func MatchKeys(keys []string, input string) []string {
	if len(input) == FullKeyLength {
		return []string{input}
	}
	target := strings.ToLower(input)
	var matches []string
	for _, k := range keys {
		if strings.HasPrefix(strings.ToLower(k), target) {
			matches = append(matches, k)
		}
	}
	return matches
}

// FindKey resolves input to exactly one key.
func FindKey(keys []string, input string) (string, error) {
	matches := MatchKeys(keys, input)
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", &KeyMatchError{Input: input, Err: ErrNoMatch}
	default:
		return "", &KeyMatchError{Input: input, Candidates: matches, Err: ErrAmbiguousKey}
	}
}
