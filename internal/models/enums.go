package models

import (
	"fmt"
	"strings"
)

type ClaimStatus int

const (
	ClaimStatusNotApplicable ClaimStatus = iota
	ClaimStatusYes
	ClaimStatusNo
)

func (c ClaimStatus) String() string {
	switch c {
	case ClaimStatusYes:
		return "Yes"
	case ClaimStatusNo:
		return "No"
	default:
		return "-"
	}
}

// ClaimFilter selects bundles in the list command.
type ClaimFilter string

const (
	ClaimFilterAll ClaimFilter = "all"
	ClaimFilterYes ClaimFilter = "yes"
	ClaimFilterNo  ClaimFilter = "no"
)

func ParseClaimFilter(s string) (ClaimFilter, error) {
	switch f := ClaimFilter(strings.ToLower(s)); f {
	case ClaimFilterAll, ClaimFilterYes, ClaimFilterNo:
		return f, nil
	}
	return "", fmt.Errorf("invalid claimed filter %q (valid: all, yes, no)", s)
}

func (f ClaimFilter) Keep(status ClaimStatus) bool {
	switch f {
	case ClaimFilterYes:
		return status == ClaimStatusYes
	case ClaimFilterNo:
		return status == ClaimStatusNo
	default:
		return true
	}
}

type MatchMode int

const (
	MatchModeAny MatchMode = iota
	MatchModeAll
)

func (m MatchMode) String() string {
	if m == MatchModeAll {
		return "all"
	}
	return "any"
}

func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(s) {
	case "any":
		return MatchModeAny, nil
	case "all":
		return MatchModeAll, nil
	}
	return 0, fmt.Errorf("invalid match mode %q (valid: any, all)", s)
}
