package models

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// HumbleChoice is the JSON blob embedded in the membership page.
type HumbleChoice struct {
	Options ChoiceOptions `json:"contentChoiceOptions"`
}

type ChoiceOptions struct {
	Data            ChoiceData `json:"contentChoiceData"`
	Gamekey         *string    `json:"gamekey,omitempty"`
	IsActiveContent bool       `json:"isActiveContent"`
	Title           string     `json:"title"`
}

type ChoiceData struct {
	GameData map[string]ChoiceGame `json:"game_data"`
}

type ChoiceGame struct {
	Title string       `json:"title"`
	Tpkds []ChoiceTpkd `json:"tpkds"`
}

type ChoiceTpkd struct {
	Gamekey        *string `json:"gamekey,omitempty"`
	HumanName      string  `json:"human_name"`
	RedeemedKeyVal *string `json:"redeemed_key_val,omitempty"`
}

// ClaimStatus is "-" for keys outside an active choice period.
func (t ChoiceTpkd) ClaimStatus() ClaimStatus {
	switch {
	case t.Gamekey != nil && t.RedeemedKeyVal != nil:
		return ClaimStatusYes
	case t.Gamekey != nil:
		return ClaimStatusNo
	}
	return ClaimStatusNotApplicable
}

// ChoicePeriod is "current" or a "month-year" slug such as "january-2023".
type ChoicePeriod string

func (p ChoicePeriod) Path() string {
	if p == "" || p == "current" {
		return "home"
	}
	return string(p)
}

var choiceMonths = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// ParseChoicePeriod accepts "current" or "<month name>-<year>".
func ParseChoicePeriod(s string) (ChoicePeriod, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "current" {
		return ChoicePeriod("current"), nil
	}
	month, yearStr, ok := strings.Cut(s, "-")
	if !ok || strings.Contains(yearStr, "-") {
		return "", fmt.Errorf("invalid period %q, expected {month name}-{year}", s)
	}
	if !slices.Contains(choiceMonths, month) {
		return "", fmt.Errorf("invalid month: %s", month)
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return "", fmt.Errorf("invalid year value %q: %w", yearStr, err)
	}
	if year < 2018 || year > 2030 {
		return "", fmt.Errorf("years out of 2018-2030 range are not supported")
	}
	return ChoicePeriod(fmt.Sprintf("%s-%d", month, year)), nil
}

// Games returns the game entries ordered by their map key.
func (d ChoiceData) Games() []ChoiceGame {
	keys := make([]string, 0, len(d.GameData))
	for k := range d.GameData {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	games := make([]ChoiceGame, 0, len(keys))
	for _, k := range keys {
		games = append(games, d.GameData[k])
	}
	return games
}
