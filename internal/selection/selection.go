// Package selection decides which products and files of a bundle get
// downloaded.
package selection

import (
	"strings"

	"github.com/tanq16/humble-cli/internal/models"
)

type Selection struct {
	// nil means every item; a non-nil empty set matches nothing
	itemIndices  map[int]struct{}
	formats      map[string]struct{}
	MaxSize      uint64
	TorrentsOnly bool
}

// New builds a Selection. itemIndices are 1-based positions as produced by
// utils.ResolveRanges; formats are compared case-insensitively.
func New(itemIndices []int, formats []string, maxSize uint64, torrentsOnly bool) Selection {
	s := Selection{MaxSize: maxSize, TorrentsOnly: torrentsOnly}
	if itemIndices != nil {
		s.itemIndices = make(map[int]struct{}, len(itemIndices))
		for _, i := range itemIndices {
			s.itemIndices[i] = struct{}{}
		}
	}
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if s.formats == nil {
			s.formats = make(map[string]struct{})
		}
		s.formats[f] = struct{}{}
	}
	return s
}

// Select keeps the products that pass the item, size and format tests, in
// catalog order.
func (s Selection) Select(products []models.Product) []models.Product {
	var selected []models.Product
	for i := range products {
		p := &products[i]
		if !s.IncludesItem(i+1) || !s.FitsSize(p.TotalSize()) || !s.MatchesAnyFormat(p.FormatList()) {
			continue
		}
		selected = append(selected, *p)
	}
	return selected
}

func (s Selection) IncludesItem(position int) bool {
	if s.itemIndices == nil {
		return true
	}
	_, ok := s.itemIndices[position]
	return ok
}

// FitsSize is a strict comparison: a product exactly at the cap is dropped.
func (s Selection) FitsSize(size uint64) bool {
	return s.MaxSize == 0 || size < s.MaxSize
}

func (s Selection) MatchesFormat(format string) bool {
	if len(s.formats) == 0 {
		return true
	}
	_, ok := s.formats[strings.ToLower(format)]
	return ok
}

func (s Selection) MatchesAnyFormat(formats []string) bool {
	if len(s.formats) == 0 {
		return true
	}
	for _, f := range formats {
		if s.MatchesFormat(f) {
			return true
		}
	}
	return false
}

// URLFor picks the link that should be fetched for f.
func (s Selection) URLFor(f models.File) string {
	if s.TorrentsOnly {
		return f.URL.BitTorrent
	}
	return f.URL.Web
}
