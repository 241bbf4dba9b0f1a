package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// HumbleTime parses the API timestamps, which carry no zone
// ("2021-04-05T20:01:30.481166").
type HumbleTime struct {
	time.Time
}

var humbleTimeLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

func (ht *HumbleTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		return nil
	}
	var err error
	for _, layout := range humbleTimeLayouts {
		if ht.Time, err = time.Parse(layout, s); err == nil {
			return nil
		}
	}
	return fmt.Errorf("cannot parse time %q: %w", s, err)
}

type GameKey struct {
	Gamekey string `json:"gamekey"`
}

type BundleDetails struct {
	MachineName string `json:"machine_name"`
	HumanName   string `json:"human_name"`
}

type Bundle struct {
	Gamekey     string         `json:"gamekey"`
	Created     HumbleTime     `json:"created"`
	Claimed     bool           `json:"claimed"`
	TpkdDict    map[string]any `json:"tpkd_dict"`
	Details     BundleDetails  `json:"product"`
	Products    []Product      `json:"-"`
	AmountSpent *float64       `json:"amount_spent,omitempty"`
	Currency    *string        `json:"currency,omitempty"`
}

// UnmarshalJSON decodes subproducts one by one and drops the ones that do
// not match the expected shape.
func (b *Bundle) UnmarshalJSON(data []byte) error {
	type plain Bundle
	aux := struct {
		RawProducts []json.RawMessage `json:"subproducts"`
		*plain
	}{plain: (*plain)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	b.Products = make([]Product, 0, len(aux.RawProducts))
	for _, raw := range aux.RawProducts {
		var p Product
		if err := json.Unmarshal(raw, &p); err != nil || p.HumanName == "" {
			continue
		}
		b.Products = append(b.Products, p)
	}
	return nil
}

func (b *Bundle) TotalSize() uint64 {
	var total uint64
	for _, p := range b.Products {
		total += p.TotalSize()
	}
	return total
}

type ProductKey struct {
	Redeemed  bool
	HumanName string
}

// ProductKeys reads the third-party keys out of tpkd_dict.all_tpks.
func (b *Bundle) ProductKeys() []ProductKey {
	all, ok := b.TpkdDict["all_tpks"].([]any)
	if !ok {
		return nil
	}
	keys := make([]ProductKey, 0, len(all))
	for _, item := range all {
		tpk, ok := item.(map[string]any)
		if !ok {
			continue
		}
		_, redeemed := tpk["redeemed_key_val"].(string)
		name, _ := tpk["human_name"].(string)
		keys = append(keys, ProductKey{Redeemed: redeemed, HumanName: name})
	}
	return keys
}

func (b *Bundle) ClaimStatus() ClaimStatus {
	keys := b.ProductKeys()
	if len(keys) == 0 {
		return ClaimStatusNotApplicable
	}
	for _, k := range keys {
		if !k.Redeemed {
			return ClaimStatusNo
		}
	}
	return ClaimStatusYes
}

type Product struct {
	MachineName string          `json:"machine_name"`
	HumanName   string          `json:"human_name"`
	URL         string          `json:"url"`
	Downloads   []DownloadGroup `json:"downloads"`
}

// TotalSize is recomputed on every call.
func (p *Product) TotalSize() uint64 {
	var total uint64
	for _, d := range p.Downloads {
		total += d.TotalSize()
	}
	return total
}

func (p *Product) FormatList() []string {
	var formats []string
	for _, d := range p.Downloads {
		formats = append(formats, d.FormatList()...)
	}
	return formats
}

func (p *Product) Formats() string {
	return strings.Join(p.FormatList(), ", ")
}

// NameMatches compares keywords against the whole words of the product
// name, case-insensitively.
func (p *Product) NameMatches(keywords []string, mode MatchMode) bool {
	if len(keywords) == 0 {
		return false
	}
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(p.HumanName)) {
		words[w] = true
	}
	matched := 0
	for _, kw := range keywords {
		if !words[strings.ToLower(kw)] {
			continue
		}
		if mode == MatchModeAny {
			return true
		}
		matched++
	}
	return mode == MatchModeAll && matched == len(keywords)
}

type DownloadGroup struct {
	Files []File `json:"download_struct"`
}

func (d *DownloadGroup) TotalSize() uint64 {
	var total uint64
	for _, f := range d.Files {
		total += f.Size
	}
	return total
}

func (d *DownloadGroup) FormatList() []string {
	formats := make([]string, 0, len(d.Files))
	for _, f := range d.Files {
		formats = append(formats, f.Format)
	}
	return formats
}

type File struct {
	MD5    string  `json:"md5"`
	Format string  `json:"name"`
	Size   uint64  `json:"file_size"`
	URL    FileURL `json:"url"`
}

type FileURL struct {
	Web        string `json:"web"`
	BitTorrent string `json:"bittorrent"`
}
