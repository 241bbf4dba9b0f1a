package scheduler

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/humble-cli/internal/models"
	"gopkg.in/yaml.v3"
)

type BatchEntry struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

// Outcome records how one bundle of a batch ended. Err is nil on success.
type Outcome struct {
	Entry BatchEntry
	Err   error
}

type BundleFetcher interface {
	ReadBundle(ctx context.Context, key string) (models.Bundle, error)
}

// RunBatch attempts every entry in order, even after failures. Item
// numbers do not apply to batches and are ignored.
func RunBatch(ctx context.Context, entries []BatchEntry, fetch BundleFetcher, opts Options, dl FileDownloader, display Display) []Outcome {
	opts.ItemNumbers = nil
	outcomes := make([]Outcome, 0, len(entries))
	for _, entry := range entries {
		if ctx.Err() != nil {
			outcomes = append(outcomes, Outcome{Entry: entry, Err: ctx.Err()})
			continue
		}
		bundle, err := fetch.ReadBundle(ctx, entry.Key)
		if err == nil {
			err = RunBundle(ctx, bundle, opts, dl, display)
		}
		if err != nil {
			log.Warn().Str("op", "scheduler/batch").Err(err).Msgf("bundle %s failed", entry.Key)
		}
		outcomes = append(outcomes, Outcome{Entry: entry, Err: err})
	}
	return outcomes
}

func Failed(outcomes []Outcome) []Outcome {
	var failed []Outcome
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// ReadBundleList reads `key,name` lines, or a YAML list of {key, name}
// when the file ends in .yaml or .yml. A line without a name uses the key.
func ReadBundleList(path string) ([]BatchEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading bundle list: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var entries []BatchEntry
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("error parsing bundle list %s: %w", path, err)
		}
		for i := range entries {
			if entries[i].Key == "" {
				return nil, fmt.Errorf("bundle list %s: entry %d has no key", path, i+1)
			}
			if entries[i].Name == "" {
				entries[i].Name = entries[i].Key
			}
		}
		return entries, nil
	}

	var entries []BatchEntry
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, name, _ := strings.Cut(line, ",")
		key, name = strings.TrimSpace(key), strings.TrimSpace(name)
		if name == "" {
			name = key
		}
		entries = append(entries, BatchEntry{Key: key, Name: name})
	}
	return entries, scanner.Err()
}
