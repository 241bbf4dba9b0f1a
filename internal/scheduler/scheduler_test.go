package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	humblehttp "github.com/tanq16/humble-cli/internal/downloaders/http"
	"github.com/tanq16/humble-cli/internal/models"
	"github.com/tanq16/humble-cli/internal/utils"
)

type fakeDownloader struct {
	requests []humblehttp.Request
	fail     map[string]error
	complete map[string]bool
}

func (f *fakeDownloader) Download(_ context.Context, req humblehttp.Request) (humblehttp.Result, error) {
	f.requests = append(f.requests, req)
	if err := f.fail[req.URL]; err != nil {
		return humblehttp.Result{}, err
	}
	if req.Progress != nil {
		req.Progress(10, 10)
	}
	return humblehttp.Result{Bytes: 10, AlreadyComplete: f.complete[req.URL]}, nil
}

func (f *fakeDownloader) paths() []string {
	var out []string
	for _, r := range f.requests {
		out = append(out, r.OutputPath)
	}
	return out
}

type event struct {
	kind string
	id   int
	text string
}

type recorder struct {
	next   int
	events []event
}

func (r *recorder) RegisterFunction(title string) int {
	r.next++
	r.events = append(r.events, event{"register", r.next, title})
	return r.next
}
func (r *recorder) SetMessage(id int, m string)  { r.events = append(r.events, event{"message", id, m}) }
func (r *recorder) AddStreamLine(id int, l string) { r.events = append(r.events, event{"stream", id, l}) }
func (r *recorder) AddProgressBarToStream(id int, outof, final int64, text string) {
	r.events = append(r.events, event{"progress", id, text})
}
func (r *recorder) Warn(id int, m string)     { r.events = append(r.events, event{"warn", id, m}) }
func (r *recorder) Complete(id int, m string) { r.events = append(r.events, event{"complete", id, m}) }
func (r *recorder) ReportError(id int, err error) {
	r.events = append(r.events, event{"error", id, err.Error()})
}

func (r *recorder) texts(kind string) []string {
	var out []string
	for _, e := range r.events {
		if e.kind == kind {
			out = append(out, e.text)
		}
	}
	return out
}

func file(format, url string, size uint64) models.File {
	return models.File{Format: format, Size: size, URL: models.FileURL{Web: url, BitTorrent: url + ".torrent"}}
}

func testBundle() models.Bundle {
	return models.Bundle{
		Gamekey: "abcdefghijklmnop",
		Details: models.BundleDetails{HumanName: "Sci/Fi: Books"},
		Products: []models.Product{
			{HumanName: "First Book", Downloads: []models.DownloadGroup{{Files: []models.File{
				file("PDF", "https://dl.example.com/first.pdf?t=1", 5),
				file("EPUB", "https://dl.example.com/first.epub?t=1", 5),
			}}}},
			{HumanName: "Second Book", Downloads: []models.DownloadGroup{{Files: []models.File{
				file("pdf", "https://dl.example.com/second.pdf", 15),
			}}}},
			{HumanName: "Third Book", Downloads: []models.DownloadGroup{{Files: []models.File{
				file("MOBI", "https://dl.example.com/third.mobi", 25),
			}}}},
		},
	}
}

func TestRunBundleLayout(t *testing.T) {
	base := t.TempDir()
	dl := &fakeDownloader{}
	rec := &recorder{}
	err := RunBundle(context.Background(), testBundle(), Options{BaseDir: base}, dl, rec)
	require.NoError(t, err)

	root := filepath.Join(base, "Sci Fi  Books")
	assert.Equal(t, []string{
		filepath.Join(root, "First Book", "first.pdf"),
		filepath.Join(root, "First Book", "first.epub"),
		filepath.Join(root, "Second Book", "second.pdf"),
		filepath.Join(root, "Third Book", "third.mobi"),
	}, dl.paths())
	info, err := os.Stat(filepath.Join(root, "Third Book"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Len(t, rec.texts("complete"), 4)
	assert.Contains(t, rec.texts("progress"), "10 B / 10 B")
}

func TestRunBundleFilters(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		want  []string
		skips []string
	}{
		{
			name: "item numbers",
			opts: Options{ItemNumbers: []string{"2-"}},
			want: []string{"second.pdf", "third.mobi"},
		},
		{
			name: "max size keeps strictly smaller products",
			opts: Options{MaxSize: 20},
			want: []string{"first.pdf", "first.epub", "second.pdf"},
		},
		{
			name:  "format filter skips other files with a notice",
			opts:  Options{Formats: []string{"pdf"}},
			want:  []string{"first.pdf", "second.pdf"},
			skips: []string{"Skipping 'EPUB'"},
		},
		{
			name: "torrents only",
			opts: Options{ItemNumbers: []string{"3"}, TorrentsOnly: true},
			want: []string{"third.mobi.torrent"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.CurrentDir = true
			tt.opts.BaseDir = t.TempDir()
			dl := &fakeDownloader{}
			rec := &recorder{}
			require.NoError(t, RunBundle(context.Background(), testBundle(), tt.opts, dl, rec))
			var names []string
			for _, p := range dl.paths() {
				names = append(names, filepath.Base(p))
			}
			assert.Equal(t, tt.want, names)
			if tt.skips != nil {
				assert.Equal(t, tt.skips, rec.texts("warn"))
			}
		})
	}
}

func TestRunBundleNothingToDownload(t *testing.T) {
	for _, opts := range []Options{
		{Formats: []string{"flac"}},
		{ItemNumbers: []string{"9-"}},
	} {
		dl := &fakeDownloader{}
		rec := &recorder{}
		opts.BaseDir = t.TempDir()
		require.NoError(t, RunBundle(context.Background(), testBundle(), opts, dl, rec))
		assert.Empty(t, dl.requests)
		assert.Equal(t, []string{"Nothing to download"}, rec.texts("warn"))
	}
}

func TestRunBundleInvalidRange(t *testing.T) {
	dl := &fakeDownloader{}
	err := RunBundle(context.Background(), testBundle(), Options{ItemNumbers: []string{"0", "x-2"}, BaseDir: t.TempDir()}, dl, &recorder{})
	var rangeErr *utils.RangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, []string{"0", "x-2"}, rangeErr.Tokens)
	assert.Empty(t, dl.requests)
}

func TestRunBundleErrorPolicy(t *testing.T) {
	boom := errors.New("boom")
	failing := map[string]error{"https://dl.example.com/first.epub?t=1": boom}

	t.Run("abort", func(t *testing.T) {
		dl := &fakeDownloader{fail: failing}
		err := RunBundle(context.Background(), testBundle(), Options{BaseDir: t.TempDir()}, dl, &recorder{})
		require.ErrorIs(t, err, boom)
		assert.Len(t, dl.requests, 2)
	})

	t.Run("keep going", func(t *testing.T) {
		dl := &fakeDownloader{fail: failing}
		rec := &recorder{}
		err := RunBundle(context.Background(), testBundle(), Options{BaseDir: t.TempDir(), ContinueOnError: true}, dl, rec)
		require.ErrorIs(t, err, boom)
		assert.Len(t, dl.requests, 4)
		assert.Len(t, rec.texts("error"), 1)
	})
}

func TestRunBundleFilenameLessURL(t *testing.T) {
	b := testBundle()
	b.Products = b.Products[:1]
	b.Products[0].Downloads[0].Files[0].URL.Web = "https://dl.example.com/"
	dl := &fakeDownloader{}
	err := RunBundle(context.Background(), b, Options{BaseDir: t.TempDir()}, dl, &recorder{})
	var dlErr *humblehttp.Error
	require.ErrorAs(t, err, &dlErr)
	assert.Equal(t, humblehttp.KindGeneric, dlErr.Kind)
	assert.Contains(t, err.Error(), "cannot get file name from URL 'https://dl.example.com/'")
	assert.Empty(t, dl.requests)
}

func TestRunBundleAlreadyComplete(t *testing.T) {
	dl := &fakeDownloader{complete: map[string]bool{"https://dl.example.com/second.pdf": true}}
	rec := &recorder{}
	require.NoError(t, RunBundle(context.Background(), testBundle(), Options{ItemNumbers: []string{"2"}, BaseDir: t.TempDir()}, dl, rec))
	assert.Equal(t, []string{"second.pdf already downloaded"}, rec.texts("warn"))
	assert.Empty(t, rec.texts("complete"))
}

type fakeFetcher map[string]models.Bundle

func (f fakeFetcher) ReadBundle(_ context.Context, key string) (models.Bundle, error) {
	b, ok := f[key]
	if !ok {
		return models.Bundle{}, fmt.Errorf("no bundle %s", key)
	}
	return b, nil
}

func TestRunBatchAttemptsEveryEntry(t *testing.T) {
	good := testBundle()
	fetch := fakeFetcher{"good": good, "also-good": good}
	entries := []BatchEntry{{Key: "good", Name: "Good"}, {Key: "missing", Name: "Missing"}, {Key: "also-good", Name: "Also good"}}
	dl := &fakeDownloader{}

	outcomes := RunBatch(context.Background(), entries, fetch, Options{BaseDir: t.TempDir(), ItemNumbers: []string{"1"}}, dl, &recorder{})
	require.Len(t, outcomes, 3)
	assert.NoError(t, outcomes[0].Err)
	assert.Error(t, outcomes[1].Err)
	assert.NoError(t, outcomes[2].Err)
	assert.Len(t, dl.requests, 8, "item numbers are ignored in batches")

	failed := Failed(outcomes)
	require.Len(t, failed, 1)
	assert.Equal(t, "Missing", failed[0].Entry.Name)
}

func TestReadBundleList(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "bundles.txt")
	require.NoError(t, os.WriteFile(txt, []byte("abc,Book Bundle\n\n# comment\ndef\n ghi , Game, Bundle \n"), 0644))
	entries, err := ReadBundleList(txt)
	require.NoError(t, err)
	assert.Equal(t, []BatchEntry{
		{Key: "abc", Name: "Book Bundle"},
		{Key: "def", Name: "def"},
		{Key: "ghi", Name: "Game, Bundle"},
	}, entries)

	yml := filepath.Join(dir, "bundles.yaml")
	require.NoError(t, os.WriteFile(yml, []byte("- key: abc\n  name: Book Bundle\n- key: def\n"), 0644))
	entries, err = ReadBundleList(yml)
	require.NoError(t, err)
	assert.Equal(t, []BatchEntry{{Key: "abc", Name: "Book Bundle"}, {Key: "def", Name: "def"}}, entries)

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("- name: no key\n"), 0644))
	_, err = ReadBundleList(bad)
	assert.Error(t, err)

	_, err = ReadBundleList(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
