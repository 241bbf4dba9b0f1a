// Package scheduler turns a bundle and the user's selection flags into a
// sequence of file downloads.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	humblehttp "github.com/tanq16/humble-cli/internal/downloaders/http"
	"github.com/tanq16/humble-cli/internal/models"
	"github.com/tanq16/humble-cli/internal/selection"
	"github.com/tanq16/humble-cli/internal/utils"
)

// FileDownloader is satisfied by *humblehttp.Downloader.
type FileDownloader interface {
	Download(ctx context.Context, req humblehttp.Request) (humblehttp.Result, error)
}

// Display is satisfied by *output.Manager.
type Display interface {
	RegisterFunction(title string) int
	SetMessage(id int, message string)
	AddStreamLine(id int, line string)
	AddProgressBarToStream(id int, outof, final int64, text string)
	Warn(id int, message string)
	Complete(id int, message string)
	ReportError(id int, err error)
}

type Options struct {
	// ItemNumbers holds raw range tokens such as "1", "3-5" or "7-".
	ItemNumbers  []string
	Formats      []string
	MaxSize      uint64
	TorrentsOnly bool
	// CurrentDir writes products straight into BaseDir instead of a
	// per-bundle directory.
	CurrentDir      bool
	BaseDir         string
	ContinueOnError bool
}

// RunBundle downloads the selected files of bundle one after another. With
// ContinueOnError unset the first file error stops the run; otherwise all
// file errors are returned joined.
func RunBundle(ctx context.Context, bundle models.Bundle, opts Options, dl FileDownloader, display Display) error {
	indices, err := utils.ResolveRanges(opts.ItemNumbers, len(bundle.Products))
	if err != nil {
		return err
	}
	sel := selection.New(indices, opts.Formats, opts.MaxSize, opts.TorrentsOnly)
	products := sel.Select(bundle.Products)
	if len(products) == 0 {
		id := display.RegisterFunction(bundle.Details.HumanName)
		display.Warn(id, "Nothing to download")
		return nil
	}

	root := opts.BaseDir
	if root == "" {
		root = "."
	}
	if !opts.CurrentDir {
		root = filepath.Join(root, utils.SanitizeFilename(bundle.Details.HumanName))
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("error creating bundle directory: %w", err)
	}
	log.Debug().Str("op", "scheduler/scheduler").Msgf("downloading %d products of %s into %s", len(products), bundle.Gamekey, root)

	var errs []error
	for _, product := range products {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if !sel.FitsSize(product.TotalSize()) {
			continue
		}
		productDir := filepath.Join(root, utils.SanitizeFilename(product.HumanName))
		if err := os.MkdirAll(productDir, 0755); err != nil {
			return errors.Join(append(errs, fmt.Errorf("error creating product directory: %w", err))...)
		}
		for _, group := range product.Downloads {
			for _, file := range group.Files {
				err := downloadFile(ctx, product, file, productDir, sel, dl, display)
				if err == nil {
					continue
				}
				if !opts.ContinueOnError {
					return err
				}
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func downloadFile(ctx context.Context, product models.Product, file models.File, dir string, sel selection.Selection, dl FileDownloader, display Display) error {
	if !sel.MatchesFormat(file.Format) {
		id := display.RegisterFunction(product.HumanName)
		display.Warn(id, fmt.Sprintf("Skipping '%s'", file.Format))
		return nil
	}
	link := sel.URLFor(file)
	name, ok := utils.FilenameFromURL(link)
	if !ok {
		id := display.RegisterFunction(product.HumanName)
		err := &humblehttp.Error{Kind: humblehttp.KindGeneric, URL: link, Op: fmt.Sprintf("cannot get file name from URL '%s'", link)}
		display.ReportError(id, err)
		return err
	}
	name = utils.SanitizeFilename(name)
	outputPath := filepath.Join(dir, name)

	id := display.RegisterFunction(name)
	display.SetMessage(id, fmt.Sprintf("Downloading %s", name))
	res, err := dl.Download(ctx, humblehttp.Request{
		URL:        link,
		OutputPath: outputPath,
		Title:      name,
		MD5:        file.MD5,
		Progress: func(downloaded, total int64) {
			text := fmt.Sprintf("%s / %s", utils.FormatBytes(uint64(downloaded)), utils.FormatBytes(uint64(total)))
			display.AddProgressBarToStream(id, downloaded, total, text)
		},
		Notice: func(msg string) {
			display.AddStreamLine(id, msg)
		},
	})
	if err != nil {
		log.Error().Str("op", "scheduler/scheduler").Err(err).Msgf("download of %s failed", outputPath)
		display.ReportError(id, err)
		return fmt.Errorf("%s: %w", product.HumanName, err)
	}
	if res.AlreadyComplete {
		display.Warn(id, fmt.Sprintf("%s already downloaded", name))
		return nil
	}
	display.Complete(id, fmt.Sprintf("Downloaded %s (%s)", name, utils.FormatBytes(uint64(res.Bytes))))
	return nil
}
