package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/tanq16/humble-cli/internal/output"
	"github.com/tanq16/humble-cli/internal/scheduler"
	"github.com/tanq16/humble-cli/internal/utils"
)

type downloadFlags struct {
	formats      []string
	maxSize      string
	torrentsOnly bool
	curDir       bool
	verify       bool
	keepGoing    bool
}

func (f *downloadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&f.formats, "format", "f", nil, "Download only these formats (case-insensitive, repeatable or comma separated)")
	cmd.Flags().StringVarP(&f.maxSize, "max-size", "s", "", "Skip items at or above this size (eg. 14MB, 4GiB)")
	cmd.Flags().BoolVarP(&f.torrentsOnly, "torrents", "t", false, "Download only the BitTorrent files")
	cmd.Flags().BoolVarP(&f.curDir, "cur-dir", "c", false, "Download into the current directory instead of a bundle directory")
	cmd.Flags().BoolVar(&f.verify, "verify", false, "Verify the MD5 checksum of every finished file")
	cmd.Flags().BoolVar(&f.keepGoing, "keep-going", false, "Continue with the next file after a failed download")
}

func (f *downloadFlags) options() (scheduler.Options, error) {
	opts := scheduler.Options{
		Formats:         f.formats,
		TorrentsOnly:    f.torrentsOnly,
		CurrentDir:      f.curDir,
		BaseDir:         appConfig.DownloadDir,
		ContinueOnError: f.keepGoing,
	}
	if f.maxSize != "" {
		size, err := utils.ParseSize(f.maxSize)
		if err != nil {
			return opts, err
		}
		opts.MaxSize = size
	}
	if f.curDir {
		opts.BaseDir = "."
	}
	return opts, nil
}

func newDownloadCmd() *cobra.Command {
	var flags downloadFlags
	var itemNumbers string

	cmd := &cobra.Command{
		Use:   "download [BUNDLE_KEY] [OPTIONS]",
		Short: "Selectively download items from a bundle",
		Long: `Selectively download items from a bundle.

Item numbers are the # column of 'details' and accept ranges:
  -i 1,3-5,9-   items 1, 3 to 5 and 9 to the last item
  -i -4         items 1 to 4

Interrupted downloads resume from the partial file on the next run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			opts.ItemNumbers = utils.SplitRanges(itemNumbers)

			hc := newHTTPClient()
			client, err := newAPIClientWith(hc)
			if err != nil {
				return err
			}
			bundle, err := client.FetchBundle(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			outputMgr := output.NewManager()
			outputMgr.StartDisplay()
			err = scheduler.RunBundle(cmd.Context(), bundle, opts, newDownloader(hc, flags.verify), outputMgr)
			outputMgr.StopDisplay()
			if err == nil {
				return nil
			}
			// file failures are already listed in the summary
			if _, _, failed := outputMgr.Counts(); failed > 0 {
				return errors.New("encountered failed download(s)")
			}
			return err
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&itemNumbers, "item-numbers", "i", "", "Download only these items, by # (eg. 1,3-5,9-)")
	return cmd
}
