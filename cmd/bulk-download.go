package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tanq16/humble-cli/internal/api"
	"github.com/tanq16/humble-cli/internal/models"
	"github.com/tanq16/humble-cli/internal/output"
	"github.com/tanq16/humble-cli/internal/scheduler"
)

func newBulkDownloadCmd() *cobra.Command {
	var flags downloadFlags

	cmd := &cobra.Command{
		Use:   "bulk-download [LIST_FILE] [OPTIONS]",
		Short: "Download every bundle listed in a file",
		Long: `Download every bundle listed in a file.

The file holds one "key,name" line per bundle, as printed by
'list --field key,name', or a YAML list of {key, name} entries when it ends
in .yaml or .yml. Every bundle is attempted; failures are listed at the end.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := scheduler.ReadBundleList(args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return fmt.Errorf("no bundles found in %s", args[0])
			}
			opts, err := flags.options()
			if err != nil {
				return err
			}
			hc := newHTTPClient()
			client, err := newAPIClientWith(hc)
			if err != nil {
				return err
			}

			fetcher := keyResolvingFetcher{client}
			outputMgr := output.NewManager()
			outputMgr.StartDisplay()
			outcomes := scheduler.RunBatch(cmd.Context(), entries, fetcher, opts, newDownloader(hc, flags.verify), outputMgr)
			outputMgr.StopDisplay()

			failed := scheduler.Failed(outcomes)
			for _, o := range failed {
				output.PrintFailure(cmd.OutOrStdout(), o.Entry.Name, friendlyError(o.Err))
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d bundles failed", len(failed), len(outcomes))
			}
			output.PrintSuccess(fmt.Sprintf("All %d bundles processed", len(outcomes)))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// keyResolvingFetcher lets bulk lists carry partial keys.
type keyResolvingFetcher struct {
	client *api.Client
}

func (f keyResolvingFetcher) ReadBundle(ctx context.Context, key string) (models.Bundle, error) {
	return f.client.FetchBundle(ctx, key)
}
