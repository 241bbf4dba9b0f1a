package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tanq16/humble-cli/internal/models"
	"github.com/tanq16/humble-cli/internal/output"
)

func newSearchCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "search [KEYWORDS...] [--mode any|all]",
		Short: "Search through all bundle items for the given keywords",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matchMode, err := models.ParseMatchMode(mode)
			if err != nil {
				return err
			}
			keywords := strings.Fields(strings.ToLower(strings.Join(args, " ")))
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			bundles, err := client.ListBundles(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			var rows [][]string
			for _, b := range bundles {
				for _, p := range b.Products {
					if p.NameMatches(keywords, matchMode) {
						rows = append(rows, []string{b.Gamekey, b.Details.HumanName, p.HumanName})
					}
				}
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "Nothing found")
				return nil
			}
			output.PrintTable(out, output.Table{
				Headers: []string{"Key", "Name", "Sub Item"},
				Rows:    rows,
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "any", "Whether an item must match any or all of the keywords")
	return cmd
}
