package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tanq16/humble-cli/internal/models"
	"github.com/tanq16/humble-cli/internal/output"
	"github.com/tanq16/humble-cli/internal/utils"
)

func newListCmd() *cobra.Command {
	var fields []string
	var claimed string

	cmd := &cobra.Command{
		Use:   "list [--field key,name,size,claimed] [--claimed all|yes|no]",
		Short: "List all your purchased bundles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wanted, err := parseFields(fields)
			if err != nil {
				return err
			}
			filter, err := models.ParseClaimFilter(claimed)
			if err != nil {
				return err
			}
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			// keys alone need no bundle data
			if len(wanted) == 1 && wanted[0] == "key" && filter == models.ClaimFilterAll {
				keys, err := client.ListBundleKeys(cmd.Context())
				if err != nil {
					return err
				}
				for _, k := range keys {
					fmt.Fprintln(out, k)
				}
				return nil
			}

			bundles, err := client.ListBundles(cmd.Context())
			if err != nil {
				return err
			}
			var kept []models.Bundle
			for _, b := range bundles {
				if filter.Keep(b.ClaimStatus()) {
					kept = append(kept, b)
				}
			}

			if len(wanted) > 0 {
				for _, b := range kept {
					fmt.Fprintln(out, strings.Join(bundleFields(b, wanted), ","))
				}
				return nil
			}

			fmt.Fprintf(out, "%d bundle(s) found.\n\n", len(kept))
			if len(kept) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(kept))
			for _, b := range kept {
				rows = append(rows, []string{b.Gamekey, b.Details.HumanName, utils.FormatBytes(b.TotalSize()), b.ClaimStatus().String()})
			}
			output.PrintTable(out, output.Table{
				Headers:    []string{"Key", "Name", "Size", "Claimed"},
				Rows:       rows,
				RightAlign: []int{2},
			})
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&fields, "field", nil, "Print bundle fields as comma separated lines, usable as bulk-download input (key, name, size, claimed)")
	cmd.Flags().StringVar(&claimed, "claimed", "all", "Show only bundles whose keys are claimed (yes), unclaimed (no) or all")
	return cmd
}

func bundleFields(b models.Bundle, fields []string) []string {
	values := make([]string, 0, len(fields))
	for _, f := range fields {
		switch f {
		case "key":
			values = append(values, b.Gamekey)
		case "name":
			values = append(values, b.Details.HumanName)
		case "size":
			values = append(values, utils.FormatBytes(b.TotalSize()))
		case "claimed":
			values = append(values, b.ClaimStatus().String())
		}
	}
	return values
}
