package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tanq16/humble-cli/internal/output"
	"github.com/tanq16/humble-cli/internal/utils"
)

const keysURL = "https://www.humblebundle.com/home/keys"

func newDetailsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "details [BUNDLE_KEY]",
		Short: "Print details of a bundle and its items",
		Long:  "Print details of a bundle. A unique prefix of the bundle key is enough.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			bundle, err := client.FetchBundle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			fmt.Fprintln(out)
			fmt.Fprintln(out, output.FHeader(bundle.Details.HumanName))
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Purchased    : %s\n", bundle.Created.Format("2006-01-02"))
			if bundle.AmountSpent != nil && bundle.Currency != nil {
				fmt.Fprintf(out, "Amount spent : %g %s\n", *bundle.AmountSpent, *bundle.Currency)
			}
			fmt.Fprintf(out, "Total size   : %s\n\n", utils.FormatBytes(bundle.TotalSize()))

			if len(bundle.Products) == 0 {
				fmt.Fprintln(out, "No items to show.")
			} else {
				rows := make([][]string, 0, len(bundle.Products))
				for i, p := range bundle.Products {
					rows = append(rows, []string{strconv.Itoa(i + 1), p.HumanName, p.Formats(), utils.FormatBytes(p.TotalSize())})
				}
				output.PrintTable(out, output.Table{
					Headers:    []string{"#", "Sub-item", "Format", "Total Size"},
					Rows:       rows,
					RightAlign: []int{0, 3},
				})
			}

			keys := bundle.ProductKeys()
			if len(keys) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Keys in this bundle:")
			fmt.Fprintln(out)
			allRedeemed := true
			rows := make([][]string, 0, len(keys))
			for i, k := range keys {
				redeemed := "Yes"
				if !k.Redeemed {
					redeemed = "No"
					allRedeemed = false
				}
				rows = append(rows, []string{strconv.Itoa(i + 1), k.HumanName, redeemed})
			}
			output.PrintTable(out, output.Table{
				Headers:    []string{"#", "Key Name", "Redeemed"},
				Rows:       rows,
				RightAlign: []int{0},
			})
			if !allRedeemed {
				fmt.Fprintln(out, output.FInfo(fmt.Sprintf("Visit %s to redeem your keys.", keysURL)))
			}
			return nil
		},
	}
	return cmd
}
