package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tanq16/humble-cli/internal/models"
	"github.com/tanq16/humble-cli/internal/output"
)

const membershipURL = "https://www.humblebundle.com/membership/home"

func newListChoicesCmd() *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "list-choices [--period current|MONTH-YEAR]",
		Short: "List your Humble Choices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := models.ParseChoicePeriod(period)
			if err != nil {
				return err
			}
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			choice, err := client.ReadChoices(cmd.Context(), p)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			fmt.Fprintln(out)
			fmt.Fprintln(out, output.FHeader(choice.Options.Title))
			fmt.Fprintln(out)

			var rows [][]string
			allRedeemed := true
			for _, game := range choice.Options.Data.Games() {
				for _, tpkd := range game.Tpkds {
					status := tpkd.ClaimStatus()
					if status == models.ClaimStatusNo {
						allRedeemed = false
					}
					rows = append(rows, []string{strconv.Itoa(len(rows) + 1), tpkd.HumanName, status.String()})
				}
			}
			output.PrintTable(out, output.Table{
				Headers:    []string{"#", "Title", "Redeemed"},
				Rows:       rows,
				RightAlign: []int{0},
			})
			if !allRedeemed {
				fmt.Fprintln(out, output.FInfo(fmt.Sprintf("Visit %s to redeem your keys.", membershipURL)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", "current", "Choice period: current or month-year (eg. january-2023)")
	return cmd
}
