package commands

import (
	"fmt"
	"os"
	"wholesale-backend/services/catalog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	compareSku  string
	compareEan  string
	compareName string
)

func init() {
	compareCmd.Flags().StringVar(&compareSku, "sku", "", "catalog symbol of the reference product")
	compareCmd.Flags().StringVar(&compareEan, "ean", "", "ean of the reference product")
	compareCmd.Flags().StringVar(&compareName, "name", "", "name of the reference product")
	rootCmd.AddCommand(compareCmd)
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Searches the company's other wholesalers for the same product.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if integrationId == "" {
			return fmt.Errorf("--integration is required")
		}

		var out struct {
			Rows  []catalog.ComparisonRow `json:"rows"`
			Total int                     `json:"total"`
		}
		err := call(cmd.Context(), map[string]any{
			"action":        "compare",
			"integrationId": integrationId,
			"sku":           compareSku,
			"ean":           compareEan,
			"name":          compareName,
		}, &out)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Wholesaler", "Product", "Symbol", "Netto", "Stock", "", "Url"})
		for _, row := range out.Rows {
			flag := ""
			if row.Best {
				flag = "best"
			}
			if row.Worst {
				flag = "worst"
			}
			t.AppendRow(table.Row{
				row.WholesalerName, row.ProductName, row.Symbol,
				formatPrice(row.PriceNetto, "PLN"), row.Stock, flag, row.Url,
			})
		}
		t.Render()
		return nil
	},
}
