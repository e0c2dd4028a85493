package commands

import (
	"fmt"
	"os"
	"wholesale-backend/lib/scrapers"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(productCmd)
}

var productCmd = &cobra.Command{
	Use:   "product <slug>",
	Short: "Fetches one product page and prints its extracted detail.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var out struct {
			Product scrapers.ProductDetail `json:"product"`
			Error   string                 `json:"error"`
		}
		err := call(cmd.Context(), map[string]any{
			"action":        "product",
			"slug":          args[0],
			"integrationId": integrationId,
		}, &out)
		if err != nil {
			return err
		}
		if out.Error != "" {
			fmt.Fprintln(os.Stderr, "warning:", out.Error)
		}

		p := out.Product
		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(os.Stdout)
		t.AppendRow(table.Row{"Name", p.Name})
		t.AppendRow(table.Row{"Symbol", p.Symbol})
		t.AppendRow(table.Row{"EAN", p.Ean})
		t.AppendRow(table.Row{"Brand", p.Brand})
		t.AppendRow(table.Row{"Netto", formatPrice(p.PriceNetto, p.Currency)})
		t.AppendRow(table.Row{"Brutto", formatPrice(p.PriceBrutto, p.Currency)})
		t.AppendRow(table.Row{"Stock", p.Stock})
		t.AppendRow(table.Row{"Unit", p.Unit})
		t.AppendRow(table.Row{"Url", p.Url})
		t.Render()

		if len(p.Specs) > 0 {
			specs := table.NewWriter()
			specs.SetStyle(table.StyleRounded)
			specs.SetOutputMirror(os.Stdout)
			specs.AppendHeader(table.Row{"Spec", "Value"})
			for _, spec := range p.Specs {
				specs.AppendRow(table.Row{spec.Name, spec.Value})
			}
			specs.Render()
		}
		return nil
	},
}
