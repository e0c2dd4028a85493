package commands

import (
	"fmt"
	"os"
	"wholesale-backend/lib/scrapers"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Searches the catalog and prints the matching products.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var out struct {
			Products []scrapers.Product `json:"products"`
			Total    int                `json:"total"`
			Error    string             `json:"error"`
		}
		err := call(cmd.Context(), map[string]any{
			"action":        "search",
			"q":             args[0],
			"integrationId": integrationId,
		}, &out)
		if err != nil {
			return err
		}
		if out.Error != "" {
			fmt.Fprintln(os.Stderr, "warning:", out.Error)
		}

		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Symbol", "Name", "Netto", "Stock", "Slug"})
		for _, p := range out.Products {
			t.AppendRow(table.Row{p.Symbol, p.Name, formatPrice(p.PriceNetto, p.Currency), p.Stock, p.Slug})
		}
		t.Render()
		return nil
	},
}

func formatPrice(value *float64, currency string) string {
	if value == nil {
		return ""
	}
	if currency == "" {
		currency = "PLN"
	}
	return fmt.Sprintf("%.2f %s", *value, currency)
}
