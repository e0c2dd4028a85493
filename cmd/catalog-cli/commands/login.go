package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	loginCompany    string
	loginWholesaler string
	loginBranza     string
)

func init() {
	loginCmd.Flags().StringVar(&loginCompany, "company", "", "company id the integration belongs to")
	loginCmd.Flags().StringVar(&loginWholesaler, "wholesaler", "speckable", "wholesaler id to log into")
	loginCmd.Flags().StringVar(&loginBranza, "branza", "", "trade branch label")
	rootCmd.AddCommand(loginCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login <username> <password>",
	Short: "Logs into a wholesaler and prints the resulting integration id.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginCompany == "" {
			return fmt.Errorf("--company is required")
		}

		var out struct {
			Success       bool   `json:"success"`
			IntegrationID string `json:"integrationId"`
			Username      string `json:"username"`
		}
		err := call(cmd.Context(), map[string]any{
			"action":       "login",
			"username":     args[0],
			"password":     args[1],
			"companyId":    loginCompany,
			"wholesalerId": loginWholesaler,
			"branza":       loginBranza,
		}, &out)
		if err != nil {
			return err
		}

		fmt.Println("logged in as", out.Username)
		fmt.Println("integration id:", out.IntegrationID)
		return nil
	},
}
