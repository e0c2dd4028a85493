package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var (
	serverUrl     string
	integrationId string
	accessToken   string
)

var rootCmd = &cobra.Command{
	Use:   "catalog-cli",
	Short: "catalog-cli pokes a running catalog server through its action endpoint.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverUrl, "server", "http://localhost:8000", "base url of the catalog server")
	rootCmd.PersistentFlags().StringVar(&integrationId, "integration", "", "integration id to browse with")
	rootCmd.PersistentFlags().StringVar(&accessToken, "token", "", "bearer token for credential actions")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func call(ctx context.Context, payload map[string]any, out any) error {
	req := resty.New().SetBaseURL(serverUrl).R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		SetResult(out)
	if accessToken != "" {
		req.SetHeader("Authorization", "Bearer "+accessToken)
	}

	res, err := req.Post("/")
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("server answered %d: %s", res.StatusCode(), res.String())
	}
	return nil
}
