package main

import (
	"context"
	"wholesale-backend/cmd/catalog-cli/commands"
	"wholesale-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "catalog-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
