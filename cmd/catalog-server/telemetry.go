package main

import (
	"context"
	"wholesale-backend/lib/serviceutil"
	"wholesale-backend/lib/telemetry"
)

func InitTelemetry(ctx context.Context, verbose bool) {
	t, err := telemetry.SetupFromEnv(ctx, "catalog-server")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		t.Shutdown(context.Background())
	}()

	telemetry.InstrumentPerfStats(ctx)
	telemetry.InitSlog(verbose)
}
