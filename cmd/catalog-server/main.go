package main

import (
	"flag"
	"net/http"
	"wholesale-backend/lib/configutil"
	configlibsql "wholesale-backend/lib/configutil/libsql"
	"wholesale-backend/lib/fetchchain"
	"wholesale-backend/lib/scrapers"
	"wholesale-backend/lib/scrapers/megalux"
	"wholesale-backend/lib/scrapers/speckable"
	"wholesale-backend/lib/scrapers/techbond"
	"wholesale-backend/lib/serviceutil"
	"wholesale-backend/services/catalog"
	"wholesale-backend/services/integrations"
)

type RelayConfig struct {
	ApiKey   string `json:"api_key"`
	Endpoint string `json:"endpoint"`
}

type AuthConfig struct {
	// UserinfoUrl validates bearer tokens against an identity provider;
	// StaticToken is the local-development fallback. Leaving both empty
	// disables the check entirely.
	UserinfoUrl string `json:"userinfo_url"`
	StaticToken string `json:"static_token"`
}

type Config struct {
	Port     int                 `json:"port"`
	Database configlibsql.Struct `json:"database"`
	Relay    RelayConfig         `json:"relay"`
	Auth     AuthConfig          `json:"auth"`
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	database, err := cfg.Database.OpenDB()
	if err != nil {
		serviceutil.Fatal("open database", err)
	}
	store := integrations.NewStore(database)
	err = store.Init(ctx)
	if err != nil {
		serviceutil.Fatal("init database", err)
	}

	var verifier catalog.TokenVerifier
	if cfg.Auth.UserinfoUrl != "" {
		verifier = catalog.NewHttpVerifier(cfg.Auth.UserinfoUrl)
	} else if cfg.Auth.StaticToken != "" {
		verifier = catalog.StaticVerifier(cfg.Auth.StaticToken)
	}

	svc := catalog.New(catalog.Options{
		Store: store,
		Connectors: []scrapers.Connector{
			speckable.New(speckable.Options{
				RelayApiKey:   cfg.Relay.ApiKey,
				RelayEndpoint: cfg.Relay.Endpoint,
			}),
			techbond.New(fetchchain.DirectOptions{}),
			megalux.New(fetchchain.DirectOptions{}),
		},
		Primary:     speckable.WholesalerID,
		Verifier:    verifier,
		RelayKeySet: cfg.Relay.ApiKey != "",
	})

	port := cfg.Port
	if port == 0 {
		port = 8000
	}

	mux := http.NewServeMux()
	mux.Handle("/", svc.Handler())

	go serviceutil.StartHttpServer(port, mux)
	<-ctx.Done()
}
