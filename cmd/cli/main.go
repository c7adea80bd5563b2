package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/applytrack/internal/buildinfo"
	"github.com/dmitrijs2005/applytrack/internal/client/cli"
	"github.com/dmitrijs2005/applytrack/internal/client/client"
	"github.com/dmitrijs2005/applytrack/internal/client/config"
	"github.com/dmitrijs2005/applytrack/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/applytrack/internal/client/services"
	"github.com/dmitrijs2005/applytrack/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	logger := logging.NewTextLogger(os.Stderr, cfg.LogLevel)

	db, err := client.InitDatabase(ctx, cfg.StoragePath)
	if err != nil {
		log.Fatalf("error initializing database: %v", err)
	}
	defer db.Close()

	store := metadata.NewSessionStorage(db)
	api := client.NewHTTPClient(cfg.ServerBaseURL, store,
		client.WithLogger(logger),
		client.WithTimeouts(cfg.RequestTimeout, cfg.UploadTimeout),
		client.WithRateLimit(cfg.RateLimit, 1),
	)

	session := services.NewSession(api, store, logger)
	session.Init(ctx)

	app := cli.NewApp(cli.Deps{
		Accounts: api,
		Session:  session,
		Profiles: services.NewProfiles(api, session, logger),
		Documents: services.NewDocuments(api, logger, services.RetryPolicy{
			MaxAttempts: cfg.PollAttempts,
			Backoff:     services.ConstantBackoff(cfg.PollDelay),
		}),
		Jobs:        services.NewJobs(api, logger),
		DownloadDir: cfg.DownloadDir,
	}, os.Stdin, os.Stdout, logger)

	app.Run(ctx)
}
