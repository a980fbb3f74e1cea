package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/uploadvault/internal/client/cli"
	"github.com/dmitrijs2005/uploadvault/internal/client/config"
	"github.com/dmitrijs2005/uploadvault/internal/logging"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	app := cli.NewApp(cfg, logger)
	app.Run(ctx)

}
