package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/uploadvault/internal/logging"
	"github.com/dmitrijs2005/uploadvault/internal/server"
	"github.com/dmitrijs2005/uploadvault/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	app := server.NewApp(cfg, logger)
	app.Run(ctx)

}
