// Package cli implements the interactive UploadVault client: a small REPL
// for logging in, uploading files and watching the upload notification
// surface. The App is the session root: it owns the registry, the
// orchestrator and the presenter, and their lifetime is the session's.
package cli

import (
	"bufio"
	"context"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/uploadvault/internal/client/api"
	"github.com/dmitrijs2005/uploadvault/internal/client/config"
	"github.com/dmitrijs2005/uploadvault/internal/client/notify"
	"github.com/dmitrijs2005/uploadvault/internal/client/registry"
	"github.com/dmitrijs2005/uploadvault/internal/client/uploader"
	"github.com/dmitrijs2005/uploadvault/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config       *config.Config
	client       *api.Client
	registry     *registry.Registry
	orchestrator *uploader.Orchestrator
	presenter    *notify.Presenter
	userName     string
	Mode         Mode
	reader       *bufio.Reader
}

func NewApp(c *config.Config, logger logging.Logger) *App {

	client := api.NewClient(c.ServerURL)
	reg := registry.New()

	return &App{
		config:       c,
		client:       client,
		registry:     reg,
		orchestrator: uploader.NewOrchestrator(reg, client, c.UploadEndpoint, logger),
		presenter:    notify.NewPresenter(reg),
		reader:       bufio.NewReader(os.Stdin),
	}
}

func (a *App) setMode(mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) Run(ctx context.Context) {
	defer a.presenter.Close()
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.client.LoggedIn()
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := a.client.Ping(pingCtx)
			cancel()

			if err != nil {
				if a.Mode == ModeOnline {
					a.setMode(ModeOffline)
				}
			} else {
				if a.Mode != ModeOnline {
					a.setMode(ModeOnline)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}
