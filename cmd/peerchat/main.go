package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jmendes/peerchat/internal/app"
	"github.com/jmendes/peerchat/internal/backend"
	"github.com/jmendes/peerchat/internal/config"
	"github.com/jmendes/peerchat/internal/session"
	"github.com/jmendes/peerchat/internal/tui"
	"go.uber.org/fx"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(session.ConfigPath())
	if err != nil {
		cfg = config.Default()
	}

	// The transport adapter is wired here. Offline keeps the engine usable
	// against local history when none is present.
	client := backend.NewOffline()

	var core *app.App
	fxApp := fx.New(
		fx.NopLogger,
		app.Module(app.Params{
			SessionName: sessionName,
			Config:      cfg,
			Client:      client,
		}),
		fx.Populate(&core),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := fxApp.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ui := tui.NewApp(core, sessionName)
	runErr := ui.Run()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStop()
	if err := fxApp.Stop(stopCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		os.Exit(1)
	}
}
