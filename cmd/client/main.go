package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"little-stars/internal/authclient"
	"little-stars/internal/config"
	"little-stars/internal/gate"
	"little-stars/internal/repository/sqlite"
	"little-stars/internal/session"
	"little-stars/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// The terminal belongs to the UI, so logs go to a file.
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	logger.SetLevel(cfg.LogLevel())
	if err := os.MkdirAll(filepath.Dir(cfg.Client.LogPath), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	logFile, err := os.OpenFile(cfg.Client.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logger.SetOutput(logFile)

	var endpoint session.Endpoint
	if cfg.Client.Endpoint == config.EndpointMock {
		endpoint = authclient.NewMock()
		logger.Info("using offline auth endpoint")
	} else {
		endpoint = authclient.NewHTTPClient(cfg.Client.Endpoint, cfg.ClientTimeout())
		logger.Infof("using auth endpoint %s", cfg.Client.Endpoint)
	}

	ctx := context.Background()

	db, err := sqlite.Open(cfg.Client.SessionPath)
	if err != nil {
		return fmt.Errorf("open session database: %w", err)
	}
	defer db.Close()

	persister := sqlite.NewClientSessionRepository(db)
	if err := persister.Init(ctx); err != nil {
		return fmt.Errorf("init session database: %w", err)
	}

	store := session.NewStore(endpoint,
		session.WithPersister(persister),
		session.WithLogger(logger),
	)
	if _, err := store.Restore(ctx); err != nil {
		logger.WithError(err).Warn("restore session")
	}

	g := gate.New(store)
	defer g.Close()

	p := tea.NewProgram(tui.New(store, g.Current()), tea.WithAltScreen())
	g.OnChange(func(m gate.Mounted) {
		p.Send(tui.MountedMsg(m))
	})

	_, err = p.Run()
	return err
}
