// connshared is the connection-sharing daemon. It owns the stored
// connection profiles, the per-extension permission store, and the live
// database sessions, and exposes the sharing command surface over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/koustreak/connshare/internal/config"
	"github.com/koustreak/connshare/internal/connection"
	"github.com/koustreak/connshare/internal/connection/mysql"
	"github.com/koustreak/connshare/internal/connection/postgres"
	"github.com/koustreak/connshare/internal/connection/profiles"
	"github.com/koustreak/connshare/internal/editor"
	"github.com/koustreak/connshare/internal/logger"
	"github.com/koustreak/connshare/internal/notebook"
	"github.com/koustreak/connshare/internal/permission"
	"github.com/koustreak/connshare/internal/prompt/terminal"
	"github.com/koustreak/connshare/internal/scripting"
	"github.com/koustreak/connshare/internal/secrets"
	secretsfile "github.com/koustreak/connshare/internal/secrets/file"
	secretsminio "github.com/koustreak/connshare/internal/secrets/minio"
	"github.com/koustreak/connshare/internal/server"
	"github.com/koustreak/connshare/internal/sharing"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "connshared:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.New(&cfg.Log)
	logger.SetGlobal(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sec, err := openSecrets(ctx, &cfg.Secrets)
	if err != nil {
		return fmt.Errorf("open secret store: %w", err)
	}
	defer sec.Close()

	profileStore, err := profiles.New(cfg.ProfileDB, sec)
	if err != nil {
		return fmt.Errorf("open profile store: %w", err)
	}
	defer profileStore.Close()

	conns := connection.NewSessionManager()
	conns.Register(connection.DriverPostgres, postgres.Open)
	conns.Register(connection.DriverMySQL, mysql.Open)

	prompter := terminal.New()
	broker := permission.NewBroker(permission.NewStore(sec), prompter)
	tracker := editor.NewTracker()
	scripter := scripting.NewService(conns)

	gateway := sharing.NewGateway(broker, conns, profileStore, tracker, scripter)
	notebooks := notebook.NewManager(conns, gateway, profileStore, prompter, nil)
	defer notebooks.Dispose(context.Background())

	commands := gateway.Commands()
	for name, h := range notebooks.Commands() {
		commands[name] = h
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(commands),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openSecrets(ctx context.Context, cfg *secrets.Config) (secrets.Store, error) {
	switch cfg.Provider {
	case secrets.ProviderMinIO:
		return secretsminio.New(ctx, cfg)
	case secrets.ProviderFile, "":
		return secretsfile.New(cfg)
	default:
		return nil, fmt.Errorf("unknown secrets provider %q", cfg.Provider)
	}
}
