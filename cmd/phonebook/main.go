// Command phonebook runs the phone book GraphQL server (serve), lists its
// contacts (persons) and prints its schema (schema).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/RyotaIwahashi/phonebook"
	"github.com/RyotaIwahashi/phonebook/internal/client"
	"github.com/RyotaIwahashi/phonebook/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const shutdownTimeout = 5 * time.Second

// Globals holds the flags (and output) shared by all commands.
type Globals struct {
	Config string    `help:"Path of the YAML config file." type:"path" default:"phonebook.yaml" env:"PHONEBOOK_CONFIG"`
	Out    io.Writer `kong:"-"`
}

// CLI is the top-level command structure for phonebook.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version." short:"V"`
	Serve   ServeCmd         `cmd:"" help:"Run the GraphQL server."`
	Persons PersonsCmd       `cmd:"" help:"List all persons known to the server."`
	Schema  SchemaCmd        `cmd:"" help:"Print the GraphQL schema."`
}

// ServeCmd runs the GraphQL server until interrupted.
type ServeCmd struct {
	Address string `help:"Address to listen on (overrides server.address)."`
}

// PersonsCmd queries the server for all persons and lists them.
type PersonsCmd struct {
	Address bool   `help:"Also fetch and show the address of each person."`
	URL     string `help:"URL of the GraphQL server (overrides client.url)."`
}

// SchemaCmd prints the schema served.
type SchemaCmd struct{}

// loadConfig loads the config file with env overrides.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// Run executes the serve command.
func (s *ServeCmd) Run(g *Globals) error {
	cfg, err := loadConfig(g.Config)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	if s.Address != "" {
		cfg.Server.Address = s.Address
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	log, err := cfg.Log.Logger()
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer func() { _ = log.Sync() }()

	srv, err := newServer(cfg, log)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("address", cfg.Server.Address), zap.String("path", cfg.Server.Path))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("stopping server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("serve: shutdown: %w", err)
	}
	return nil
}

// newServer creates the HTTP server for cfg, with the GraphQL handler at cfg.Server.Path.
// Non-websocket requests are limited to cfg.Server.Timeout.
func newServer(cfg *config.Config, log *zap.Logger) (*http.Server, error) {
	h, err := phonebook.New(nil,
		phonebook.Logger(log),
		phonebook.NoIntrospection(!cfg.Server.Introspection),
		phonebook.NoConcurrency(!cfg.Server.Concurrency),
		phonebook.InitialTimeout(cfg.Websocket.InitialTimeout),
		phonebook.PingFrequency(cfg.Websocket.PingFrequency),
		phonebook.PongTimeout(cfg.Websocket.PongTimeout),
	)
	if err != nil {
		return nil, err
	}
	timed := http.TimeoutHandler(h, cfg.Server.Timeout, `{"errors":[{"message":"timeout"}]}`)

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Server.Path, func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			h.ServeHTTP(w, r) // TimeoutHandler's writer cannot be hijacked
			return
		}
		timed.ServeHTTP(w, r)
	})
	return &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           mux,
		ReadHeaderTimeout: cfg.Server.Timeout,
		ErrorLog:          zap.NewStdLog(log),
	}, nil
}

// Run executes the persons command.
func (p *PersonsCmd) Run(g *Globals) error {
	cfg, err := loadConfig(g.Config)
	if err != nil {
		return fmt.Errorf("persons: %w", err)
	}
	if p.URL != "" {
		cfg.Client.URL = p.URL
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("persons: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	persons, err := client.New(cfg.Client.URL, nil).AllPersons(ctx, p.Address)
	if err != nil {
		return fmt.Errorf("persons: %w", err)
	}
	return client.Render(g.Out, persons)
}

// Run executes the schema command.
func (SchemaCmd) Run(g *Globals) error {
	_, err := io.WriteString(g.Out, phonebook.Schema())
	return err
}

func main() {
	cli := CLI{Globals: Globals{Out: os.Stdout}}
	ctx := kong.Parse(&cli,
		kong.Name("phonebook"),
		kong.Description("A GraphQL phone book server and client."),
		kong.UsageOnError(),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
