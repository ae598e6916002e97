package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/lox/rook/internal/config"
	"github.com/lox/rook/internal/eventlog"
	"github.com/lox/rook/internal/fileutil"
	"github.com/lox/rook/internal/game"
	"github.com/lox/rook/internal/randutil"
	"github.com/lox/rook/internal/server"
	"golang.org/x/sync/errgroup"
)

// ServerCmd runs a table and serves it over WebSockets
type ServerCmd struct {
	Config   string `short:"c" default:"rook.hcl" help:"Path to HCL configuration file"`
	EnvFile  string `default:".env" help:"Path to a .env file with ROOK_* overrides"`
	Addr     string `short:"a" help:"Server address to bind to, host:port (overrides config)"`
	LogLevel string `short:"l" help:"Log level (overrides config)"`
	Seed     *int64 `help:"Deterministic RNG seed for dealing (overrides config)"`
}

func (c *ServerCmd) Run() error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Level())

	gameCfg, err := cfg.GameConfig()
	if err != nil {
		return err
	}
	seed, rng := randutil.Pick(cfg.Game.Seed)
	logger.Info("Using seed", "seed", seed)

	ctx, cancel := signalContext(logger)
	defer cancel()

	sinks, err := openSinks(ctx, cfg.EventLog, logger)
	if err != nil {
		return err
	}
	pump := eventlog.NewPump(logger, cfg.EventLog.Buffer, sinks...)

	engine := game.NewEngine(logger, rng,
		game.WithConfig(gameCfg),
		game.WithRecorder(pump))
	srv := server.NewServer(cfg.ServerAddress(), engine, logger)

	logger.Info("Starting rook server",
		"addr", cfg.ServerAddress(),
		"players", cfg.Game.Players,
		"winning_score", gameCfg.WinningScore,
		"sinks", len(sinks))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pump.Run(gctx)
	})
	g.Go(func() error {
		defer engine.Close()
		return srv.Run(gctx)
	})
	err = g.Wait()

	if cfg.Server.StateFile != "" {
		if werr := fileutil.WriteJSON(cfg.Server.StateFile, engine.Snapshot()); werr != nil {
			logger.Error("Failed to save table state", "file", cfg.Server.StateFile, "error", werr)
		} else {
			logger.Info("Saved table state", "file", cfg.Server.StateFile)
		}
	}
	return err
}

func (c *ServerCmd) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if err := cfg.ApplyEnv(c.EnvFile); err != nil {
		return nil, err
	}

	// Apply command line overrides
	if c.Addr != "" {
		host, port, err := net.SplitHostPort(c.Addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", c.Addr, err)
		}
		portNum, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid port in %q", c.Addr)
		}
		cfg.Server.Address, cfg.Server.Port = host, portNum
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if c.Seed != nil {
		cfg.Game.Seed = *c.Seed
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openSinks opens every configured event sink, closing those already opened
// if one fails
func openSinks(ctx context.Context, settings config.EventLogSettings, logger *log.Logger) ([]eventlog.Sink, error) {
	var sinks []eventlog.Sink
	fail := func(err error) ([]eventlog.Sink, error) {
		var errs []error
		for _, s := range sinks {
			errs = append(errs, s.Close())
		}
		return nil, errors.Join(append([]error{err}, errs...)...)
	}

	if settings.File != "" {
		sink, err := eventlog.OpenFile(settings.File)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, sink)
	}
	if settings.RedisURL != "" {
		sink, err := eventlog.DialRedis(ctx, settings.RedisURL, settings.RedisChannel)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, sink)
	}
	if settings.PostgresDSN != "" {
		sink, err := eventlog.DialPostgres(ctx, settings.PostgresDSN)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, sink)
	}

	for _, s := range sinks {
		logger.Info("Recording events", "sink", s.Name())
	}
	return sinks, nil
}
