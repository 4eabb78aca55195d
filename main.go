package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/wfunc/roomsync/config"
	"github.com/wfunc/roomsync/engine"
	"github.com/wfunc/roomsync/logger"
	"github.com/wfunc/roomsync/monitor"
	"github.com/wfunc/roomsync/persistence"
	"github.com/wfunc/roomsync/server"
)

const recordQueueSize = 1024

func main() {
	cmd := &cli.Command{
		Name:  "roomsync",
		Usage: "multiplayer room and game state synchronization server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: ".",
				Usage: "directory containing config.yaml",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "HTTP listen address, overrides server.http_address",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level, overrides log.level",
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.LoadConfig(cmd.String("config"))
	if err != nil {
		return err
	}
	if addr := cmd.String("addr"); addr != "" {
		cfg.Server.HTTPAddress = addr
	}
	if level := cmd.String("log-level"); level != "" {
		cfg.Log.Level = level
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	recorder, err := persistence.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open room audit log: %w", err)
	}
	if cfg.Database.Enabled {
		logger.Log.Infof("Recording room events with the %s driver.", cfg.Database.Driver)
	}

	gameServer := server.NewGameServer(
		cfg,
		engine.NewRace(),
		persistence.NewAsyncRecorder(recorder, recordQueueSize),
		monitor.NewMonitor(cfg.Metrics.Namespace),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	return gameServer.Run(ctx)
}
