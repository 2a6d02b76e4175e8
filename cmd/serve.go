package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"yampd/library"
	"yampd/logger"
	"yampd/player"
	"yampd/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the playback daemon",
	Long:  `Open the library store and the audio output, then serve the /ply and /lib HTTP API until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policy, err := player.ParseDecodeErrorPolicy(cfg.PlayerDecodeError)
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open library store: %w", err)
	}
	defer closeStore()

	engine, err := player.NewEngine(player.Options{
		Device:     openDevice(cfg),
		Policy:     policy,
		Channels:   cfg.PlayerChannels,
		SampleRate: cfg.PlayerSampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to start player: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Warn("Error closing player", logger.ErrorField(err))
		}
	}()

	scanner := library.NewScanner(st.songs, st.albums, st.scans, st.covers)
	if cfg.ScanOnStart {
		go func() {
			if _, err := scanner.ScanAll(ctx, cfg.MusicDirs); err != nil {
				logger.Warn("Startup scan finished with errors", logger.ErrorField(err))
			}
		}()
	}
	if cfg.WatchLibrary {
		watcher, err := library.NewWatcher(scanner, cfg.MusicDirs)
		if err != nil {
			logger.Warn("Library watcher unavailable", logger.ErrorField(err))
		} else {
			defer watcher.Close()
			go watcher.Run(ctx)
			logger.Info("Watching library", logger.Strings("dirs", cfg.MusicDirs))
		}
	}

	srv := server.New(cfg, server.Deps{
		Player: engine,
		Songs:  st.songs,
		Albums: st.albums,
		Scans:  st.scans,
		Covers: st.covers,
	})
	return srv.Run(ctx)
}
