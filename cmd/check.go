package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"yampd/db"
	"yampd/storage"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Test MySQL, Redis and MinIO connectivity",
	Long:  `Connect to every configured backend and run a basic operation against it. Disabled backends are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		out := cmd.OutOrStdout()
		errs := []error{
			checkMySQL(ctx, out),
			checkRedis(ctx, out),
			checkMinio(ctx, out),
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func checkMySQL(ctx context.Context, out io.Writer) error {
	fmt.Fprintf(out, "MySQL %s:%s/%s ... ", cfg.DBHost, cfg.DBPort, cfg.DBName)
	conn, err := db.ConnectDB(cfg)
	if err != nil {
		fmt.Fprintln(out, "FAILED")
		return err
	}
	defer db.CloseDB()

	var version string
	if err := conn.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		fmt.Fprintln(out, "FAILED")
		return fmt.Errorf("failed to query MySQL version: %w", err)
	}
	fmt.Fprintf(out, "ok (%s)\n", version)
	return nil
}

func checkRedis(ctx context.Context, out io.Writer) error {
	if !cfg.RedisEnabled {
		fmt.Fprintln(out, "Redis ... skipped")
		return nil
	}
	fmt.Fprintf(out, "Redis %s db %d ... ", cfg.RedisAddr(), cfg.RedisDB)
	client, err := db.ConnectRedis(cfg)
	if err != nil {
		fmt.Fprintln(out, "FAILED")
		return err
	}
	defer db.CloseRedis()

	if err := db.TestRedis(ctx, client); err != nil {
		fmt.Fprintln(out, "FAILED")
		return err
	}
	fmt.Fprintln(out, "ok")
	return nil
}

func checkMinio(ctx context.Context, out io.Writer) error {
	if !cfg.MinioEnabled {
		fmt.Fprintln(out, "MinIO ... skipped")
		return nil
	}
	fmt.Fprintf(out, "MinIO %s bucket %s ... ", cfg.MinioEndpoint, cfg.MinioBucket)
	store, err := storage.NewMinioCoverStore(ctx, cfg)
	if err != nil {
		fmt.Fprintln(out, "FAILED")
		return err
	}
	stats, err := store.Stats(ctx, "covers/")
	if err != nil {
		fmt.Fprintln(out, "FAILED")
		return err
	}
	fmt.Fprintf(out, "ok (%d covers, %s)\n", stats.TotalObjects, storage.FormatSize(stats.TotalSize))
	return nil
}
