package cmd

import (
	"fmt"

	"yampd/library"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan [dir...]",
	Short: "Import the music library once",
	Long:  `Walk the configured MUSIC_DIRS, or the directories given as arguments, and import every audio file into the library store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dirs := cfg.MusicDirs
		if len(args) > 0 {
			dirs = args
		}

		st, closeStore, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to open library store: %w", err)
		}
		defer closeStore()

		scanner := library.NewScanner(st.songs, st.albums, st.scans, st.covers)
		results, err := scanner.ScanAll(cmd.Context(), dirs)
		for _, res := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d files, %d imported, %d failed\n",
				res.Root, res.Seen, res.Imported, res.Failed)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
