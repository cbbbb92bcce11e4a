package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"tubebot/internal/config"
	"tubebot/internal/util/deps"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Diagnose external dependencies (yt-dlp/youtube-dl, ffmpeg) and config",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()

			dl, derr := deps.FindDownloader(cfg.DLBinary)
			if derr != nil {
				return &ExitError{Code: ExitMissingDep, Err: derr}
			}
			ff, ferr := deps.FindFFmpeg(cfg.FFmpegBinary)
			if ferr != nil {
				return &ExitError{Code: ExitMissingDep, Err: ferr}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Downloader: %s\n", dl)
			fmt.Fprintf(out, "FFmpeg:     %s\n", ff)
			fmt.Fprintf(out, "Database:   %s\n", cfg.DBPath)
			fmt.Fprintf(out, "Downloads:  %s\n", cfg.DownloadsDir)
			if cfg.CookiesPath != "" {
				fmt.Fprintf(out, "Cookies:    %s\n", cfg.CookiesPath)
			} else {
				fmt.Fprintln(out, "Cookies:    not set (YouTube bot checks may block downloads)")
			}
			if cfg.BotToken == "" {
				fmt.Fprintln(out, "Bot token:  NOT SET (set TUBEBOT_BOT_TOKEN)")
			} else {
				fmt.Fprintln(out, "Bot token:  set")
			}
			if cfg.AdminID == 0 {
				fmt.Fprintln(out, "Admin id:   not set (admin commands disabled)")
			} else {
				fmt.Fprintf(out, "Admin id:   %d\n", cfg.AdminID)
			}
			return nil
		},
	}
}
