package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"tubebot/internal/config"
)

const (
	ExitOK         = 0
	ExitCLIError   = 1
	ExitMissingDep = 2
	ExitConfig     = 3
	ExitRuntime    = 4
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tubebot",
		Short:         "Telegram bot that fetches YouTube media sized for chat",
		Long:          "Tubebot is a Telegram bot that searches YouTube, lets users pick a result and a format, and sends back an audio or video file compressed to fit Telegram's upload limit.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Running the bare binary starts the bot, same as `tubebot serve`.
			return serveExecute(cmd)
		},
	}

	// Persistent flags available to all subcommands
	root.PersistentFlags().String("downloads-dir", "", "Directory for in-flight downloads")
	root.PersistentFlags().String("db-path", "", "Path to the SQLite stats database")
	root.PersistentFlags().String("dl-binary", "", "Path to yt-dlp or youtube-dl")
	root.PersistentFlags().String("ffmpeg-binary", "", "Path to ffmpeg")
	root.PersistentFlags().String("cookies-path", "", "yt-dlp cookies file (.txt Netscape or .json browser export)")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	// Config wiring failures are non-fatal; defaults still apply.
	_ = config.Init(root)

	// Subcommands
	root.AddCommand(newServeCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	return root.ExecuteContext(ctx)
}
