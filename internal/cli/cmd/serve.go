package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"tubebot/internal/bot"
	"tubebot/internal/budget"
	"tubebot/internal/config"
	"tubebot/internal/flow"
	"tubebot/internal/log"
	"tubebot/internal/probe"
	"tubebot/internal/store"
	"tubebot/internal/transcode"
	"tubebot/internal/util"
	"tubebot/internal/util/deps"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "serve",
		Short:         "Start the Telegram bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serveExecute(cmd)
		},
	}
}

func serveExecute(cmd *cobra.Command) error {
	cfg := config.Load()
	log.Configure(log.Config{Level: cfg.LogLevel})
	logger := log.WithComponent("serve")

	if cfg.BotToken == "" {
		return &ExitError{Code: ExitConfig, Err: errors.New("bot token not set (TUBEBOT_BOT_TOKEN or config file)")}
	}

	dlPath, err := deps.FindDownloader(cfg.DLBinary)
	if err != nil {
		return &ExitError{Code: ExitMissingDep, Err: err}
	}
	ffmpegPath, err := deps.FindFFmpeg(cfg.FFmpegBinary)
	if err != nil {
		return &ExitError{Code: ExitMissingDep, Err: err}
	}
	if err := util.EnsureDir(cfg.DownloadsDir); err != nil {
		return &ExitError{Code: ExitConfig, Err: fmt.Errorf("downloads dir: %w", err)}
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return &ExitError{Code: ExitConfig, Err: fmt.Errorf("open database: %w", err)}
	}
	defer db.Close()

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return &ExitError{Code: ExitConfig, Err: fmt.Errorf("telegram auth: %w", err)}
	}

	cookiesPath, err := resolveCookies(cfg.CookiesPath)
	if err != nil {
		return &ExitError{Code: ExitConfig, Err: err}
	}

	runner := util.NewDefaultRunner()
	prober := probe.NewYTDLP(dlPath, runner, probe.WithCookies(cookiesPath))
	pipeline := budget.New(
		budget.WithProber(prober),
		budget.WithTranscoder(transcode.NewTool(dlPath, ffmpegPath, runner, transcode.WithCookies(cookiesPath))),
		budget.WithDownloadsDir(cfg.DownloadsDir),
		budget.WithMaxSizeMB(cfg.MaxSizeMB),
	)

	b := &botHolder{}
	controller := flow.New(
		flow.WithProber(prober),
		flow.WithPipeline(pipeline),
		flow.WithDeliverer(b),
		flow.WithNotifier(func(userID int64, text string) { b.Notify(userID, text) }),
		flow.WithResultLimit(cfg.ResultLimit),
	)
	b.Bot = bot.New(api, cfg, controller, db)

	logger.Info().
		Str("downloader", dlPath).
		Str("ffmpeg", ffmpegPath).
		Str("db", cfg.DBPath).
		Msg("starting bot")

	if err := b.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
		return &ExitError{Code: ExitRuntime, Err: err}
	}
	return nil
}

// botHolder breaks the construction cycle between the flow controller (which
// needs a Deliverer and Notifier) and the bot (which needs the controller).
type botHolder struct {
	*bot.Bot
}

// resolveCookies returns the cookies file to hand yt-dlp. A browser-extension
// .json export is converted to a sibling Netscape cookies.txt first.
func resolveCookies(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return path, nil
	}
	converted := strings.TrimSuffix(path, filepath.Ext(path)) + ".txt"
	if err := util.ConvertCookiesToNetscape(path, converted); err != nil {
		return "", fmt.Errorf("cookies: %w", err)
	}
	return converted, nil
}
