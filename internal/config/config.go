// Package config wires Viper with config paths, env, defaults, and flags.
package config

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tubebot/internal/dirs"
)

// Settings holds the resolved runtime configuration for the bot.
type Settings struct {
	BotToken     string
	AdminID      int64
	DownloadsDir string
	DBPath       string
	DLBinary     string // optional explicit path to yt-dlp/youtube-dl
	FFmpegBinary string // optional explicit path to ffmpeg
	CookiesPath  string // optional yt-dlp cookies file; .json exports are converted
	LogLevel     string
	ResultLimit  int    // max search results offered to a user
	MaxSizeMB    int    // upload size budget in MB
	KeepaliveTCP string // listen address for the health endpoint, empty = off
}

// Init wires Viper with config paths, env, defaults, and flag bindings.
// It is non-fatal: any errors are returned for optional handling by caller.
func Init(root *cobra.Command) error {
	_ = dirs.EnsureAll()

	if cfgDir, err := dirs.ConfigDir(); err == nil {
		_ = dirs.Ensure(cfgDir)
		viper.AddConfigPath(cfgDir)
	}
	viper.SetConfigName("config") // supports config.{yaml|yml|json|toml}

	// Environment variables: TUBEBOT_*
	viper.SetEnvPrefix("TUBEBOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Bind root persistent flags to Viper keys
	_ = viper.BindPFlag("downloads_dir", root.PersistentFlags().Lookup("downloads-dir"))
	_ = viper.BindPFlag("db_path", root.PersistentFlags().Lookup("db-path"))
	_ = viper.BindPFlag("dl_binary", root.PersistentFlags().Lookup("dl-binary"))
	_ = viper.BindPFlag("ffmpeg_binary", root.PersistentFlags().Lookup("ffmpeg-binary"))
	_ = viper.BindPFlag("cookies_path", root.PersistentFlags().Lookup("cookies-path"))
	_ = viper.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	// Read config file if present (ignore not found)
	_ = viper.ReadInConfig()

	return nil
}

func setDefaults() {
	viper.SetDefault("result_limit", 10)
	viper.SetDefault("max_size_mb", 49)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("keepalive_addr", ":3000")
	if d, err := dirs.DefaultDownloadsDir(); err == nil {
		viper.SetDefault("downloads_dir", d)
	}
	if p, err := dirs.DefaultDBPath(); err == nil {
		viper.SetDefault("db_path", p)
	}
}

// Load materialises Settings from the current Viper state.
func Load() Settings {
	return Settings{
		BotToken:     viper.GetString("bot_token"),
		AdminID:      viper.GetInt64("admin_id"),
		DownloadsDir: viper.GetString("downloads_dir"),
		DBPath:       viper.GetString("db_path"),
		DLBinary:     viper.GetString("dl_binary"),
		FFmpegBinary: viper.GetString("ffmpeg_binary"),
		CookiesPath:  viper.GetString("cookies_path"),
		LogLevel:     viper.GetString("log_level"),
		ResultLimit:  viper.GetInt("result_limit"),
		MaxSizeMB:    viper.GetInt("max_size_mb"),
		KeepaliveTCP: viper.GetString("keepalive_addr"),
	}
}
