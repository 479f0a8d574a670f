package main

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mediahub-app/mediahub/server"
	"github.com/mediahub-app/mediahub/server/config"
	"github.com/mediahub-app/mediahub/server/openid"
)

//go:embed frontend/index.html
var frontend embed.FS

func main() {
	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	var configFile string

	root := &cobra.Command{
		Use:          "mediahub",
		Short:        "Download media from the web as MP4 or MP3 through yt-dlp",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(v, configFile)
		},
	}

	root.PersistentFlags().StringVar(&configFile, "conf", "./config.yml", "Config file path")
	root.PersistentFlags().String("tool", "", "Path of the yt-dlp executable, skips every lookup")
	v.BindPFlag("paths.downloader_path", root.PersistentFlags().Lookup("tool"))

	serve := newServeCmd(v)

	// serving is what a bare invocation does
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(
		serve,
		newSetupCmd(),
		newUpdateCmd(),
		newConfigCmd(),
	)

	return root
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	var (
		frontendPath string
		debug        bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Instance()

			// Frontend FS
			var appFS fs.FS
			if frontendPath != "" {
				appFS = os.DirFS(frontendPath)
			} else {
				sub, err := fs.Sub(frontend, "frontend")
				if err != nil {
					slog.Error("failed to load embedded frontend", "error", err)
					return err
				}
				appFS = sub
			}

			// Configure OpenID if needed
			if err := openid.Configure(cmd.Context()); err != nil {
				slog.Error("failed to configure openid", "error", err)
				return err
			}

			slog.Info("starting server",
				"host", cfg.Server.Host,
				"port", cfg.Server.Port,
				"config", cfg.Path(),
			)

			if err := server.Run(cmd.Context(), &server.RunConfig{
				App:   appFS,
				Debug: debug,
			}); err != nil {
				slog.Error("server stopped with error", "error", err)
				return err
			}

			slog.Info("server exited cleanly")
			return nil
		},
	}

	cmd.Flags().String("host", "", "Host to bind to, a path binds a unix socket")
	cmd.Flags().Int("port", 0, "Port to listen on")
	cmd.Flags().String("post-processing", "", "ffmpeg post-processing: auto, enabled or disabled")
	cmd.Flags().StringVar(&frontendPath, "frontend-path", "", "Serve the web ui from this directory")
	cmd.Flags().BoolVar(&debug, "debug", false, "Log yt-dlp diagnostics")

	v.BindPFlag("server.host", cmd.Flags().Lookup("host"))
	v.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	v.BindPFlag("runtime.post_processing", cmd.Flags().Lookup("post-processing"))

	return cmd
}

// loadConfig fills the process wide configuration. Precedence from lowest
// to highest: defaults, config file, MEDIAHUB_* environment, flags.
func loadConfig(v *viper.Viper, configFile string) error {
	d := config.Default()

	// Defaults
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.base_url", d.Server.BaseURL)
	v.SetDefault("logging.log_path", d.Logging.LogPath)
	v.SetDefault("logging.enable_file_logging", d.Logging.EnableFileLogging)
	v.SetDefault("paths.downloader_path", d.Paths.DownloaderPath)
	v.SetDefault("paths.bundled_path", d.Paths.BundledPath)
	v.SetDefault("paths.scratch_path", d.Paths.ScratchPath)
	v.SetDefault("provision.url", d.Provision.URL)
	v.SetDefault("provision.max_redirects", d.Provision.MaxRedirects)
	v.SetDefault("provision.timeout", d.Provision.Timeout)
	v.SetDefault("runtime.post_processing", d.Runtime.PostProcessing)
	v.SetDefault("limits.metadata_timeout", d.Limits.MetadataTimeout)
	v.SetDefault("limits.metadata_max_bytes", d.Limits.MetadataMaxBytes)
	v.SetDefault("limits.stream_timeout", d.Limits.StreamTimeout)
	v.SetDefault("authentication.require_auth", false)
	v.SetDefault("authentication.username", "")
	v.SetDefault("authentication.password", "")
	v.SetDefault("authentication.jwt_secret", "")
	v.SetDefault("openid.use_openid", false)
	v.SetDefault("openid.openid_provider_url", "")
	v.SetDefault("openid.openid_client_id", "")
	v.SetDefault("openid.openid_client_secret", "")
	v.SetDefault("openid.openid_redirect_url", "")
	v.SetDefault("openid.openid_email_whitelist", []string{})

	// Env binding, MEDIAHUB_SERVER_PORT overrides server.port
	v.SetEnvPrefix("MEDIAHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load YAML file if exists
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(configFile); statErr == nil {
			return err
		}
		slog.Debug("using defaults", slog.String("config", configFile))
	}

	cfg := config.Instance()
	if err := v.Unmarshal(cfg); err != nil {
		slog.Error("failed to load config", "error", err)
		return err
	}
	cfg.SetPath(configFile)

	return nil
}
