// a stupid package name...
package server

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mediahub-app/mediahub/server/config"
	"github.com/mediahub-app/mediahub/server/events"
	"github.com/mediahub-app/mediahub/server/internal/capability"
	"github.com/mediahub-app/mediahub/server/internal/kv"
	"github.com/mediahub-app/mediahub/server/internal/locator"
	"github.com/mediahub-app/mediahub/server/internal/metadata"
	"github.com/mediahub-app/mediahub/server/internal/stream"
	"github.com/mediahub-app/mediahub/server/logging"
	middlewares "github.com/mediahub-app/mediahub/server/middleware"
	"github.com/mediahub-app/mediahub/server/openid"
	"github.com/mediahub-app/mediahub/server/rest"
	"github.com/mediahub-app/mediahub/server/user"
)

type RunConfig struct {
	App   fs.FS
	Debug bool
}

type serverConfig struct {
	frontend fs.FS
	hub      *events.Hub
	locator  *locator.Locator
	policy   capability.Policy
	fetcher  *metadata.Fetcher
	streams  *stream.Orchestrator
	running  *kv.Store
}

func Run(ctx context.Context, rc *RunConfig) error {
	conf := config.Instance()
	if err := conf.Validate(); err != nil {
		return err
	}

	hub := events.NewHub()

	// ---- LOGGING ---------------------------------------------------
	logWriters := []io.Writer{
		os.Stdout,
		logging.NewObservableLogger(hub), // for web-ui
	}

	// file based logging
	if conf.Logging.EnableFileLogging {
		logger, err := logging.NewRotableLogger(conf.Logging.LogPath)
		if err != nil {
			return err
		}

		defer logger.Close()

		go func() {
			ticker := time.NewTicker(time.Hour * 24)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := logger.Rotate(); err != nil {
						slog.Warn("failed rotating log file", slog.Any("err", err))
					}
				}
			}
		}()

		logWriters = append(logWriters, logger)
	}

	level := slog.LevelInfo
	if rc.Debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(io.MultiWriter(logWriters...), &slog.HandlerOptions{
		Level: level,
	}))

	// make the new logger the default one with all the new writers
	slog.SetDefault(logger)
	// ----------------------------------------------------------------

	mode, err := capability.ParseMode(conf.Runtime.PostProcessing)
	if err != nil {
		return err
	}

	loc := locator.FromConfig(conf)

	scfg := serverConfig{
		frontend: rc.App,
		hub:      hub,
		locator:  loc,
		policy:   capability.New(mode),
		fetcher:  metadata.NewFetcher(loc, conf.Limits.MetadataTimeout, conf.Limits.MetadataMaxBytes),
		streams:  stream.NewOrchestrator(loc, conf.Limits.StreamTimeout, hub),
		running:  kv.NewStore(),
	}

	srv := newServer(scfg)

	go gracefulShutdown(ctx, srv)

	var (
		network = "tcp"
		address = fmt.Sprintf("%s:%d", conf.Server.Host, conf.Server.Port)
	)

	// support unix sockets
	if strings.HasPrefix(conf.Server.Host, "/") {
		network = "unix"
		address = conf.Server.Host
	}

	listener, err := net.Listen(network, address)
	if err != nil {
		slog.Error("failed to listen", slog.String("err", err.Error()))
		return err
	}

	slog.Info("mediahub started",
		slog.String("address", address),
		slog.String("post_processing", string(mode)),
	)

	if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
		slog.Warn("http server stopped", slog.String("err", err.Error()))
		return err
	}

	return nil
}

func newServer(c serverConfig) *http.Server {
	r := chi.NewRouter()

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	})

	r.Use(corsMiddleware.Handler)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// use in dev
	// r.Use(middleware.Logger)

	baseUrl := config.Instance().Server.BaseURL
	if c.frontend != nil {
		r.Mount(baseUrl+"/", http.StripPrefix(baseUrl, http.FileServerFS(c.frontend)))
	}

	// Authentication routes
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", user.Login)
		r.Get("/logout", user.Logout)

		r.Route("/openid", func(r chi.Router) {
			r.Get("/login", openid.Login)
			r.Get("/signin", openid.SignIn)
			r.Get("/logout", openid.Logout)
		})
	})

	// REST API handlers
	r.Route("/api", rest.ApplyRouter(&rest.ContainerArgs{
		Locator: c.locator,
		Policy:  c.policy,
		Fetcher: c.fetcher,
		Streams: c.streams,
		Running: c.running,
	}))

	// Stream lifecycle and log feed
	r.Route("/events", func(r chi.Router) {
		r.Use(middlewares.ApplyAuthenticationByConfig)
		r.Get("/ws", c.hub.WebSocket)
	})

	// downloads run for minutes, only the request head is bounded
	return &http.Server{
		Handler:           r,
		ReadHeaderTimeout: time.Second * 10,
	}
}

func gracefulShutdown(ctx context.Context, srv *http.Server) {
	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	// in flight downloads are cut once the grace period is over, Close
	// cancels their request contexts which terminates the tools
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("forcing shutdown", slog.Any("err", err))
		srv.Close()
	}
}
