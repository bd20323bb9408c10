package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gitsocial/gitsocial/feedindex"
	"github.com/gitsocial/gitsocial/repocache"
	"github.com/gitsocial/gitsocial/social"
)

type Server struct {
	echo  *echo.Echo
	httpd *http.Server

	store     feedindex.Store
	logs      social.LogSource
	repoDir   string
	cacheBase string
}

func serve(cctx *cli.Context) error {
	logger := configLogger(cctx, os.Stdout)
	httpAddress := cctx.String("bind")
	repoDir := cctx.String("repo")
	cacheBase := cctx.String("cache-base")

	db, err := gorm.Open(sqlite.Open(cctx.String("db")))
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	store, err := feedindex.NewGormstore(db)
	if err != nil {
		return err
	}

	svc := social.NewService(nil)
	refresher := feedindex.NewRefresher(store, &repocache.Store{Base: cacheBase},
		func(ctx context.Context) ([]string, error) {
			return svc.FollowedRepositories(ctx, repoDir)
		}, &feedindex.RefresherOptions{
			Interval:           cctx.Duration("refresh-interval"),
			Parallel:           cctx.Int("parallel-refreshes"),
			RefreshesPerSecond: cctx.Int("refreshes-per-second"),
			Logger:             logger.With("source", "feedindex"),
		})
	go refresher.Start()

	e := echo.New()

	// httpd
	var (
		httpTimeout        = 1 * time.Minute
		httpMaxHeaderBytes = 1 * (1024 * 1024)
	)

	srv := &Server{
		echo:      e,
		store:     store,
		logs:      social.NewCachedService(svc, 64, 30*time.Second),
		repoDir:   repoDir,
		cacheBase: cacheBase,
	}
	srv.httpd = &http.Server{
		Handler:        srv,
		Addr:           httpAddress,
		WriteTimeout:   httpTimeout,
		ReadTimeout:    httpTimeout,
		MaxHeaderBytes: httpMaxHeaderBytes,
	}

	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(echoprometheus.NewMiddleware("feedd"))
	e.HTTPErrorHandler = srv.errorHandler

	e.GET("/_health", srv.handleHealth)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/timeline", srv.handleTimeline)
	e.GET("/logs", srv.handleLogs)
	e.GET("/thread", srv.handleThread)
	e.GET("/repos", srv.handleRepoStates)

	// Start the server
	slog.Info("starting server", "bind", httpAddress)
	go func() {
		if err := srv.httpd.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				slog.Error("HTTP server shutting down unexpectedly", "err", err)
			}
		}
	}()

	// Wait for a signal to exit.
	quit := make(chan struct{})
	exitSignals := make(chan os.Signal, 1)
	signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-exitSignals
		slog.Info("received OS exit signal", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := refresher.Stop(ctx); err != nil {
			slog.Error("refresher shutdown error", "err", err)
		}
		if err := srv.Shutdown(); err != nil {
			slog.Error("HTTP server shutdown error", "err", err)
		}
		close(quit)
	}()
	<-quit
	slog.Info("graceful shutdown complete")
	return nil
}

func (srv *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	srv.echo.ServeHTTP(rw, req)
}

func (srv *Server) Shutdown() error {
	slog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.httpd.Shutdown(ctx)
}

type GenericStatus struct {
	Daemon  string `json:"daemon"`
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

func (srv *Server) handleHealth(c echo.Context) error {
	return c.JSON(200, GenericStatus{Status: "ok", Daemon: "feedd"})
}

func (srv *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := "internal error"
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		msg = fmt.Sprintf("%v", he.Message)
	}
	if code >= 500 {
		slog.Warn("feedd-http-internal-error", "err", err)
	}
	c.JSON(code, GenericStatus{Daemon: "feedd", Status: "error", Message: msg})
}

func configLogger(cctx *cli.Context, writer io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cctx.String("log-level")) {
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "info":
		level = slog.LevelInfo
	case "debug":
		level = slog.LevelDebug
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}
