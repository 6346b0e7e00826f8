package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"klik-guard/config"
	"klik-guard/global"
	"klik-guard/initialize"
	"klik-guard/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	app, err := initialize.Build(*configPath)
	if err != nil {
		global.Logger.Fatal().Err(err).Msg("startup failed")
	}

	// Apply log level changes without a restart.
	config.Watch(*configPath, initialize.SetLogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go app.Notifications.Run(ctx, app.Cfg.Sweep.Interval)

	srv := server.NewHTTPServer(app.Cfg.HTTP.Host, app.Cfg.HTTP.Port, app.Router)
	go func() {
		global.Logger.Info().Str("addr", srv.Addr()).Msg("http server listening")
		if err := srv.Start(); err != nil {
			global.Logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	global.Logger.Info().Msg("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		global.Logger.Error().Err(err).Msg("shutdown")
	}
}
