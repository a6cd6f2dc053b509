// Package main runs the in-memory development API with demo data.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/alexhail/quickcontroller/internal/config"
	"github.com/alexhail/quickcontroller/internal/fakeapi"
)

const reseedSchedule = "@every 1m"

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	config.ConfigureLogging(c)
	displayAppname(c.GetAppName())

	api := fakeapi.New(
		fakeapi.WithSigningSecret(c.GetSigningSecret()),
		fakeapi.WithAccessTokenExpiry(c.GetAccessTokenExpiry()),
		fakeapi.WithRefreshTokenExpiry(c.GetRefreshTokenExpiry()),
		fakeapi.WithSecureCookies(!config.IsDev(c)),
		fakeapi.WithAllowedOrigins(c.GetAllowedOrigins()...),
	)
	if err := api.SeedDemo(); err != nil {
		return fmt.Errorf("seed demo data: %w", err)
	}
	log.Info().Str("email", fakeapi.DemoEmail).Str("password", fakeapi.DemoPassword).Msg("Demo account ready")

	scheduler, err := startReseeding(api)
	if err != nil {
		return err
	}
	defer func() { <-scheduler.Stop().Done() }()

	server := &http.Server{Addr: c.GetPort(), Handler: api, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(server) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(server)
}

// startReseeding keeps the demo entities fresh so they stay healthy while the
// server runs.
func startReseeding(api *fakeapi.Server) (*cron.Cron, error) {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(reseedSchedule, func() {
		api.SetInstanceEntities(fakeapi.DemoInstanceURL, fakeapi.DemoEntities(time.Now()))
		log.Debug().Msg("Demo entities refreshed")
	})
	if err != nil {
		return nil, fmt.Errorf("schedule reseed: %w", err)
	}
	scheduler.Start()
	return scheduler, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
