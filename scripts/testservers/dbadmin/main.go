// Command dbadmin serves the in-memory database-administration application
// the journey runs against, for local runs without a real backend.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/qa21t02/dbjourney/internal/fakeapp"
)

func main() {
	addr := pflag.String("addr", ":7000", "Listen address")
	csrf := pflag.Bool("require-csrf", false, "Reject POSTs whose _csrf field does not match the session")
	gzip := pflag.Bool("gzip", false, "Compress responses for clients that accept gzip")
	latency := pflag.Duration("latency", 0, "Delay added to every response")
	pflag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	app := fakeapp.New(fakeapp.Options{RequireCSRF: *csrf, Gzip: *gzip, Latency: *latency})
	srv := &http.Server{
		Addr:              *addr,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("dbadmin test server listening", zap.String("addr", *addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("serve", zap.Error(err))
	}
	logger.Info("dbadmin test server stopped",
		zap.Int("users", app.Users()),
		zap.Int("databases", len(app.Databases())))
}
