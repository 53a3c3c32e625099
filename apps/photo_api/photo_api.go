package main

import (
	ctx "context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/snapmission/photo-services/api"
	"github.com/snapmission/photo-services/models/common"
	"github.com/snapmission/photo-services/util/cli"
)

func main() {
	help := false
	flag.BoolVar(&help, "help", false, "Print help message")
	flag.Parse()

	if help {
		printHelp()
		os.Exit(0)
	}

	appCtx := common.NewContext()
	logger := appCtx.Logger

	// The unique (user_id, mission_id) index is the backbone of the
	// upload path. Refuse to serve without it.
	indexCtx, cancel := ctx.WithTimeout(ctx.Background(), 15*time.Second)
	err := appCtx.PhotoStore.EnsureIndexes(indexCtx)
	cancel()
	if err != nil {
		logger.Fatalf("Could not ensure photo indexes: %v", err)
	}

	handler := api.NewHandler(appCtx)
	router := api.NewRouter(handler, appCtx.Config.JWTSecret, appCtx.Config.RequestTimeout)
	server := &http.Server{
		Addr:    appCtx.Config.ListenAddr,
		Handler: router,
	}

	go func() {
		logger.Infof("photo_api listening on %s", appCtx.Config.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server error: %v", err)
		}
	}()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)
	<-stopChan

	logger.Info("Shutting down photo_api")
	shutdownCtx, cancel := ctx.WithTimeout(ctx.Background(), 20*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Shutdown error: %v", err)
	}
}

func printHelp() {
	message := `
photo_api serves the photo capture-to-delivery HTTP API: multipart
photo upload, photo listings, and time-limited signed image URLs.
`
	fmt.Println(message)
	fmt.Println(cli.EnvMessage)
}
