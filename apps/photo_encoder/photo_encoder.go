package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/snapmission/photo-services/constants"
	"github.com/snapmission/photo-services/models/common"
	"github.com/snapmission/photo-services/util"
	"github.com/snapmission/photo-services/util/cli"
	"github.com/snapmission/photo-services/workers"
)

func main() {
	cli.Init()
	opts := cli.ParseOpts()
	if opts.PrintHelp {
		printHelp()
		cli.PrintDefaults()
		os.Exit(0)
	}

	appCtx := common.NewContext()
	logger := appCtx.Logger

	// One encoder per host. A second consumer would just double the
	// redeliveries it has to sort out.
	if appCtx.Config.PidFilePath != "" {
		if err := util.AcquirePidFile(appCtx.Config.PidFilePath); err != nil {
			logger.Fatalf("%v", err)
		}
		defer func() {
			if err := util.ReleasePidFile(appCtx.Config.PidFilePath); err != nil {
				logger.Errorf("%v", err)
			}
		}()
	}

	settings := &workers.Settings{
		ChannelBufferSize: opts.ChannelBufferSize,
		MaxAttempts:       opts.MaxAttempts,
		NSQChannel:        constants.ChannelPhotoEncode,
		NSQTopic:          constants.TopicPhotoEncode,
		NumberOfWorkers:   opts.NumWorkers,
		RequeueTimeout:    opts.RequeueTimeout,
	}
	logger.Infof("photo_encoder starting with settings: %s", settings.ToJSON())

	encoder := workers.NewEncoder(appCtx, settings)
	if err := encoder.RegisterAsNsqConsumer(); err != nil {
		logger.Fatalf("Could not register NSQ consumer: %v", err)
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)
	<-stopChan

	logger.Info("photo_encoder draining in-flight jobs")
	encoder.Stop()
}

func printHelp() {
	message := `
photo_encoder consumes photo re-encode jobs from NSQ, rotates each
image upright, re-encodes it to canonical JPEG, and writes the result
to object storage with long-lived cache headers.
`
	fmt.Println(message)
	fmt.Println(cli.EnvMessage)
}
