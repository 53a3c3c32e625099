package cli

import (
	"flag"
	"time"
)

type Options struct {
	ChannelBufferSize int
	MaxAttempts       int
	NumWorkers        int
	PrintHelp         bool
	RequeueTimeout    time.Duration
}

var opts = Options{}
var defaultAttempts = 5
var defaultBufSize = 20
var defaultWorkers = 3
var defaultTimeout = 30 * time.Second

var EnvMessage = `This requires the following environment vars:

PHOTO_CONFIG_DIR - Path to the directory containing the .env settings file.

PHOTO_SERVICES_CONFIG - Name of the configuration to load. For example:
    test - Loads .env.test from PHOTO_CONFIG_DIR
    demo - Loads .env.demo from PHOTO_CONFIG_DIR
`

func Init() {
	flag.IntVar(&opts.ChannelBufferSize, "bufsize", defaultBufSize, "Channel buffer size for go workers")
	flag.IntVar(&opts.MaxAttempts, "max-attempts", defaultAttempts, "Maximum number of times the worker should attempt to process a job")
	flag.IntVar(&opts.NumWorkers, "workers", defaultWorkers, "Number of go routines to handle re-encode work")
	flag.BoolVar(&opts.PrintHelp, "help", false, "Print help message")
	flag.DurationVar(&opts.RequeueTimeout, "requeue-timeout", defaultTimeout, "Requeue timeout for jobs that failed with transient errors. Format examples: 500ms, 12s, 10m, 3m30s, 3h")
}

func ParseOpts() Options {
	flag.Parse()
	return opts
}

func PrintDefaults() {
	flag.PrintDefaults()
}
