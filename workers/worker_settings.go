package workers

import (
	"encoding/json"
	"time"
)

// Settings contains settings for the encode worker.
type Settings struct {
	// ChannelBufferSize is the size of the buffer for the
	// ProcessChannel, SuccessChannel, ErrorChannel, and
	// FatalErrorChannel. It also caps NSQ's max_in_flight.
	ChannelBufferSize int

	// MaxAttempts is the maximum number of times the worker should
	// attempt one job before giving up. This applies only to attempts
	// that fail from transient errors (storage timeouts and the
	// like); malformed jobs are dropped on the first attempt.
	//
	// A job that exhausts MaxAttempts leaves its record's blob
	// missing until someone re-uploads. That is the accepted
	// eventual-consistency gap: the record's pending marker stays in
	// Redis and its read URL resolves to null.
	MaxAttempts int

	// NSQChannel is the NSQ channel the worker subscribes to.
	NSQChannel string

	// NSQTopic is the NSQ topic the worker subscribes to.
	NSQTopic string

	// NumberOfWorkers is the number of go routines decoding and
	// re-encoding images. The re-encode is CPU-bound, so there is
	// little point setting this above the core count.
	NumberOfWorkers int

	// RequeueTimeout is how long NSQ waits before redelivering a job
	// that failed with a transient error.
	RequeueTimeout time.Duration
}

func (settings *Settings) ToJSON() string {
	data, _ := json.Marshal(settings)
	return string(data)
}
