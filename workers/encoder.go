package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/snapmission/photo-services/constants"
	"github.com/snapmission/photo-services/ingest"
	"github.com/snapmission/photo-services/models/common"
	"github.com/snapmission/photo-services/models/service"
)

// EncodeTask carries one job through the encoder's channels.
type EncodeTask struct {
	Job     *service.EncodeJob
	Message *nsq.Message
	Error   *service.ProcessingError
}

// Encoder is the background half of the photo pipeline. It consumes
// re-encode jobs from NSQ, re-applies the deterministic rotate and
// re-encode, and writes the blob to object storage with long-lived
// cache headers. Because the transform is deterministic and the
// destination key is fixed per upload attempt, a redelivered job
// overwrites the same key with the same bytes, so at-least-once
// delivery needs no dedup.
type Encoder struct {
	Context  *common.Context
	Settings *Settings

	// ProcessChannel is where the decode and re-encode happens.
	ProcessChannel chan *EncodeTask

	// SuccessChannel processes jobs whose blob was stored.
	SuccessChannel chan *EncodeTask

	// ErrorChannel processes jobs that failed with transient errors
	// and may be requeued.
	ErrorChannel chan *EncodeTask

	// FatalErrorChannel processes jobs that can never succeed.
	FatalErrorChannel chan *EncodeTask

	// NSQConsumer implements HandleMessage to receive jobs from NSQ.
	NSQConsumer *nsq.Consumer
}

// NewEncoder creates a new Encoder and starts its worker goroutines.
// It does not start consuming from NSQ until you call
// RegisterAsNsqConsumer.
func NewEncoder(ctx *common.Context, settings *Settings) *Encoder {
	encoder := &Encoder{
		Context:           ctx,
		Settings:          settings,
		ProcessChannel:    make(chan *EncodeTask, settings.ChannelBufferSize),
		SuccessChannel:    make(chan *EncodeTask, settings.ChannelBufferSize),
		ErrorChannel:      make(chan *EncodeTask, settings.ChannelBufferSize),
		FatalErrorChannel: make(chan *EncodeTask, settings.ChannelBufferSize),
	}
	for i := 0; i < settings.NumberOfWorkers; i++ {
		go encoder.ProcessItem()
	}
	go encoder.ProcessSuccessChannel()
	go encoder.ProcessErrorChannel()
	go encoder.ProcessFatalErrorChannel()
	return encoder
}

// RegisterAsNsqConsumer subscribes this worker to the photo_encode
// topic. As soon as you call this, the worker starts handling
// messages if any are available.
func (e *Encoder) RegisterAsNsqConsumer() error {
	config := nsq.NewConfig()
	config.Set("heartbeat_interval", "10s")
	config.Set("max_in_flight", e.Settings.ChannelBufferSize)
	consumer, err := nsq.NewConsumer(e.Settings.NSQTopic, e.Settings.NSQChannel, config)
	if err != nil {
		return err
	}
	e.NSQConsumer = consumer
	e.NSQConsumer.AddHandler(e)
	err = e.NSQConsumer.ConnectToNSQLookupd(e.Context.Config.NsqLookupd)
	if err != nil {
		return err
	}
	e.Context.Logger.Info("Registered as NSQ consumer")
	return nil
}

// HandleMessage parses an encode job and pushes it into the
// ProcessChannel. Malformed payloads are dropped here: redelivery
// cannot fix them, and returning nil tells NSQ they are done.
func (e *Encoder) HandleMessage(message *nsq.Message) error {
	job, err := service.EncodeJobFromJSON(message.Body)
	if err == nil {
		err = job.Validate()
	}
	if err != nil {
		e.Context.Logger.Errorf("Dropping malformed encode job: %v", err)
		EncodeJobsTotal.WithLabelValues("malformed").Inc()
		return nil
	}
	message.DisableAutoResponse()
	e.ProcessChannel <- &EncodeTask{Job: job, Message: message}
	return nil
}

// ProcessItem runs the re-encode for tasks in the ProcessChannel and
// routes each to the SuccessChannel, ErrorChannel, or
// FatalErrorChannel depending on the outcome.
func (e *Encoder) ProcessItem() {
	for task := range e.ProcessChannel {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		task.Error = e.ProcessJob(ctx, task.Job)
		cancel()
		if task.Error == nil {
			e.SuccessChannel <- task
		} else if task.Error.IsFatal {
			e.FatalErrorChannel <- task
		} else {
			e.ErrorChannel <- task
		}
	}
}

// ProcessJob performs the actual work for one job: rotate, re-encode,
// and store. It is idempotent, and exported so tests can run it
// without a live NSQ connection.
func (e *Encoder) ProcessJob(ctx context.Context, job *service.EncodeJob) *service.ProcessingError {
	if err := job.Validate(); err != nil {
		return service.NewProcessingError(job.ObjectKey, err.Error(), true)
	}
	norm := ingest.NormalizeImage(job.ImageData, job.ContentType)
	if !norm.Canonical {
		e.Context.Logger.Warningf("Could not re-encode %s, storing original bytes as %s",
			job.ObjectKey, norm.MimeType)
	}
	err := e.Context.ObjectStore.Put(ctx, job.ObjectKey, norm.Data,
		norm.MimeType, constants.BlobCacheControl)
	if err != nil {
		msg := fmt.Sprintf("Could not store blob %s: %v", job.ObjectKey, err)
		return service.NewProcessingError(job.ObjectKey, msg, false)
	}
	e.clearPending(job.ObjectKey)
	return nil
}

func (e *Encoder) ProcessSuccessChannel() {
	for task := range e.SuccessChannel {
		e.Context.Logger.Infof("Stored blob %s (%d bytes in job)",
			task.Job.ObjectKey, len(task.Job.ImageData))
		EncodeJobsTotal.WithLabelValues("ok").Inc()
		task.Message.Finish()
	}
}

func (e *Encoder) ProcessErrorChannel() {
	for task := range e.ErrorChannel {
		attempts := int(task.Message.Attempts)
		if attempts >= e.Settings.MaxAttempts {
			// Giving up leaves the record's blob missing until a
			// re-upload. The pending marker in Redis stays set so
			// operators can find these.
			e.Context.Logger.Errorf("Giving up on %s after %d attempts: %v",
				task.Job.ObjectKey, attempts, task.Error)
			EncodeJobsTotal.WithLabelValues("exhausted").Inc()
			task.Message.Finish()
		} else {
			e.Context.Logger.Warningf("Requeueing %s (attempt %d): %v",
				task.Job.ObjectKey, attempts, task.Error)
			EncodeJobsTotal.WithLabelValues("requeued").Inc()
			task.Message.Requeue(e.Settings.RequeueTimeout)
		}
	}
}

func (e *Encoder) ProcessFatalErrorChannel() {
	for task := range e.FatalErrorChannel {
		e.Context.Logger.Errorf("Fatal error on %s: %v", task.Job.ObjectKey, task.Error)
		EncodeJobsTotal.WithLabelValues("fatal").Inc()
		task.Message.Finish()
	}
}

// Stop disconnects from NSQ and waits for in-flight messages to be
// finished or requeued.
func (e *Encoder) Stop() {
	if e.NSQConsumer != nil {
		e.NSQConsumer.Stop()
		<-e.NSQConsumer.StopChan
	}
}

func (e *Encoder) clearPending(objectKey string) {
	if e.Context.RedisClient == nil {
		return
	}
	if err := e.Context.RedisClient.PendingBlobDelete(objectKey); err != nil {
		e.Context.Logger.Warningf("Could not clear pending marker for %s: %v", objectKey, err)
	}
}
