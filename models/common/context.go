package common

import (
	ctx "context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/op/go-logging"
	"github.com/snapmission/photo-services/network"
	"github.com/snapmission/photo-services/util/logger"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"
)

// Context aggregates everything a photo service process needs to talk
// to the outside world: config, logger, the broker publisher, the
// pending-blob tracker, object storage, and the record store. Both
// apps (photo_api and photo_encoder) build exactly one of these at
// startup. Any connection failure here is a panic; there is no point
// starting a pipeline process that cannot reach its stores.
type Context struct {
	Config      *Config
	Logger      *logging.Logger
	NSQClient   *network.NSQClient
	RedisClient *network.RedisClient
	S3Client    *minio.Client
	ObjectStore network.ObjectStore
	PhotoStore  network.PhotoStore
}

func NewContext() *Context {
	config := NewConfig()
	_logger := getLogger(config)
	s3Client := getS3Client(config)
	return &Context{
		Config:      config,
		Logger:      _logger,
		NSQClient:   network.NewNSQClient(config.NsqURL),
		RedisClient: getRedisClient(config),
		S3Client:    s3Client,
		ObjectStore: network.NewMinioStore(s3Client, config.PhotoBucket),
		PhotoStore:  getPhotoStore(config, _logger),
	}
}

func getLogger(config *Config) *logging.Logger {
	logger, _ := logger.InitLogger(config.LogDir, config.LogLevel)
	return logger
}

func getRedisClient(config *Config) *network.RedisClient {
	return network.NewRedisClient(
		config.RedisURL,
		config.RedisPassword,
		config.RedisDefaultDB)
}

func getS3Client(config *Config) *minio.Client {
	client, err := minio.New(
		config.S3Credentials.Host,
		&minio.Options{
			Creds:  credentials.NewStaticV4(config.S3Credentials.KeyID, config.S3Credentials.SecretKey, ""),
			Secure: config.S3Credentials.UseSSL,
		})
	if err != nil {
		panic(err)
	}
	return client
}

func getPhotoStore(config *Config, logger *logging.Logger) network.PhotoStore {
	connectCtx, cancel := ctx.WithTimeout(ctx.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, mongoopts.Client().ApplyURI(config.MongoURL))
	if err != nil {
		panic(fmt.Sprintf("Could not connect to Mongo at %s: %v", config.MongoURL, err))
	}
	if err = client.Ping(connectCtx, nil); err != nil {
		panic(fmt.Sprintf("Mongo at %s did not answer ping: %v", config.MongoURL, err))
	}
	return network.NewMongoPhotoStore(client.Database(config.MongoDatabase), logger)
}
