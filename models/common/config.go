package common

import (
	"fmt"
	"os"
	"time"

	"github.com/op/go-logging"
	"github.com/spf13/viper"
)

type S3Credentials struct {
	Host      string
	KeyID     string
	SecretKey string
	UseSSL    bool
}

type Config struct {
	ConfigName      string
	JWTSecret       string
	ListenAddr      string
	LogDir          string
	LogLevel        logging.Level
	MaxFileSize     int64
	MongoDatabase   string
	MongoURL        string
	NsqLookupd      string
	NsqURL          string
	PhotoBucket     string
	PidFilePath     string
	RedisDefaultDB  int
	RedisPassword   string
	RedisURL        string
	RequestTimeout  time.Duration
	S3Credentials   S3Credentials
	SignedURLExpiry time.Duration
}

var logLevels = map[string]logging.Level{
	"CRITICAL": logging.CRITICAL,
	"ERROR":    logging.ERROR,
	"WARNING":  logging.WARNING,
	"NOTICE":   logging.NOTICE,
	"INFO":     logging.INFO,
	"DEBUG":    logging.DEBUG,
}

// NewConfig returns a new config based on env vars PHOTO_CONFIG_DIR
// and PHOTO_SERVICES_CONFIG. The latter names the settings file to
// load: "test" loads .env.test from the config dir, "demo" loads
// .env.demo, and so on.
func NewConfig() *Config {
	config := loadConfig()
	config.fillDefaults()
	config.sanityCheck()
	config.makeDirs()
	return config
}

func loadConfig() *Config {
	configDir, envName := getEnvVars()
	v := viper.New()
	v.AddConfigPath(configDir)
	v.SetConfigName(".env." + envName)
	v.SetConfigType("env")
	err := v.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("Fatal error config file: %s \n", err))
	}
	return &Config{
		ConfigName:     envName,
		JWTSecret:      v.GetString("JWT_SECRET"),
		ListenAddr:     v.GetString("LISTEN_ADDR"),
		LogDir:         v.GetString("LOG_DIR"),
		LogLevel:       logLevels[v.GetString("LOG_LEVEL")],
		MaxFileSize:    v.GetInt64("MAX_FILE_SIZE"),
		MongoDatabase:  v.GetString("MONGO_DATABASE"),
		MongoURL:       v.GetString("MONGO_URL"),
		NsqLookupd:     v.GetString("NSQ_LOOKUPD"),
		NsqURL:         v.GetString("NSQ_URL"),
		PhotoBucket:    v.GetString("PHOTO_BUCKET"),
		PidFilePath:    v.GetString("PID_FILE_PATH"),
		RedisDefaultDB: v.GetInt("REDIS_DEFAULT_DB"),
		RedisPassword:  v.GetString("REDIS_PASSWORD"),
		RedisURL:       v.GetString("REDIS_URL"),
		RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
		S3Credentials: S3Credentials{
			Host:      v.GetString("S3_HOST"),
			KeyID:     v.GetString("S3_KEY"),
			SecretKey: v.GetString("S3_SECRET"),
			UseSSL:    v.GetBool("S3_USE_SSL"),
		},
		SignedURLExpiry: v.GetDuration("SIGNED_URL_EXPIRY"),
	}
}

func getEnvVars() (string, string) {
	configDir := getRequiredEnvVar("PHOTO_CONFIG_DIR")
	envName := getRequiredEnvVar("PHOTO_SERVICES_CONFIG")
	return configDir, envName
}

func getRequiredEnvVar(varName string) string {
	value := os.Getenv(varName)
	if value == "" {
		panic(fmt.Sprintf("Required env var %s not set", varName))
	}
	return value
}

func (c *Config) fillDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.MaxFileSize == 0 {
		c.MaxFileSize = int64(20 * 1024 * 1024)
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.SignedURLExpiry == 0 {
		c.SignedURLExpiry = 15 * time.Minute
	}
	if c.MongoDatabase == "" {
		c.MongoDatabase = "snapmission"
	}
}

// Required settings have no sensible defaults. Fail at startup, not
// on the first request.
func (c *Config) sanityCheck() {
	required := map[string]string{
		"MONGO_URL":    c.MongoURL,
		"PHOTO_BUCKET": c.PhotoBucket,
		"S3_HOST":      c.S3Credentials.Host,
		"JWT_SECRET":   c.JWTSecret,
		"LOG_DIR":      c.LogDir,
	}
	for name, value := range required {
		if value == "" {
			panic(fmt.Sprintf("Config is missing required setting %s", name))
		}
	}
}

func (c *Config) makeDirs() {
	err := os.MkdirAll(c.LogDir, 0755)
	if err != nil {
		panic(err)
	}
}
