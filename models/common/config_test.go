package common_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/snapmission/photo-services/models/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, ".env."+name), []byte(contents), 0644)
	require.NoError(t, err)
}

func TestNewConfig(t *testing.T) {
	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")
	writeConfigFile(t, dir, "test", `
JWT_SECRET=unit-test-secret
LOG_DIR=`+logDir+`
LOG_LEVEL=DEBUG
MAX_FILE_SIZE=1048576
MONGO_URL=mongodb://localhost:27017
NSQ_LOOKUPD=localhost:4161
NSQ_URL=http://localhost:4151
PHOTO_BUCKET=photos-test
REDIS_URL=localhost:6379
REQUEST_TIMEOUT=45s
S3_HOST=localhost:9899
S3_KEY=minioadmin
S3_SECRET=minioadmin
SIGNED_URL_EXPIRY=10m
`)
	t.Setenv("PHOTO_CONFIG_DIR", dir)
	t.Setenv("PHOTO_SERVICES_CONFIG", "test")

	config := common.NewConfig()
	assert.Equal(t, "test", config.ConfigName)
	assert.Equal(t, "unit-test-secret", config.JWTSecret)
	assert.Equal(t, int64(1048576), config.MaxFileSize)
	assert.Equal(t, "mongodb://localhost:27017", config.MongoURL)
	assert.Equal(t, "photos-test", config.PhotoBucket)
	assert.Equal(t, "localhost:9899", config.S3Credentials.Host)
	assert.Equal(t, 45*time.Second, config.RequestTimeout)
	assert.Equal(t, 10*time.Minute, config.SignedURLExpiry)

	// Defaults for settings the file omits.
	assert.Equal(t, ":8080", config.ListenAddr)
	assert.Equal(t, "snapmission", config.MongoDatabase)

	// The log dir is created so the logger never has to care.
	info, err := os.Stat(logDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewConfigPanicsWithoutRequiredSettings(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "incomplete", "LISTEN_ADDR=:9000\n")
	t.Setenv("PHOTO_CONFIG_DIR", dir)
	t.Setenv("PHOTO_SERVICES_CONFIG", "incomplete")

	assert.Panics(t, func() { common.NewConfig() })
}

func TestNewConfigPanicsWithoutEnvVars(t *testing.T) {
	t.Setenv("PHOTO_CONFIG_DIR", "")
	t.Setenv("PHOTO_SERVICES_CONFIG", "")
	assert.Panics(t, func() { common.NewConfig() })
}

func TestNewConfigPanicsOnMissingFile(t *testing.T) {
	t.Setenv("PHOTO_CONFIG_DIR", t.TempDir())
	t.Setenv("PHOTO_SERVICES_CONFIG", "no-such-config")
	assert.Panics(t, func() { common.NewConfig() })
}
