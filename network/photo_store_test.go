package network_test

import (
	"testing"

	"github.com/snapmission/photo-services/network"
	"github.com/stretchr/testify/assert"
)

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 20, network.ClampLimit(0, 20, 50), "zero means caller sent no limit")
	assert.Equal(t, 1, network.ClampLimit(-5, 20, 50))
	assert.Equal(t, 1, network.ClampLimit(1, 20, 50))
	assert.Equal(t, 35, network.ClampLimit(35, 20, 50))
	assert.Equal(t, 50, network.ClampLimit(50, 20, 50))
	assert.Equal(t, 50, network.ClampLimit(900, 20, 50))
}
