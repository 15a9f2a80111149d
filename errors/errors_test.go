package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelClassification(t *testing.T) {
	cfgErr := Wrap(ErrJobNotSendable, "template missing subject")
	assert.True(t, IsConfigurationError(cfgErr))
	assert.False(t, IsConfigurationError(ErrDeliveryFailed))
	assert.False(t, IsConfigurationError(nil))
}

func TestWrapPreservesSentinel(t *testing.T) {
	err := Wrap(Wrap(ErrDeliveryFailed, "smtp timeout"), "job jx_1")
	assert.True(t, Is(err, ErrDeliveryFailed))
	assert.False(t, Is(err, ErrJobNotSendable))
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("job %s", "jx_42")
	assert.True(t, IsNotFoundError(err))
	assert.Contains(t, err.Error(), "jx_42")
}
