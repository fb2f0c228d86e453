package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// The worker main defers Close and also calls it from its signal handler, so
// a second Close must be a no-op.
func TestRabbitMQReceiverCloseIsIdempotent(t *testing.T) {
	c := &RabbitMQReceiver{
		tasks: make(chan Task),
		stop:  make(chan struct{}),
	}

	assert.NotPanics(t, func() {
		c.Close()
		c.Close()
	})

	select {
	case <-c.stop:
	default:
		t.Fatal("stop channel should be closed")
	}
}
