//go:build !wasip1

package pluginsdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetachedTransport(t *testing.T) {
	assert.IsType(t, detached{}, defaultTransport())

	prev := host
	host = detached{}
	t.Cleanup(func() { host = prev })

	_, err := Platform()
	assert.ErrorIs(t, err, ErrNoHost)
	assert.ErrorIs(t, WatchPath("src"), ErrNoHost)
}
