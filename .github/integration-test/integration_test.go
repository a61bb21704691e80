//go:build integration
// +build integration

package integration

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/jfreymuth/sinkvol"
	"github.com/jfreymuth/sinkvol/proto"
)

func open(t *testing.T, name string) *sinkvol.Conn {
	t.Helper()
	var c *sinkvol.Conn
	var err error
	// The server in CI doesn't accept connections immediately sometimes.
	// Retry a few times.
	for retry := 0; retry < 3; retry++ {
		c, err = sinkvol.Open(name, sinkvol.ConnLogger(zaptest.NewLogger(t)))
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestIntegration(t *testing.T) {
	c := open(t, "sinkvol-integration-missing-sink")

	s := c.Sink()
	if s.Exists {
		t.Fatal("nonexistent preferred sink reported as existing")
	}
	if s.Index == proto.Undefined {
		t.Skip("server has no default sink")
	}

	orig, err := c.VolumePercent()
	if err != nil {
		t.Fatal(err)
	}
	defer c.SetVolumePercent(float64(orig))

	if err := c.SetVolumePercent(40); err != nil {
		t.Fatal(err)
	}
	if v, err := c.VolumePercent(); err != nil || v < 39 || v > 41 {
		t.Errorf("expecting 40%%, got %d%% (%v)", v, err)
	}
	if err := c.AdjustVolumePercent(10); err != nil {
		t.Fatal(err)
	}
	if v, err := c.VolumePercent(); err != nil || v < 49 || v > 51 {
		t.Errorf("expecting 50%%, got %d%% (%v)", v, err)
	}

	muted, err := c.Muted()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := c.ToggleMute(); err != nil {
			t.Fatal(err)
		}
	}
	if m, err := c.Muted(); err != nil || m != muted {
		t.Errorf("mute state changed after two toggles (%v)", err)
	}

	// our own volume changes are reported as change events for the active sink
	select {
	case <-c.Events():
	case <-time.After(5 * time.Second):
		t.Fatal("no change events received")
	}
	if _, err := c.DrainEvents(); err != nil {
		t.Error(err)
	}
}
