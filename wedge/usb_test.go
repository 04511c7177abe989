package wedge

import (
	"sync"
	"testing"
	"time"

	"github.com/google/gousb"
	"github.com/stretchr/testify/assert"
)

type nullSink struct {
	mu   sync.Mutex
	keys []rune
}

func (n *nullSink) Key(r rune, at time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.keys = append(n.keys, r)
}

func TestNewUSBWedgeAuto(t *testing.T) {
	w, err := NewUSBWedgeAuto(&nullSink{})
	if err != nil {
		t.Skip("No USB HID scanner found, skipping test")
	}
	defer w.Close()

	assert.NotNil(t, w)
	assert.NotNil(t, w.GetDevice())
	assert.False(t, w.IsOpen())
}

func TestFindScanners(t *testing.T) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	scanners := FindScanners(ctx)
	for _, dev := range scanners {
		dev.Close()
	}

	t.Logf("Found %d HID device(s)", len(scanners))
}

func TestIsHIDKeyboardNilDevice(t *testing.T) {
	assert.False(t, IsHIDKeyboard(nil))
}

func TestCloseWithoutOpen(t *testing.T) {
	w := &USBWedge{}
	assert.NoError(t, w.Close())
	assert.False(t, w.IsOpen())
}
