// Package scanner classifies raw keystroke streams, separating barcode
// scanner bursts from ordinary human typing by inter-key timing.
package scanner

import (
	"errors"
	"sync"
	"time"
	"unicode"
)

// Default timing values. Both are tunables; the inter-key timeout is the
// core discriminator between machine-paced and human-paced input.
const (
	DefaultInterKeyTimeout = 50 * time.Millisecond
	DefaultCommitTimeout   = 300 * time.Millisecond
)

// KeystrokeEvent is a single physical keypress with its arrival time.
// Arrival times must come from time.Now so the monotonic reading is
// carried; calendar adjustments must not split or merge scans.
type KeystrokeEvent struct {
	Char rune
	At   time.Time
}

// Config controls scan detection and validation.
type Config struct {
	// MinLength and MaxLength bound the accepted barcode length.
	MinLength int
	MaxLength int

	// InterKeyTimeout is the largest gap between two keystrokes that
	// still counts as one machine burst. Zero selects the default.
	InterKeyTimeout time.Duration

	// CommitTimeout finalizes a non-terminated buffer after a quiet
	// period. Zero selects the default.
	CommitTimeout time.Duration

	// OnlyNumeric rejects buffers containing any non-digit.
	OnlyNumeric bool

	// TabTerminator accepts Tab as a terminator in addition to Enter.
	// Some scanners are configured with a Tab suffix instead of CR.
	TabTerminator bool
}

// Validate checks the length bounds.
func (c Config) Validate() error {
	if c.MinLength <= 0 {
		return errors.New("min length must be positive")
	}
	if c.MaxLength < c.MinLength {
		return errors.New("max length must be >= min length")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.InterKeyTimeout <= 0 {
		c.InterKeyTimeout = DefaultInterKeyTimeout
	}
	if c.CommitTimeout <= 0 {
		c.CommitTimeout = DefaultCommitTimeout
	}
	return c
}

// Classifier consumes keystroke events and emits completed barcodes.
// It owns a single buffer: events are processed synchronously in
// arrival order, so concurrent scans cannot interleave. Invalid
// buffers are discarded silently; a rejected burst may simply be a
// human typing near the input and must not surface as an error.
type Classifier struct {
	cfg    Config
	onScan func(barcode string)

	mu     sync.Mutex
	buf    []KeystrokeEvent
	lastAt time.Time
	timer  *time.Timer
	gen    uint64
	closed bool
}

// New creates a classifier that calls onScan once per accepted barcode.
// The callback runs on the goroutine that fed the final keystroke, or
// on the commit timer goroutine for quiet-period finalization.
func New(cfg Config, onScan func(barcode string)) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if onScan == nil {
		return nil, errors.New("onScan callback is required")
	}
	return &Classifier{cfg: cfg.withDefaults(), onScan: onScan}, nil
}

// KeyNow feeds a keystroke stamped with the current time.
func (c *Classifier) KeyNow(r rune) {
	c.Key(r, time.Now())
}

// Key feeds one keystroke. A terminator finalizes the buffer
// immediately; otherwise the character is appended, flushing a stale
// buffer first when the gap since the previous keystroke exceeds the
// inter-key timeout.
func (c *Classifier) Key(r rune, at time.Time) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	var code string
	if c.isTerminator(r) {
		code = c.finalizeLocked()
	} else {
		if len(c.buf) > 0 && at.Sub(c.lastAt) > c.cfg.InterKeyTimeout {
			// Stale buffer: the pause means the earlier characters
			// were not part of this burst. Discard them, keep the
			// new key.
			c.buf = c.buf[:0]
		}
		c.buf = append(c.buf, KeystrokeEvent{Char: r, At: at})
		c.lastAt = at
		c.armCommitLocked()
	}
	c.mu.Unlock()

	if code != "" {
		c.onScan(code)
	}
}

// Flush finalizes the current buffer as if the commit timeout expired.
func (c *Classifier) Flush() {
	c.mu.Lock()
	code := c.finalizeLocked()
	c.mu.Unlock()

	if code != "" {
		c.onScan(code)
	}
}

// Reset discards the current buffer without emitting.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf = c.buf[:0]
	c.gen++
	c.stopTimerLocked()
}

// Pending reports how many characters are buffered and not yet
// committed or discarded.
func (c *Classifier) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}

// Close stops the commit timer. Further keystrokes are ignored.
func (c *Classifier) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.buf = nil
	c.stopTimerLocked()
}

func (c *Classifier) isTerminator(r rune) bool {
	if r == '\r' || r == '\n' {
		return true
	}
	return c.cfg.TabTerminator && r == '\t'
}

// armCommitLocked schedules finalization after the commit timeout. The
// generation counter invalidates timers superseded by later keystrokes.
func (c *Classifier) armCommitLocked() {
	c.gen++
	gen := c.gen
	c.stopTimerLocked()
	c.timer = time.AfterFunc(c.cfg.CommitTimeout, func() {
		c.mu.Lock()
		if c.closed || c.gen != gen {
			c.mu.Unlock()
			return
		}
		code := c.finalizeLocked()
		c.mu.Unlock()

		if code != "" {
			c.onScan(code)
		}
	})
}

func (c *Classifier) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// finalizeLocked validates the buffer, clears it, and returns the
// barcode to emit, or "" when the buffer is empty or invalid. An
// invalid buffer is dropped without notice.
func (c *Classifier) finalizeLocked() string {
	c.gen++
	c.stopTimerLocked()

	n := len(c.buf)
	if n == 0 {
		return ""
	}
	defer func() { c.buf = c.buf[:0] }()

	if n < c.cfg.MinLength || n > c.cfg.MaxLength {
		return ""
	}

	out := make([]rune, 0, n)
	for _, ev := range c.buf {
		if c.cfg.OnlyNumeric && !unicode.IsDigit(ev.Char) {
			return ""
		}
		out = append(out, ev.Char)
	}
	return string(out)
}
