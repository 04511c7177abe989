// Package controller is the integration point for scan input. It owns
// exactly one input source per configuration (keystroke classifier or
// vendor bridge, never both, so hybrid hardware cannot double-emit),
// applies business validation, and keeps a bounded scan history.
package controller

import (
	"errors"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shopfloor-systems/posbridge/datawedge"
	"github.com/shopfloor-systems/posbridge/scanner"
)

// Source identifies which channel produced a scan.
type Source string

const (
	SourceKeyboard  Source = "keyboard"
	SourceDataWedge Source = "datawedge"
	SourceManual    Source = "manual"
)

// DefaultMaxHistory bounds the in-memory scan history.
const DefaultMaxHistory = 20

// ScanResult is one accepted scan. Immutable once emitted.
type ScanResult struct {
	Barcode    string    `json:"barcode"`
	Source     Source    `json:"source"`
	AcceptedAt time.Time `json:"acceptedAt"`
}

// Config wires the controller.
type Config struct {
	// Scanner configures the keystroke classifier. Ignored when
	// UseDataWedge is set.
	Scanner scanner.Config

	// UseDataWedge selects the vendor bridge instead of the
	// keystroke classifier.
	UseDataWedge bool

	// DataWedgeURL is the vendor scan service endpoint. Required in
	// datawedge mode.
	DataWedgeURL string

	// MaxHistory bounds the scan history. Zero selects the default.
	MaxHistory int

	// Validate is an optional business rule applied to every scan,
	// hardware or manual. A non-nil error rejects the scan.
	Validate func(barcode string) error

	// OnScan is the application callback, invoked at most once per
	// accepted scan.
	OnScan func(result ScanResult)

	// OnFeedback, when set, receives transient operator feedback:
	// accepted=true with the barcode, or accepted=false with the
	// rejection message.
	OnFeedback func(accepted bool, message string)
}

// Controller routes completed scans from its single input source
// through validation to the application.
type Controller struct {
	cfg    Config
	logger *log.Logger

	classifier *scanner.Classifier
	bridge     *datawedge.Bridge

	mu      sync.Mutex
	history []ScanResult
	input   string
}

// New creates a controller and its input source.
func New(cfg Config) (*Controller, error) {
	logger := log.New(os.Stdout, "[SCANNER] ", log.LstdFlags|log.Lmsgprefix)
	return NewWithLogger(cfg, logger)
}

// NewWithLogger creates a controller with a custom logger.
func NewWithLogger(cfg Config, logger *log.Logger) (*Controller, error) {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultMaxHistory
	}

	c := &Controller{cfg: cfg, logger: logger}

	if cfg.UseDataWedge {
		if cfg.DataWedgeURL == "" {
			return nil, errors.New("datawedge url is required")
		}
		c.bridge = datawedge.NewBridgeWithLogger(cfg.DataWedgeURL, func(s datawedge.Scan) {
			c.HandleScan(s.Data, SourceDataWedge)
		}, logger)
		return c, nil
	}

	cl, err := scanner.New(cfg.Scanner, func(barcode string) {
		c.HandleScan(barcode, SourceKeyboard)
	})
	if err != nil {
		return nil, err
	}
	c.classifier = cl
	return c, nil
}

// Start brings the input source up. In keyboard mode the classifier is
// passive and Start is a no-op.
func (c *Controller) Start() {
	if c.bridge != nil {
		c.bridge.Start()
	}
}

// Stop tears the input source down.
func (c *Controller) Stop() {
	if c.bridge != nil {
		c.bridge.Stop()
	}
	if c.classifier != nil {
		c.classifier.Close()
	}
}

// Key feeds one keystroke to the classifier. Ignored in datawedge
// mode: the vendor hardware decodes barcodes itself.
func (c *Controller) Key(r rune, at time.Time) {
	if c.classifier != nil {
		c.classifier.Key(r, at)
	}
}

// KeyNow feeds a keystroke stamped with the current time.
func (c *Controller) KeyNow(r rune) {
	if c.classifier != nil {
		c.classifier.KeyNow(r)
	}
}

// TriggerScan fires the hardware scan beam in datawedge mode.
func (c *Controller) TriggerScan() {
	if c.bridge != nil {
		c.bridge.TriggerScan()
	}
}

// Mode reports which input source this controller owns.
func (c *Controller) Mode() Source {
	if c.bridge != nil {
		return SourceDataWedge
	}
	return SourceKeyboard
}

// HardwareAvailable reports whether the vendor service is reachable.
// Keyboard mode has no vendor service and always reports false.
func (c *Controller) HardwareAvailable() bool {
	return c.bridge != nil && c.bridge.IsAvailable()
}

// SubmitManual validates an operator-typed barcode exactly like a
// hardware scan. The classifier is bypassed; there is one validation
// contract regardless of input source.
func (c *Controller) SubmitManual(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	c.HandleScan(text, SourceManual)
}

// HandleScan runs a completed barcode through validation and, when it
// passes, forwards it to the application and records it in history.
// Rejected scans never reach the callback or the history.
func (c *Controller) HandleScan(barcode string, source Source) {
	if c.cfg.Validate != nil {
		if err := c.cfg.Validate(barcode); err != nil {
			c.logger.Printf("Rejected %q from %s: %v", barcode, source, err)
			c.feedback(false, err.Error())
			return
		}
	}

	result := ScanResult{Barcode: barcode, Source: source, AcceptedAt: time.Now()}

	c.mu.Lock()
	c.remember(result)
	c.input = barcode
	c.mu.Unlock()

	c.logger.Printf("Accepted %q from %s", barcode, source)
	if c.cfg.OnScan != nil {
		c.cfg.OnScan(result)
	}
	c.feedback(true, barcode)
}

// remember appends to history with move-to-front dedup: re-scanning a
// known barcode moves it forward instead of storing it twice. Oldest
// entries are evicted past MaxHistory. Caller holds the lock.
func (c *Controller) remember(result ScanResult) {
	for i, r := range c.history {
		if r.Barcode == result.Barcode {
			c.history = append(c.history[:i], c.history[i+1:]...)
			break
		}
	}
	c.history = append([]ScanResult{result}, c.history...)
	if len(c.history) > c.cfg.MaxHistory {
		c.history = c.history[:c.cfg.MaxHistory]
	}
}

// History returns the scans from newest to oldest.
func (c *Controller) History() []ScanResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ScanResult(nil), c.history...)
}

// ClearHistory empties the history.
func (c *Controller) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
}

// SelectFromHistory repopulates the input field from a past scan
// without re-emitting it. Returns false when the barcode is not in
// history.
func (c *Controller) SelectFromHistory(barcode string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.history {
		if r.Barcode == barcode {
			c.input = barcode
			return true
		}
	}
	return false
}

// Input returns the current manual-entry field contents.
func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// SetInput updates the manual-entry field without submitting it.
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = text
}

func (c *Controller) feedback(accepted bool, message string) {
	if c.cfg.OnFeedback != nil {
		c.cfg.OnFeedback(accepted, message)
	}
}
