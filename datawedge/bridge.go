// Package datawedge adapts a vendor scan service to the completed-scan
// shape used by the rest of the agent. Handheld scanning hardware
// ships a vendor daemon that broadcasts already-decoded barcodes; this
// bridge subscribes to that broadcast over a local websocket and never
// touches raw keystrokes.
package datawedge

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// reconnectDelay paces reconnection attempts to the vendor service.
const reconnectDelay = 5 * time.Second

// Scan is one vendor-delivered barcode.
type Scan struct {
	Data      string
	Timestamp time.Time
}

// wireScan is the vendor broadcast payload.
type wireScan struct {
	Data        string `json:"data"`
	TimestampMs int64  `json:"timestampMs,omitempty"`
}

// wireCommand is a control message sent to the vendor service.
type wireCommand struct {
	Action string `json:"action"`
}

// Bridge maintains the connection to the vendor scan service and
// invokes the scan callback once per physical scan.
type Bridge struct {
	url    string
	onScan func(Scan)
	logger *log.Logger

	// writeMu serializes control writes; gorilla allows only one
	// concurrent writer per connection.
	writeMu sync.Mutex

	mu        sync.Mutex
	conn      *websocket.Conn
	available bool
	lastScan  Scan
	hasScan   bool
	running   bool
	stop      chan struct{}
}

// NewBridge creates a bridge to the vendor service at url. The scan
// callback runs on the bridge's read goroutine.
func NewBridge(url string, onScan func(Scan)) *Bridge {
	logger := log.New(os.Stdout, "[DATAWEDGE] ", log.LstdFlags|log.Lmsgprefix)
	return NewBridgeWithLogger(url, onScan, logger)
}

// NewBridgeWithLogger creates a bridge with a custom logger.
func NewBridgeWithLogger(url string, onScan func(Scan), logger *log.Logger) *Bridge {
	return &Bridge{url: url, onScan: onScan, logger: logger}
}

// Start begins connecting in the background. The bridge reconnects
// until Stop is called; availability tracks the live connection.
func (b *Bridge) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return
	}
	b.running = true
	b.stop = make(chan struct{})
	go b.run(b.stop)
}

// Stop disconnects and halts reconnection.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	close(b.stop)
	conn := b.conn
	b.conn = nil
	b.available = false
	b.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// IsAvailable reports whether the vendor service is connected.
func (b *Bridge) IsAvailable() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.available
}

// LastScan returns the most recent vendor scan, if any.
func (b *Bridge) LastScan() (Scan, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastScan, b.hasScan
}

// TriggerScan asks the hardware to fire its scan beam. Fire and
// forget: when the vendor service is unavailable this is a silent
// no-op, observable only through IsAvailable.
func (b *Bridge) TriggerScan() {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()

	if conn == nil {
		return
	}

	b.writeMu.Lock()
	err := conn.WriteJSON(wireCommand{Action: "trigger"})
	b.writeMu.Unlock()
	if err != nil {
		b.logger.Printf("Trigger failed: %v", err)
	}
}

func (b *Bridge) run(stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(b.url, nil)
		if err != nil {
			b.logger.Printf("Vendor service unavailable: %v. Retrying in %s...", err, reconnectDelay)
			select {
			case <-stop:
				return
			case <-time.After(reconnectDelay):
				continue
			}
		}

		b.mu.Lock()
		if !b.running {
			b.mu.Unlock()
			conn.Close()
			return
		}
		b.conn = conn
		b.available = true
		b.mu.Unlock()
		b.logger.Println("Connected to vendor scan service")

		b.readLoop(conn)

		b.mu.Lock()
		b.conn = nil
		b.available = false
		running := b.running
		b.mu.Unlock()
		conn.Close()

		if !running {
			return
		}
		b.logger.Printf("Disconnected. Reconnecting in %s...", reconnectDelay)
		select {
		case <-stop:
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// readLoop consumes vendor broadcasts until the connection drops.
func (b *Bridge) readLoop(conn *websocket.Conn) {
	for {
		var msg wireScan
		if err := conn.ReadJSON(&msg); err != nil {
			b.logger.Printf("Read error: %v", err)
			return
		}
		if msg.Data == "" {
			continue
		}

		scan := Scan{Data: msg.Data, Timestamp: time.Now()}
		if msg.TimestampMs > 0 {
			scan.Timestamp = time.UnixMilli(msg.TimestampMs)
		}

		b.mu.Lock()
		b.lastScan = scan
		b.hasScan = true
		b.mu.Unlock()

		if b.onScan != nil {
			b.onScan(scan)
		}
	}
}
