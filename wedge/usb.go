// Package wedge reads barcode scanners attached as USB HID keyboards.
// A scanner in keyboard-emulation mode types its decode like a very
// fast typist; this package claims the device directly (bypassing the
// OS keyboard stack) and feeds the keystrokes to a sink, typically the
// scan classifier.
package wedge

import (
	"errors"
	"fmt"
	"log"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/gousb"
)

// Interface class codes
// Reference: http://www.usb.org/developers/defined_class
const (
	IfaceClassHID = 0x03
)

// KeySink consumes timestamped keystrokes.
type KeySink interface {
	Key(r rune, at time.Time)
}

// USBWedge manages one HID scanner device.
type USBWedge struct {
	device     *gousb.Device
	ctx        *gousb.Context
	iface      *gousb.Interface
	inEndpoint *gousb.InEndpoint
	sink       KeySink
	logger     *log.Logger
	decoder    ReportDecoder
	mu         sync.Mutex
	isOpen     bool
	stop       chan struct{}
}

// NewUSBWedge creates a wedge for the device with the given VID/PID.
func NewUSBWedge(vid, pid uint16, sink KeySink) (*USBWedge, error) {
	ctx := gousb.NewContext()

	device, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil || device == nil {
		ctx.Close()
		return nil, errors.New("cannot find scanner device")
	}

	return newWedge(ctx, device, sink), nil
}

// NewUSBWedgeAuto creates a wedge for the first HID scanner found.
func NewUSBWedgeAuto(sink KeySink) (*USBWedge, error) {
	ctx := gousb.NewContext()

	devices := FindScanners(ctx)
	if len(devices) == 0 {
		ctx.Close()
		return nil, errors.New("cannot find scanner device")
	}

	return newWedge(ctx, devices[0], sink), nil
}

func newWedge(ctx *gousb.Context, device *gousb.Device, sink KeySink) *USBWedge {
	logger := log.New(os.Stdout, "[WEDGE] ", log.LstdFlags|log.Lmsgprefix)
	return &USBWedge{ctx: ctx, device: device, sink: sink, logger: logger}
}

// IsHIDKeyboard checks if a device exposes a HID interface.
func IsHIDKeyboard(dev *gousb.Device) bool {
	if dev == nil {
		return false
	}

	cfg, err := dev.ActiveConfigNum()
	if err != nil {
		return false
	}

	cfgDesc, err := dev.Config(cfg)
	if err != nil {
		return false
	}
	defer cfgDesc.Close()

	for _, iface := range cfgDesc.Desc.Interfaces {
		for _, alt := range iface.AltSettings {
			if alt.Class == IfaceClassHID {
				return true
			}
		}
	}

	return false
}

// FindScanners returns all USB devices exposing a HID interface.
func FindScanners(ctx *gousb.Context) []*gousb.Device {
	var scanners []*gousb.Device

	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return true // Check all devices
	})
	if err != nil {
		// Some devices may fail to open; keep the ones that did.
		if len(devices) == 0 {
			return nil
		}
	}

	for _, dev := range devices {
		if IsHIDKeyboard(dev) {
			scanners = append(scanners, dev)
		} else {
			dev.Close()
		}
	}

	return scanners
}

// Open claims the HID interface and starts the report read loop.
func (w *USBWedge) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isOpen {
		return errors.New("device already open")
	}

	if w.device == nil {
		return errors.New("device not found")
	}

	// Set auto-detach kernel driver on Linux; the kernel normally owns
	// HID keyboards.
	if runtime.GOOS == "linux" {
		w.device.SetAutoDetach(true)
	}

	cfgNum, err := w.device.ActiveConfigNum()
	if err != nil {
		return fmt.Errorf("failed to get active config: %w", err)
	}

	cfg, err := w.device.Config(cfgNum)
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}
	defer cfg.Close()

	// Find HID interface
	hidIfaceNum := -1
	for _, iface := range cfg.Desc.Interfaces {
		for _, alt := range iface.AltSettings {
			if alt.Class == IfaceClassHID {
				hidIfaceNum = iface.Number
				break
			}
		}
		if hidIfaceNum >= 0 {
			break
		}
	}

	if hidIfaceNum < 0 {
		return errors.New("no HID interface found")
	}

	iface, err := cfg.Interface(hidIfaceNum, 0)
	if err != nil {
		return fmt.Errorf("failed to claim interface: %w", err)
	}

	w.iface = iface

	// Find the interrupt IN endpoint carrying the key reports
	for _, epDesc := range iface.Setting.Endpoints {
		if epDesc.Direction == gousb.EndpointDirectionIn && epDesc.TransferType == gousb.TransferTypeInterrupt {
			ep, err := iface.InEndpoint(epDesc.Number)
			if err == nil {
				w.inEndpoint = ep
				break
			}
		}
	}

	if w.inEndpoint == nil {
		return errors.New("cannot find interrupt endpoint on scanner")
	}

	w.decoder.Reset()
	w.isOpen = true
	w.stop = make(chan struct{})
	go w.readLoop(w.stop)

	w.logger.Println("Scanner device opened")
	return nil
}

// readLoop reads boot keyboard reports until Close.
func (w *USBWedge) readLoop(stop chan struct{}) {
	buf := make([]byte, 8)
	for {
		select {
		case <-stop:
			return
		default:
		}

		n, err := w.inEndpoint.Read(buf)
		if err != nil {
			select {
			case <-stop:
			default:
				w.logger.Printf("Read failed: %v", err)
			}
			return
		}
		if n < 8 {
			continue
		}

		at := time.Now()
		for _, r := range w.decoder.Decode(buf[:n]) {
			w.sink.Key(r, at)
		}
	}
}

// Close releases the interface, the device, and the USB context. Safe
// to call after a failed Open or more than once.
func (w *USBWedge) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stop != nil {
		close(w.stop)
		w.stop = nil
	}

	var errs []error

	if w.iface != nil {
		w.iface.Close()
		w.iface = nil
	}

	if w.device != nil {
		if err := w.device.Close(); err != nil {
			errs = append(errs, err)
		}
		w.device = nil
	}

	if w.ctx != nil {
		if err := w.ctx.Close(); err != nil {
			errs = append(errs, err)
		}
		w.ctx = nil
	}

	w.isOpen = false

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// IsOpen returns whether the device is open.
func (w *USBWedge) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isOpen
}

// GetDevice returns the underlying USB device.
func (w *USBWedge) GetDevice() *gousb.Device {
	return w.device
}
