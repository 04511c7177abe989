// Package config reads agent settings from environment variables.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config is the full agent configuration.
type Config struct {
	// ScanListenAddress is the TCP ingest address for networked
	// scanners.
	ScanListenAddress string

	// HTTPAddress serves the local agent API.
	HTTPAddress string

	// PrintAPIURL is the print backend base URL.
	PrintAPIURL string

	// PrintAPITimeout bounds each backend call.
	PrintAPITimeout time.Duration

	// PrinterID pins all dispatches to one printer (single-printer
	// mode). Empty means select via the registry.
	PrinterID string

	// PrinterClass filters registry loads ("" means all classes).
	PrinterClass string

	// Scan classification.
	MinLength       int
	MaxLength       int
	InterKeyTimeout time.Duration
	CommitTimeout   time.Duration
	OnlyNumeric     bool
	TabTerminator   bool

	// Input source selection.
	UseDataWedge bool
	DataWedgeURL string

	// UseUSBWedge additionally claims a USB HID scanner as a keyboard
	// channel. Ignored in datawedge mode.
	UseUSBWedge bool

	HistorySize int
}

// Load reads the configuration from environment variables, applying
// defaults for anything unset.
func Load() Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SCAN_LISTEN_ADDRESS", "localhost:9101")
	v.SetDefault("HTTP_ADDRESS", "localhost:8980")
	v.SetDefault("PRINT_API_URL", "http://localhost:8985")
	v.SetDefault("PRINT_API_TIMEOUT_MS", 10000)
	v.SetDefault("PRINTER_ID", "")
	v.SetDefault("PRINTER_CLASS", "")
	v.SetDefault("SCANNER_MIN_LENGTH", 8)
	v.SetDefault("SCANNER_MAX_LENGTH", 14)
	v.SetDefault("SCANNER_INTERKEY_TIMEOUT_MS", 50)
	v.SetDefault("SCANNER_COMMIT_TIMEOUT_MS", 300)
	v.SetDefault("SCANNER_ONLY_NUMERIC", false)
	v.SetDefault("SCANNER_TAB_TERMINATOR", false)
	v.SetDefault("SCANNER_USE_DATAWEDGE", false)
	v.SetDefault("DATAWEDGE_URL", "ws://localhost:8988/scan")
	v.SetDefault("SCANNER_USB", false)
	v.SetDefault("SCAN_HISTORY_SIZE", 20)

	return Config{
		ScanListenAddress: v.GetString("SCAN_LISTEN_ADDRESS"),
		HTTPAddress:       v.GetString("HTTP_ADDRESS"),
		PrintAPIURL:       v.GetString("PRINT_API_URL"),
		PrintAPITimeout:   time.Duration(v.GetInt("PRINT_API_TIMEOUT_MS")) * time.Millisecond,
		PrinterID:         v.GetString("PRINTER_ID"),
		PrinterClass:      v.GetString("PRINTER_CLASS"),
		MinLength:         v.GetInt("SCANNER_MIN_LENGTH"),
		MaxLength:         v.GetInt("SCANNER_MAX_LENGTH"),
		InterKeyTimeout:   time.Duration(v.GetInt("SCANNER_INTERKEY_TIMEOUT_MS")) * time.Millisecond,
		CommitTimeout:     time.Duration(v.GetInt("SCANNER_COMMIT_TIMEOUT_MS")) * time.Millisecond,
		OnlyNumeric:       v.GetBool("SCANNER_ONLY_NUMERIC"),
		TabTerminator:     v.GetBool("SCANNER_TAB_TERMINATOR"),
		UseDataWedge:      v.GetBool("SCANNER_USE_DATAWEDGE"),
		DataWedgeURL:      v.GetString("DATAWEDGE_URL"),
		UseUSBWedge:       v.GetBool("SCANNER_USB"),
		HistorySize:       v.GetInt("SCAN_HISTORY_SIZE"),
	}
}
