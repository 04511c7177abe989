// Package printing talks to the print backend: it lists configured
// printers and submits print jobs. Payloads are opaque to this layer;
// a job carries bytes tagged with a content type and the device or
// backend interprets them.
package printing

// Class is a coarse printer category used for filtering.
type Class string

const (
	ClassThermal Class = "thermal"
	ClassReceipt Class = "receipt"
	ClassLabel   Class = "label"
)

// Status is the backend-reported live state of a printer.
type Status string

const (
	StatusReady   Status = "ready"
	StatusBusy    Status = "busy"
	StatusOffline Status = "offline"
	StatusError   Status = "error"
)

// ContentType tags a payload with its wire language.
type ContentType string

const (
	ContentZPL    ContentType = "zpl"
	ContentTSPL   ContentType = "tspl"
	ContentESCPOS ContentType = "escpos"
	ContentPDF    ContentType = "pdf"
	ContentRaw    ContentType = "raw"
)

// Printer describes one configured printer as reported by the backend.
type Printer struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Class       Class  `json:"class"`
	Status      Status `json:"status"`
	IsDefault   bool   `json:"isDefault"`
}

// Content is a print payload with its content type.
type Content struct {
	Body string
	Type ContentType
}

// PrintRequest is one job submission.
type PrintRequest struct {
	PrinterID string      `json:"printerId"`
	Content   string      `json:"content"`
	Type      ContentType `json:"type"`
	Copies    int         `json:"copies"`
}
