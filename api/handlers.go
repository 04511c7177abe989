package api

import (
	"encoding/json"
	"net/http"

	"github.com/shopfloor-systems/posbridge/controller"
	"github.com/shopfloor-systems/posbridge/label"
	"github.com/shopfloor-systems/posbridge/printing"
)

// Handler serves the local agent API consumed by the station UI.
type Handler struct {
	Controller *controller.Controller
	Registry   *printing.Registry
	Dispatcher *printing.Dispatcher

	// PrinterID pins dispatches to one printer (single-printer mode).
	// When empty the registry default is used for requests that name
	// no printer.
	PrinterID string

	// PrinterClass filters printer listings.
	PrinterClass printing.Class
}

type statusResponse struct {
	Mode              controller.Source `json:"mode"`
	HardwareAvailable bool              `json:"hardwareAvailable"`
	Input             string            `json:"input"`
	HistorySize       int               `json:"historySize"`
}

// GetStatus reports the input source state.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Mode:              h.Controller.Mode(),
		HardwareAvailable: h.Controller.HardwareAvailable(),
		Input:             h.Controller.Input(),
		HistorySize:       len(h.Controller.History()),
	})
}

// GetScans returns the scan history, newest first.
func (h *Handler) GetScans(w http.ResponseWriter, r *http.Request) {
	history := h.Controller.History()
	if history == nil {
		history = []controller.ScanResult{}
	}
	writeJSON(w, http.StatusOK, history)
}

// ClearScans empties the scan history.
func (h *Handler) ClearScans(w http.ResponseWriter, r *http.Request) {
	h.Controller.ClearHistory()
	w.WriteHeader(http.StatusNoContent)
}

type barcodeRequest struct {
	Barcode string `json:"barcode"`
}

// SelectScan repopulates the input field from history without
// re-emitting a scan.
func (h *Handler) SelectScan(w http.ResponseWriter, r *http.Request) {
	var req barcodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !h.Controller.SelectFromHistory(req.Barcode) {
		http.Error(w, "barcode not in history", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitScan runs a manually typed barcode through the normal
// validation path.
func (h *Handler) SubmitScan(w http.ResponseWriter, r *http.Request) {
	var req barcodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.Controller.SubmitManual(req.Barcode)
	w.WriteHeader(http.StatusAccepted)
}

// TriggerScan fires the hardware beam on datawedge hardware.
func (h *Handler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	h.Controller.TriggerScan()
	w.WriteHeader(http.StatusAccepted)
}

// GetPrinters refreshes and returns the printer set.
func (h *Handler) GetPrinters(w http.ResponseWriter, r *http.Request) {
	printers := h.Registry.LoadPrinters(r.Context(), h.PrinterClass)
	if printers == nil {
		printers = []printing.Printer{}
	}
	writeJSON(w, http.StatusOK, printers)
}

type printRequest struct {
	PrinterID string               `json:"printerId"`
	Content   string               `json:"content"`
	Type      printing.ContentType `json:"type"`
	Copies    int                  `json:"copies"`
}

type printOutcome struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Print dispatches one job. A request naming no printer falls back to
// the pinned printer, then the registry default; with neither the
// dispatcher reports the selection error.
func (h *Handler) Print(w http.ResponseWriter, r *http.Request) {
	var req printRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	out := h.Dispatcher.Dispatch(r.Context(), h.resolvePrinter(req.PrinterID), printing.Content{
		Body: req.Content,
		Type: req.Type,
	}, req.Copies)

	writeOutcome(w, out)
}

type labelRequest struct {
	PrinterID string  `json:"printerId"`
	SKU       string  `json:"sku"`
	Barcode   string  `json:"barcode"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
	Copies    int     `json:"copies"`
}

// PrintLabel renders a product label and dispatches it. The label is
// built lazily: bad barcode data fails the dispatch without a backend
// call.
func (h *Handler) PrintLabel(w http.ResponseWriter, r *http.Request) {
	var req labelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	producer := label.ProductLabel{
		SKU:      req.SKU,
		Barcode:  req.Barcode,
		Name:     req.Name,
		Price:    req.Price,
		Currency: req.Currency,
	}.Producer()

	out := h.Dispatcher.DispatchProduced(r.Context(), h.resolvePrinter(req.PrinterID), producer, req.Copies)
	writeOutcome(w, out)
}

// resolvePrinter applies the selection fallbacks: explicit request,
// pinned single-printer id, registry default.
func (h *Handler) resolvePrinter(requested string) string {
	if requested != "" {
		return requested
	}
	if h.PrinterID != "" {
		return h.PrinterID
	}
	if def, ok := h.Registry.Default(); ok {
		return def.ID
	}
	return ""
}

func writeOutcome(w http.ResponseWriter, out printing.Outcome) {
	writeJSON(w, http.StatusOK, printOutcome{
		Success: out.Success,
		JobID:   out.JobID,
		Error:   out.ErrorMessage,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
