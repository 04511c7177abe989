// Package api serves the local HTTP surface of the agent: scan
// history, manual entry, printer listing, and print dispatch for the
// station UI.
package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter builds the agent API router.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods("GET")
	r.HandleFunc("/status", h.GetStatus).Methods("GET")
	r.HandleFunc("/scans", h.GetScans).Methods("GET")
	r.HandleFunc("/scans", h.ClearScans).Methods("DELETE")
	r.HandleFunc("/scans/select", h.SelectScan).Methods("POST")
	r.HandleFunc("/scan", h.SubmitScan).Methods("POST")
	r.HandleFunc("/scan/trigger", h.TriggerScan).Methods("POST")
	r.HandleFunc("/printers", h.GetPrinters).Methods("GET")
	r.HandleFunc("/print", h.Print).Methods("POST")
	r.HandleFunc("/print/label", h.PrintLabel).Methods("POST")
	return r
}
