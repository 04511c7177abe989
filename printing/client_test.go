package printing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientListPrinters(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/printers", r.URL.Path)
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(printersResponse{
			Success: true,
			Printers: []Printer{
				{ID: "p1", DisplayName: "Labels", Class: ClassLabel, Status: StatusReady, IsDefault: true},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	printers, err := c.ListPrinters(context.Background(), ClassLabel)

	require.NoError(t, err)
	require.Len(t, printers, 1)
	assert.Equal(t, "p1", printers[0].ID)
	assert.Contains(t, gotQuery, "enabled=true")
	assert.Contains(t, gotQuery, "type=label")
}

func TestClientListPrintersNoClassFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("type"))
		json.NewEncoder(w).Encode(printersResponse{Success: true})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ListPrinters(context.Background(), "")
	assert.NoError(t, err)
}

func TestClientSubmitJob(t *testing.T) {
	var gotReq PrintRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/print", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(printResponse{Success: true, JobID: "123"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	jobID, err := c.SubmitJob(context.Background(), PrintRequest{
		PrinterID: "p1",
		Content:   "^XA^XZ",
		Type:      ContentZPL,
		Copies:    2,
	})

	require.NoError(t, err)
	assert.Equal(t, "123", jobID)
	assert.Equal(t, "p1", gotReq.PrinterID)
	assert.Equal(t, ContentZPL, gotReq.Type)
	assert.Equal(t, 2, gotReq.Copies)
}

func TestClientSubmitJobBackendRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(printResponse{Success: false, Error: "printer offline"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).SubmitJob(context.Background(), PrintRequest{PrinterID: "p1"})

	require.Error(t, err)
	assert.Equal(t, "printer offline", err.Error())
}

func TestClientSubmitJobRejectionWithoutMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(printResponse{Success: false})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).SubmitJob(context.Background(), PrintRequest{PrinterID: "p1"})

	require.Error(t, err)
	assert.Equal(t, "print submission failed", err.Error())
}

func TestClientNonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).SubmitJob(context.Background(), PrintRequest{PrinterID: "p1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClientTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	c := NewClient(srv.URL, WithTimeout(time.Second))
	_, err := c.ListPrinters(context.Background(), "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend unreachable")
}
