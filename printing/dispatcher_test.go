package printing

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockBackend is a mock implementation of the Backend interface.
type MockBackend struct {
	printers  []Printer
	listErr   error
	jobID     string
	submitErr error

	listCalls   int
	submitCalls int
	lastRequest PrintRequest
}

func (m *MockBackend) ListPrinters(ctx context.Context, class Class) ([]Printer, error) {
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.printers, nil
}

func (m *MockBackend) SubmitJob(ctx context.Context, req PrintRequest) (string, error) {
	m.submitCalls++
	m.lastRequest = req
	if m.submitErr != nil {
		return "", m.submitErr
	}
	return m.jobID, nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestDispatchSuccess(t *testing.T) {
	backend := &MockBackend{jobID: "123"}
	d := NewDispatcherWithLogger(backend, testLogger())

	var results []Outcome
	d.OnResult = func(out Outcome) { results = append(results, out) }

	out := d.Dispatch(context.Background(), "p1", Content{Body: "^XA^FDhello^FS^XZ", Type: ContentZPL}, 1)

	require.True(t, out.Success)
	assert.Equal(t, "123", out.JobID)
	assert.Empty(t, out.ErrorMessage)
	assert.Equal(t, 1, backend.submitCalls)
	assert.Equal(t, "p1", backend.lastRequest.PrinterID)
	assert.Equal(t, ContentZPL, backend.lastRequest.Type)
	require.Len(t, results, 1, "OnResult must fire exactly once")
	assert.Equal(t, out, results[0])
}

func TestDispatchWithoutPrinterMakesNoNetworkCall(t *testing.T) {
	backend := &MockBackend{jobID: "123"}
	d := NewDispatcherWithLogger(backend, testLogger())

	out := d.Dispatch(context.Background(), "", Content{Body: "data", Type: ContentRaw}, 1)

	assert.False(t, out.Success)
	assert.Equal(t, ErrNoPrinter, out.ErrorMessage)
	assert.Zero(t, backend.submitCalls)
}

func TestDispatchProducerFailureShortCircuits(t *testing.T) {
	backend := &MockBackend{jobID: "123"}
	d := NewDispatcherWithLogger(backend, testLogger())

	var results []Outcome
	d.OnResult = func(out Outcome) { results = append(results, out) }

	out := d.DispatchProduced(context.Background(), "p1", func(context.Context) (Content, error) {
		return Content{}, errors.New("label render failed")
	}, 1)

	assert.False(t, out.Success)
	assert.Equal(t, "label render failed", out.ErrorMessage)
	assert.Zero(t, backend.submitCalls, "producer failure must never reach the network")
	require.Len(t, results, 1)
}

func TestDispatchBackendErrorBecomesOutcome(t *testing.T) {
	backend := &MockBackend{submitErr: errors.New("printer offline")}
	d := NewDispatcherWithLogger(backend, testLogger())

	out := d.Dispatch(context.Background(), "p1", Content{Body: "x", Type: ContentRaw}, 1)

	assert.False(t, out.Success)
	assert.Equal(t, "printer offline", out.ErrorMessage)
	assert.Empty(t, out.JobID)
}

func TestDispatchNormalizesCopies(t *testing.T) {
	backend := &MockBackend{jobID: "j"}
	d := NewDispatcherWithLogger(backend, testLogger())

	d.Dispatch(context.Background(), "p1", Content{Body: "x", Type: ContentRaw}, 0)
	assert.Equal(t, 1, backend.lastRequest.Copies)

	d.Dispatch(context.Background(), "p1", Content{Body: "x", Type: ContentRaw}, 3)
	assert.Equal(t, 3, backend.lastRequest.Copies)
}

func TestDispatcherReusableAfterFailure(t *testing.T) {
	backend := &MockBackend{submitErr: errors.New("boom")}
	d := NewDispatcherWithLogger(backend, testLogger())

	out := d.Dispatch(context.Background(), "p1", Content{Body: "x", Type: ContentRaw}, 1)
	require.False(t, out.Success)

	backend.submitErr = nil
	backend.jobID = "next"
	out = d.Dispatch(context.Background(), "p1", Content{Body: "x", Type: ContentRaw}, 1)
	require.True(t, out.Success)
	assert.Equal(t, "next", out.JobID)
}
