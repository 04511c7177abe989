package printing

import (
	"context"
	"log"
	"os"

	"github.com/google/uuid"
)

// ErrNoPrinter is the user-facing message for a dispatch without a
// printer selected. It is reported before any network attempt.
const ErrNoPrinter = "select a printer before printing"

// Producer builds a payload on demand. Producers may fail (a label
// render can reject bad barcode data); the failure short-circuits the
// dispatch and never reaches the backend.
type Producer func(ctx context.Context) (Content, error)

// Outcome is the terminal result of one dispatch attempt. It is a
// value, never an error: a failed print leaves the dispatcher fully
// reusable for the next attempt.
type Outcome struct {
	Success      bool
	JobID        string
	ErrorMessage string
}

// Dispatcher submits print jobs and resolves each to a definitive
// outcome. There is no automatic retry: duplicate physical prints are
// a worse failure mode than a missed one, so retrying is left to the
// caller.
type Dispatcher struct {
	backend Backend
	logger  *log.Logger

	// OnResult, when set, is invoked exactly once per dispatch with
	// the terminal outcome. Set it before the first dispatch.
	OnResult func(Outcome)
}

// NewDispatcher creates a dispatcher over the given backend.
func NewDispatcher(backend Backend) *Dispatcher {
	logger := log.New(os.Stdout, "[DISPATCH] ", log.LstdFlags|log.Lmsgprefix)
	return NewDispatcherWithLogger(backend, logger)
}

// NewDispatcherWithLogger creates a dispatcher with a custom logger.
func NewDispatcherWithLogger(backend Backend, logger *log.Logger) *Dispatcher {
	return &Dispatcher{backend: backend, logger: logger}
}

// Dispatch submits content to the given printer. copies below 1 is
// treated as 1.
func (d *Dispatcher) Dispatch(ctx context.Context, printerID string, content Content, copies int) Outcome {
	return d.DispatchProduced(ctx, printerID, func(context.Context) (Content, error) {
		return content, nil
	}, copies)
}

// DispatchProduced resolves the producer, then submits the payload.
// A producer failure resolves the dispatch without a network call.
func (d *Dispatcher) DispatchProduced(ctx context.Context, printerID string, produce Producer, copies int) Outcome {
	// Correlation id for log lines only; the backend assigns the
	// authoritative job id.
	ref := uuid.NewString()

	if printerID == "" {
		d.logger.Printf("[%s] Rejected: no printer selected", ref)
		return d.report(Outcome{ErrorMessage: ErrNoPrinter})
	}
	if copies < 1 {
		copies = 1
	}

	content, err := produce(ctx)
	if err != nil {
		d.logger.Printf("[%s] Payload producer failed: %v", ref, err)
		return d.report(Outcome{ErrorMessage: err.Error()})
	}

	jobID, err := d.backend.SubmitJob(ctx, PrintRequest{
		PrinterID: printerID,
		Content:   content.Body,
		Type:      content.Type,
		Copies:    copies,
	})
	if err != nil {
		d.logger.Printf("[%s] Submission to %s failed: %v", ref, printerID, err)
		return d.report(Outcome{ErrorMessage: err.Error()})
	}

	d.logger.Printf("[%s] Job %s accepted by printer %s (%d copies)", ref, jobID, printerID, copies)
	return d.report(Outcome{Success: true, JobID: jobID})
}

func (d *Dispatcher) report(out Outcome) Outcome {
	if d.OnResult != nil {
		d.OnResult(out)
	}
	return out
}
