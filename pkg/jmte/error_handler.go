package jmte

import (
	"sync"

	"github.com/hashicorp/go-multierror"
)

// ErrorHandler receives every non-fatal problem found while a template is
// evaluated. The returned text is written to the output in place of the
// value that could not be produced.
type ErrorHandler interface {
	Handle(report *ErrorReport) string
}

// ErrorHandlerFunc adapts a function to the ErrorHandler interface.
type ErrorHandlerFunc func(report *ErrorReport) string

func (f ErrorHandlerFunc) Handle(report *ErrorReport) string {
	return f(report)
}

// DefaultErrorHandler logs each report at warn level and substitutes
// nothing.
type DefaultErrorHandler struct {
	Logger *Logger
}

func (h *DefaultErrorHandler) Handle(report *ErrorReport) string {
	logger := h.Logger
	if logger == nil {
		logger = GetLogger()
	}
	fields := Fields{
		"kind": report.Kind.String(),
		"path": report.Path,
	}
	if report.Token != nil {
		fields["token"] = report.Token.Text()
	}
	logger.WithFields(fields).Warn("%s", report.Message())
	return ""
}

// CollectingErrorHandler records every report and substitutes nothing. It is
// safe for use by concurrent transforms.
type CollectingErrorHandler struct {
	mu     sync.Mutex
	errors *multierror.Error
}

// NewCollectingErrorHandler creates an empty collecting handler.
func NewCollectingErrorHandler() *CollectingErrorHandler {
	return &CollectingErrorHandler{}
}

func (h *CollectingErrorHandler) Handle(report *ErrorReport) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = multierror.Append(h.errors, report)
	return ""
}

// Reports returns the collected reports in the order they were handled.
func (h *CollectingErrorHandler) Reports() []*ErrorReport {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.errors == nil {
		return nil
	}
	reports := make([]*ErrorReport, 0, len(h.errors.Errors))
	for _, err := range h.errors.Errors {
		if report, ok := err.(*ErrorReport); ok {
			reports = append(reports, report)
		}
	}
	return reports
}

// Len returns the number of collected reports.
func (h *CollectingErrorHandler) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.errors == nil {
		return 0
	}
	return h.errors.Len()
}

// Err returns the collected reports as one error, or nil when there are none.
func (h *CollectingErrorHandler) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.errors.ErrorOrNil()
}

// Reset drops every collected report.
func (h *CollectingErrorHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = nil
}
