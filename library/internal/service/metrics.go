package service

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/librarydesk/library-service/library/internal/errs"
)

const (
	opCreateLoan = "create_loan"
	opReturnLoan = "return_loan"
	opUndo       = "undo"
)

type metrics struct {
	operations *prometheus.CounterVec
	undoDepth  prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "library",
			Name:      "loan_operations_total",
			Help:      "Loan lifecycle operations by outcome.",
		}, []string{"operation", "result"}),
		undoDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "library",
			Name:      "undo_log_depth",
			Help:      "Entries currently on the undo log.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.undoDepth)
	}
	return m
}

func (m *metrics) observe(op string, err error) {
	m.operations.WithLabelValues(op, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrInvalidParameter):
		return "invalid"
	case errors.Is(err, errs.ErrCopyUnavailable), errors.Is(err, errs.ErrCopyRetired),
		errors.Is(err, errs.ErrAlreadyReturned), errors.Is(err, errs.ErrUndoStale):
		return "rejected"
	case errors.Is(err, errs.ErrNothingToUndo):
		return "empty"
	case errors.Is(err, errs.ErrConcurrencyConflict):
		return "conflict"
	default:
		return "error"
	}
}
