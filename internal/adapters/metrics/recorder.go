// Package metrics counts account operations on a private Prometheus registry.
package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

const namespace = "nftwallet"

// Recorder implements MetricsRecorder
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	created    *prometheus.CounterVec
}

// NewRecorder creates a recorder with its own registry
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Account system transactions by operation and result.",
			},
			[]string{"operation", "result"},
		),
		created: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "accounts_created_total",
				Help:      "Accounts deployed by the registry, by chain id.",
			},
			[]string{"chain_id"},
		),
	}
	r.registry.MustRegister(r.operations, r.created)
	return r
}

// Registry exposes the underlying registry for export
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordOperation counts one transaction outcome
func (r *Recorder) RecordOperation(operation string, err error) {
	r.operations.WithLabelValues(operation, result(err)).Inc()
}

// RecordAccountCreated counts one AccountCreated event
func (r *Recorder) RecordAccountCreated(chainID uint64) {
	r.created.WithLabelValues(strconv.FormatUint(chainID, 10)).Inc()
}

// WriteTextfile writes the current values in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrReentrantCall):
		return "reentrant"
	case errors.Is(err, domain.ErrSubcallFailed):
		return "subcall_failed"
	case errors.Is(err, domain.ErrDeploymentFailed):
		return "deployment_failed"
	}
	return "error"
}

// Ensure Recorder implements MetricsRecorder
var _ usecase.MetricsRecorder = (*Recorder)(nil)
