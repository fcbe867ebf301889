// Package metrics exposes Prometheus counters for the bundle pipeline and
// address generation.
//
// Collectors are registered on a private registry so that tests and
// embedding programs do not collide with the global default registry.
// The CLI serves Registry through promhttp when --metrics.addr is set.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "iota_ternary"

var (
	// Registry holds every collector in this package.
	Registry = prometheus.NewRegistry()

	// AddressesGenerated counts derived addresses by security level.
	AddressesGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "address",
		Name:      "generated_total",
		Help:      "Number of addresses derived from a seed.",
	}, []string{"security_level"})

	// BundlesFinalized counts successful bundle finalizations.
	BundlesFinalized = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bundle",
		Name:      "finalized_total",
		Help:      "Number of bundles finalized.",
	})

	// InsecureHashRetries counts legacy tag increments made because the
	// bundle hash normalized to an insecure value.
	InsecureHashRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bundle",
		Name:      "insecure_hash_retries_total",
		Help:      "Number of times a bundle hash was recomputed to avoid an insecure normalized hash.",
	})

	// InputsSigned counts signed input transactions.
	InputsSigned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bundle",
		Name:      "inputs_signed_total",
		Help:      "Number of bundle inputs signed.",
	})

	// Validations counts bundle validations by outcome and by the sponge
	// that accepted the signatures.
	Validations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bundle",
		Name:      "validations_total",
		Help:      "Number of bundle validations by result.",
	}, []string{"result"})
)

// Validation results.
const (
	ResultValid       = "valid"
	ResultValidLegacy = "valid_legacy"
	ResultInvalid     = "invalid"
)

func init() {
	Registry.MustRegister(
		AddressesGenerated,
		BundlesFinalized,
		InsecureHashRetries,
		InputsSigned,
		Validations,
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
