package metrics

import (
	"errors"
	"time"

	"github.com/pentamassiv/wayland-input/pkg/inputmethod"
)

// ServiceMetrics are the metrics wlinputd records around the input method
// service.
type ServiceMetrics struct {
	registry *Registry

	CommitsTotal       *Counter
	CommitStringsTotal *Counter
	DeletesTotal       *Counter
	KeysTotal          *Counter
	ModifiersTotal     *Counter
	RoundtripsTotal    *Counter
	ErrorsTotal        *Counter
	NotAliveTotal      *Counter

	InputMethodActive *Gauge
	UptimeSeconds     *Gauge

	RoundtripDuration *Histogram

	started time.Time
}

// NewServiceMetrics registers the service metrics in registry, or in a new
// "wlinput" registry when nil.
func NewServiceMetrics(registry *Registry) *ServiceMetrics {
	if registry == nil {
		registry = NewRegistry("wlinput")
	}
	return &ServiceMetrics{
		registry: registry,

		CommitsTotal:       registry.Counter("commits_total", "Input method commit requests sent"),
		CommitStringsTotal: registry.Counter("commit_strings_total", "commit_string requests sent"),
		DeletesTotal:       registry.Counter("deletes_total", "delete_surrounding_text requests sent"),
		KeysTotal:          registry.Counter("keys_total", "Virtual keyboard key events sent"),
		ModifiersTotal:     registry.Counter("modifiers_total", "Virtual keyboard modifier events sent"),
		RoundtripsTotal:    registry.Counter("roundtrips_total", "Event queue round trips"),
		ErrorsTotal:        registry.Counter("errors_total", "Requests or round trips that failed"),
		NotAliveTotal:      registry.Counter("not_alive_total", "Requests rejected because the remote object is gone"),

		InputMethodActive: registry.Gauge("input_method_active", "1 while a text input is focused"),
		UptimeSeconds:     registry.Gauge("uptime_seconds", "Seconds since wlinputd started"),

		RoundtripDuration: registry.Histogram("roundtrip_duration_seconds", "Event queue round trip latency", DurationBuckets),

		started: time.Now(),
	}
}

// Registry returns the registry the metrics live in.
func (m *ServiceMetrics) Registry() *Registry {
	return m.registry
}

// Record counts the outcome of a request. It returns err unchanged.
func (m *ServiceMetrics) Record(c *Counter, err error) error {
	if err != nil {
		m.ErrorsTotal.Inc()
		if errors.Is(err, inputmethod.ErrNotAlive) {
			m.NotAliveTotal.Inc()
		}
		return err
	}
	c.Inc()
	return nil
}

// Snapshot refreshes the uptime gauge and returns all values.
func (m *ServiceMetrics) Snapshot() map[string]float64 {
	m.UptimeSeconds.Set(int64(time.Since(m.started).Seconds()))
	return m.registry.Snapshot()
}
