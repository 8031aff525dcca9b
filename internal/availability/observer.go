package availability

// Observer receives engine measurements. metrics.AvailabilityMetrics
// implements it; the engine itself has no metrics dependency.
type Observer interface {
	ObserveQuery(outcome string, seconds float64)
	ObserveDay(total, available int)
	ObserveDegradedDate()
	ObserveCache(hit bool)
	ObserveIntegrityViolation(code string)
}

// Query outcomes reported to ObserveQuery.
const (
	OutcomeOK        = "ok"
	OutcomeCached    = "cached"
	OutcomeInvalid   = "invalid_input"
	OutcomeUpstream  = "upstream_error"
	OutcomeCancelled = "cancelled"
)

// NopObserver discards everything.
type NopObserver struct{}

func (NopObserver) ObserveQuery(string, float64)     {}
func (NopObserver) ObserveDay(int, int)              {}
func (NopObserver) ObserveDegradedDate()             {}
func (NopObserver) ObserveCache(bool)                {}
func (NopObserver) ObserveIntegrityViolation(string) {}
