package health

// ReadinessChecker reports whether a load-once component is in memory.
type ReadinessChecker interface {
	Ready() bool
}
