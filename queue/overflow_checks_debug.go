// +build dtqueue_debug

package queue

// checkNoUnderflow panics if subtracting delta from value would wrap
// around a uint64. Only compiled into debug builds (-tags dtqueue_debug);
// spec's Failure semantics assumes overflow is impossible for realistic
// data sizes but asks for the check in debug builds.
func checkNoUnderflow(value, delta uint64, context string) {
	if delta > value {
		invariantViolation(ErrWorkCounterUnderflow, context)
	}
}
