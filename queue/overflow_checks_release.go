// +build !dtqueue_debug

package queue

// checkNoUnderflow is a no-op outside of debug builds; see
// overflow_checks_debug.go.
func checkNoUnderflow(value, delta uint64, context string) {}
