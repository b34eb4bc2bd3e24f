// Package hooks adds call-site context to structured log entries.
package hooks

import (
	"runtime/debug"
	"strings"

	"github.com/sirupsen/logrus"
)

type contextHook struct {
}

func NewContextHook() contextHook {
	return contextHook{}
}

func (hook contextHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire walks the current goroutine's stack, skips past this hook's own
// frames, and records the first caller frame as "file:line" so that a
// logged line can be traced back to the queue operation that emitted it.
func (hook contextHook) Fire(entry *logrus.Entry) error {
	stack := debug.Stack()
	lines := strings.Split(string(stack), "\n")
	foundLoggerBlock := false
	incr := 1
	for i := 0; i < len(lines); i = i + incr {
		if strings.Contains(lines[i], "context_hook.go:") {
			foundLoggerBlock = true
			incr = 2
			continue
		}
		if !foundLoggerBlock {
			continue
		}
		if strings.Contains(lines[i], "sirupsen/logrus") {
			continue
		}
		ctx := strings.Split(lines[i], "dtqueue/")
		entry.Data["file:line"] = strings.TrimSpace(ctx[len(ctx)-1])
		break
	}
	return nil
}
