package harness

import (
	"fmt"
	"html"
	"sync"
	"time"
)

// maxLogLines caps the lines persisted with one run
const maxLogLines = 2000

// LogBuffer collects a session's log lines for the run ledger. Lines are
// HTML-escaped on write since reports render them as markup.
type LogBuffer struct {
	mu      sync.Mutex
	lines   []string
	dropped int
}

// Add appends one timestamped line
func (b *LogBuffer) Add(format string, args ...interface{}) {
	line := fmt.Sprintf("%s %s", time.Now().Format("15:04:05.000"), html.EscapeString(fmt.Sprintf(format, args...)))

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.lines) >= maxLogLines {
		b.dropped++
		return
	}
	b.lines = append(b.lines, line)
}

// Lines returns a copy of the buffered lines, plus a marker when lines were
// dropped
func (b *LogBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.lines), len(b.lines)+1)
	copy(out, b.lines)
	if b.dropped > 0 {
		out = append(out, fmt.Sprintf("... %d more lines dropped", b.dropped))
	}
	return out
}
