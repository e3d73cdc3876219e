// Package deprecation reports use of behaviour scheduled for removal.
package deprecation

import (
	"sync"

	"github.com/tOgg1/shipit/internal/logging"
)

// Versions in which deprecated behaviour stops working.
const (
	V3 = "v3.0.0"
	V5 = "v5.0.0"
)

// Notice is a single deprecation warning.
type Notice struct {
	Message  string
	BreaksIn string
}

// Handler receives deprecation notices.
type Handler func(Notice)

var (
	mu      sync.RWMutex
	handler Handler = logHandler
)

func logHandler(n Notice) {
	logging.Warn().
		Bool("deprecated", true).
		Str("breaks_in", n.BreaksIn).
		Msgf("%s It will break in %s.", n.Message, n.BreaksIn)
}

// Warn emits one deprecation notice.
func Warn(breaksIn, message string) {
	mu.RLock()
	h := handler
	mu.RUnlock()
	h(Notice{Message: message, BreaksIn: breaksIn})
}

// SetHandler replaces the notice handler and returns a func restoring the
// previous one. A nil handler discards notices.
func SetHandler(h Handler) (restore func()) {
	if h == nil {
		h = func(Notice) {}
	}
	mu.Lock()
	previous := handler
	handler = h
	mu.Unlock()
	return func() {
		mu.Lock()
		handler = previous
		mu.Unlock()
	}
}

// Recorder collects notices, typically for tests.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Handle records n.
func (r *Recorder) Handle(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Notices returns a copy of the recorded notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Record installs a Recorder as the handler until restore is called.
func Record() (*Recorder, func()) {
	r := &Recorder{}
	restore := SetHandler(r.Handle)
	return r, restore
}
