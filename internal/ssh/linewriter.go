package ssh

import (
	"bytes"
	"io"
	"reflect"
	"sync"
)

// prefixWriter prefixes every line written to it before forwarding.
type prefixWriter struct {
	mu     sync.Mutex
	w      io.Writer
	prefix []byte
	buf    []byte
}

func newPrefixWriter(w io.Writer, prefix string) *prefixWriter {
	return &prefixWriter{w: w, prefix: []byte(prefix)}
}

func (p *prefixWriter) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf = append(p.buf, b...)
	for {
		i := bytes.IndexByte(p.buf, '\n')
		if i < 0 {
			break
		}
		line := make([]byte, 0, len(p.prefix)+i+1)
		line = append(line, p.prefix...)
		line = append(line, p.buf[:i+1]...)
		if _, err := p.w.Write(line); err != nil {
			return len(b), err
		}
		p.buf = p.buf[i+1:]
	}
	return len(b), nil
}

// Flush forwards a trailing partial line.
func (p *prefixWriter) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.buf) == 0 {
		return nil
	}
	line := append(append([]byte{}, p.prefix...), p.buf...)
	p.buf = nil
	_, err := p.w.Write(line)
	return err
}

// streams holds the prefixed sinks of one command, either of which may be nil.
type streams struct {
	stdout *prefixWriter
	stderr *prefixWriter
}

// newStreams wraps the sinks of one command. When stdout and stderr are the
// same writer both prefixers write through one lock, since exec copies the
// two pipes from separate goroutines.
func newStreams(stdout, stderr io.Writer, outPrefix, errPrefix string) streams {
	if sameWriter(stdout, stderr) {
		shared := &lockedWriter{w: stdout}
		stdout, stderr = shared, shared
	}
	var s streams
	if stdout != nil {
		s.stdout = newPrefixWriter(stdout, outPrefix)
	}
	if stderr != nil {
		s.stderr = newPrefixWriter(stderr, errPrefix)
	}
	return s
}

func (s streams) apply(opts *ExecOptions) {
	if s.stdout != nil {
		opts.Stdout = s.stdout
	}
	if s.stderr != nil {
		opts.Stderr = s.stderr
	}
}

func (s streams) flush() {
	if s.stdout != nil {
		_ = s.stdout.Flush()
	}
	if s.stderr != nil {
		_ = s.stderr.Flush()
	}
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(b []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(b)
}

func sameWriter(a, b io.Writer) bool {
	if a == nil || b == nil {
		return false
	}
	t := reflect.TypeOf(a)
	if t != reflect.TypeOf(b) || !t.Comparable() {
		return false
	}
	return a == b
}
