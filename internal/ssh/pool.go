package ssh

import (
	"context"
)

// Pool broadcasts operations to an ordered set of connections.
type Pool struct {
	conns []*Connection
}

// NewPool returns a pool over existing connections.
func NewPool(conns ...*Connection) *Pool {
	return &Pool{conns: conns}
}

// NewPoolFromRemotes parses every remote into a connection sharing opts.
func NewPoolFromRemotes(remotes []string, opts Options) (*Pool, error) {
	conns := make([]*Connection, 0, len(remotes))
	for _, remote := range remotes {
		conn, err := NewConnection(remote, opts)
		if err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}
	return NewPool(conns...), nil
}

// Connections returns the pool members in order.
func (p *Pool) Connections() []*Connection {
	return append([]*Connection(nil), p.conns...)
}

// Len returns the number of connections.
func (p *Pool) Len() int {
	return len(p.conns)
}

// Run runs cmd on every connection concurrently.
func (p *Pool) Run(ctx context.Context, cmd string, opts RunOptions) ([]*ExecResult, error) {
	return fanOut(ctx, p.conns, func(ctx context.Context, c *Connection) (*ExecResult, error) {
		return c.Run(ctx, cmd, opts)
	})
}

// Copy runs the deprecated Connection.Copy on every connection.
//
// Deprecated: use CopyToRemote, CopyFromRemote, ScpCopyToRemote or
// ScpCopyFromRemote.
func (p *Pool) Copy(ctx context.Context, src, dest string, opts CopyOptions) ([]*MultiExecResult, error) {
	return fanOut(ctx, p.conns, func(ctx context.Context, c *Connection) (*MultiExecResult, error) {
		return c.Copy(ctx, src, dest, opts)
	})
}

// CopyToRemote rsyncs src to dest on every connection.
func (p *Pool) CopyToRemote(ctx context.Context, src, dest string, opts CopyOptions) ([]*ExecResult, error) {
	return fanOut(ctx, p.conns, func(ctx context.Context, c *Connection) (*ExecResult, error) {
		return c.CopyToRemote(ctx, src, dest, opts)
	})
}

// CopyFromRemote rsyncs src from every connection to dest.
func (p *Pool) CopyFromRemote(ctx context.Context, src, dest string, opts CopyOptions) ([]*ExecResult, error) {
	return fanOut(ctx, p.conns, func(ctx context.Context, c *Connection) (*ExecResult, error) {
		return c.CopyFromRemote(ctx, src, dest, opts)
	})
}

// ScpCopyToRemote copies src to dest on every connection with tar and scp.
func (p *Pool) ScpCopyToRemote(ctx context.Context, src, dest string, opts CopyOptions) ([]*MultiExecResult, error) {
	return fanOut(ctx, p.conns, func(ctx context.Context, c *Connection) (*MultiExecResult, error) {
		return c.ScpCopyToRemote(ctx, src, dest, opts)
	})
}

// ScpCopyFromRemote copies src from every connection to dest with tar and scp.
func (p *Pool) ScpCopyFromRemote(ctx context.Context, src, dest string, opts CopyOptions) ([]*MultiExecResult, error) {
	return fanOut(ctx, p.conns, func(ctx context.Context, c *Connection) (*MultiExecResult, error) {
		return c.ScpCopyFromRemote(ctx, src, dest, opts)
	})
}

type outcome struct {
	index int
	err   error
}

// fanOut calls fn on every connection concurrently. Results keep connection
// order. The first error is returned as soon as it arrives; siblings keep
// running and their results are dropped.
func fanOut[T any](ctx context.Context, conns []*Connection, fn func(context.Context, *Connection) (T, error)) ([]T, error) {
	results := make([]T, len(conns))
	done := make(chan outcome, len(conns))
	for i, conn := range conns {
		i, conn := i, conn
		go func() {
			res, err := fn(ctx, conn)
			if err == nil {
				results[i] = res
			}
			done <- outcome{index: i, err: err}
		}()
	}

	for range conns {
		o := <-done
		if o.err != nil {
			return nil, &PoolError{Host: conns[o.index].remote.Host, Err: o.err}
		}
	}
	return results, nil
}
