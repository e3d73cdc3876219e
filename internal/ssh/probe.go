package ssh

import (
	"context"
	"os/exec"
)

// CopyStrategy is the algorithm used to move a tree between hosts.
type CopyStrategy int

const (
	// StrategyRsync copies with a single rsync invocation.
	StrategyRsync CopyStrategy = iota
	// StrategyTarScp archives, transfers with scp and extracts.
	StrategyTarScp
)

func (s CopyStrategy) String() string {
	switch s {
	case StrategyRsync:
		return "rsync"
	case StrategyTarScp:
		return "tar+scp"
	default:
		return "unknown"
	}
}

// CapabilityProbe reports what the local machine can run.
type CapabilityProbe interface {
	RsyncAvailable(ctx context.Context) bool
}

// LookPathProbe looks rsync up on PATH.
type LookPathProbe struct{}

// RsyncAvailable reports whether rsync is on PATH.
func (LookPathProbe) RsyncAvailable(context.Context) bool {
	_, err := exec.LookPath("rsync")
	return err == nil
}

// StaticProbe returns a fixed answer.
type StaticProbe bool

// RsyncAvailable returns the fixed answer.
func (p StaticProbe) RsyncAvailable(context.Context) bool {
	return bool(p)
}

// SelectStrategy picks rsync when available and tar+scp otherwise.
func SelectStrategy(ctx context.Context, probe CapabilityProbe) CopyStrategy {
	if probe == nil {
		probe = LookPathProbe{}
	}
	if probe.RsyncAvailable(ctx) {
		return StrategyRsync
	}
	return StrategyTarScp
}
