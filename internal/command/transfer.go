package command

import "strconv"

// ScpOptions configures Scp.
type ScpOptions struct {
	Src   string
	Dest  string
	Port  int
	Key   string
	Proxy string
}

// Scp formats "scp [-o "ProxyCommand <proxy>"] [-P <port>] [-i <key>] <src> <dest>".
func Scp(opts ScpOptions) (string, error) {
	if err := requireArgs("scp", "src", opts.Src, "dest", opts.Dest); err != nil {
		return "", err
	}
	args := []string{"scp"}
	if opts.Proxy != "" {
		args = append(args, "-o", `"ProxyCommand `+opts.Proxy+`"`)
	}
	if opts.Port > 0 {
		args = append(args, "-P", itoa(opts.Port))
	}
	if opts.Key != "" {
		args = append(args, "-i", opts.Key)
	}
	args = append(args, opts.Src, opts.Dest)
	return Join(args...), nil
}

// RsyncOptions configures Rsync.
type RsyncOptions struct {
	Src            string
	Dest           string
	Excludes       []string
	AdditionalArgs []string

	// RemoteShell is passed quoted to --rsh, usually a bare ssh command.
	RemoteShell string
}

// Rsync formats an archive-mode, compressed rsync invocation.
func Rsync(opts RsyncOptions) (string, error) {
	if err := requireArgs("rsync", "src", opts.Src, "dest", opts.Dest); err != nil {
		return "", err
	}
	args := []string{"rsync", "--archive", "--compress"}
	args = append(args, opts.AdditionalArgs...)
	args = append(args, quoteEach("--exclude", opts.Excludes)...)
	if opts.RemoteShell != "" {
		args = append(args, "--rsh", Wrap(opts.RemoteShell))
	}
	args = append(args, opts.Src, opts.Dest)
	return Join(args...), nil
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
