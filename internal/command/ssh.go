package command

import "strings"

// SSHOptions configures SSH. Every field is optional; without Remote the
// result is a bare ssh invocation suitable for rsync --rsh.
type SSHOptions struct {
	Remote  string
	Command string
	Port    int
	Key     string

	// Strict is the StrictHostKeyChecking value ("yes", "no", "true", "false").
	Strict string
	TTY    bool
	Proxy  string

	// VerbosityLevel maps 1, 2 and 3+ to -v, -vv and -vvv.
	VerbosityLevel int

	// Cwd runs Command from this directory and returns to the previous one.
	Cwd string
}

// SSH formats an ssh invocation:
//
//	ssh [-v|-vv|-vvv] [-tt] [-p <port>] [-i <key>] [-o ProxyCommand='<proxy>']
//	    [-o StrictHostKeyChecking=<strict>] <remote> ["<command>"]
func SSH(opts SSHOptions) string {
	args := []string{"ssh"}
	if opts.VerbosityLevel > 0 {
		level := opts.VerbosityLevel
		if level > 3 {
			level = 3
		}
		args = append(args, "-"+strings.Repeat("v", level))
	}
	if opts.TTY {
		args = append(args, "-tt")
	}
	if opts.Port > 0 {
		args = append(args, "-p", itoa(opts.Port))
	}
	if opts.Key != "" {
		args = append(args, "-i", opts.Key)
	}
	if opts.Proxy != "" {
		args = append(args, "-o", "ProxyCommand='"+opts.Proxy+"'")
	}
	if opts.Strict != "" {
		args = append(args, "-o", "StrictHostKeyChecking="+opts.Strict)
	}
	args = append(args, opts.Remote)
	if opts.Command != "" {
		cmd := opts.Command
		if opts.Cwd != "" {
			cmd = "cd " + opts.Cwd + " > /dev/null; " + cmd + "; cd - > /dev/null"
		}
		args = append(args, Wrap(cmd))
	}
	return Join(args...)
}
