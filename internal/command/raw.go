package command

import (
	"regexp"

	"github.com/tOgg1/shipit/internal/deprecation"
)

var sudoPattern = regexp.MustCompile(`sudo\s`)

// RawOptions configures Raw.
type RawOptions struct {
	Command string
	AsUser  string
}

// Raw returns the command, prefixed with "sudo -u <user>" when AsUser is
// set. A "sudo " already present in the command is dropped so sudo is
// never doubled.
func Raw(opts RawOptions) string {
	if opts.AsUser == "" {
		return opts.Command
	}
	cmd := opts.Command
	if loc := sudoPattern.FindStringIndex(cmd); loc != nil {
		deprecation.Warn(deprecation.V3, `You should not use "sudo" and "asUser" options together. Please remove "sudo" from command.`)
		cmd = cmd[:loc[0]] + cmd[loc[1]:]
	}
	return Join("sudo", "-u", opts.AsUser, cmd)
}
