// Package command builds the shell command strings used to reach remote
// hosts. Nothing in this package executes a process.
package command

import "strings"

var escaper = strings.NewReplacer(`"`, `\"`, `$`, `\$`)

// Escape escapes double quotes and dollar signs so the command survives
// a trip through a double-quoted shell argument.
func Escape(command string) string {
	return escaper.Replace(command)
}

// Wrap escapes command and surrounds it with double quotes.
func Wrap(command string) string {
	return `"` + Escape(command) + `"`
}

// Join joins non-empty arguments with a single space.
func Join(args ...string) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if arg != "" {
			parts = append(parts, arg)
		}
	}
	return strings.Join(parts, " ")
}

// Chain joins commands with "&&".
func Chain(commands ...string) string {
	return strings.Join(commands, " && ")
}

func quoteEach(flag string, values []string) []string {
	args := make([]string, 0, len(values)*2)
	for _, v := range values {
		args = append(args, flag, `"`+v+`"`)
	}
	return args
}
