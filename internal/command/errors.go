package command

import "fmt"

// MissingArgumentError reports a required field left empty.
type MissingArgumentError struct {
	Argument string
	Command  string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("\"%s\" argument is required in \"%s\" command", e.Argument, e.Command)
}

// InvalidModeError reports an unsupported tar mode.
type InvalidModeError struct {
	Mode TarMode
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("mode \"%s\" is not valid in \"tar\" command (valid values: [\"extract\", \"compress\"])", e.Mode)
}

// requireArgs checks name/value pairs in order and fails on the first empty value.
func requireArgs(command string, pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return &MissingArgumentError{Argument: pairs[i], Command: command}
		}
	}
	return nil
}
