package command

import (
	"path/filepath"
	"runtime"
)

var isWindows = runtime.GOOS == "windows"

// Cd formats "cd <folder>". On Windows a drive switch is appended when the
// folder lives on another volume.
func Cd(folder string) (string, error) {
	if err := requireArgs("cd", "folder", folder); err != nil {
		return "", err
	}
	args := []string{"cd", folder}
	if isWindows {
		if drive := filepath.VolumeName(folder); drive != "" {
			args = append(args, "&& "+drive)
		}
	}
	return Join(args...), nil
}

// MkdirOptions configures Mkdir.
type MkdirOptions struct {
	Folder string
	AsUser string
}

// Mkdir formats "mkdir -p <folder>".
func Mkdir(opts MkdirOptions) (string, error) {
	if err := requireArgs("mkdir", "folder", opts.Folder); err != nil {
		return "", err
	}
	return Raw(RawOptions{Command: Join("mkdir", "-p", opts.Folder), AsUser: opts.AsUser}), nil
}

// RmOptions configures Rm.
type RmOptions struct {
	File   string
	AsUser string
}

// Rm formats "rm <file>".
func Rm(opts RmOptions) (string, error) {
	if err := requireArgs("rm", "file", opts.File); err != nil {
		return "", err
	}
	return Raw(RawOptions{Command: Join("rm", opts.File), AsUser: opts.AsUser}), nil
}

// TarMode selects between archive creation and extraction.
type TarMode string

const (
	TarCompress TarMode = "compress"
	TarExtract  TarMode = "extract"
)

// TarOptions configures Tar.
type TarOptions struct {
	Mode     TarMode
	File     string
	Archive  string
	Excludes []string

	// StripComponents is passed to tar on extraction when positive.
	StripComponents int
}

// Tar formats a gzip tar invocation:
//
//	tar [--exclude "<e>" ...] -czf <archive> <file>
//	tar [--strip-components=N] -xzf <archive>
func Tar(opts TarOptions) (string, error) {
	args := []string{"tar"}
	switch opts.Mode {
	case TarCompress:
		if err := requireArgs("tar", "file", opts.File, "archive", opts.Archive); err != nil {
			return "", err
		}
		args = append(args, quoteEach("--exclude", opts.Excludes)...)
		args = append(args, "-czf", opts.Archive, opts.File)
	case TarExtract:
		if err := requireArgs("tar", "archive", opts.Archive); err != nil {
			return "", err
		}
		if opts.StripComponents > 0 {
			args = append(args, "--strip-components="+itoa(opts.StripComponents))
		}
		args = append(args, "-xzf", opts.Archive)
	default:
		return "", &InvalidModeError{Mode: opts.Mode}
	}
	return Join(args...), nil
}
