package ssh

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/shipit/internal/testutil"
)

func TestShellExecutorCapturesOutput(t *testing.T) {
	testutil.RequireCommands(t, "sh")

	var sink bytes.Buffer
	res, err := NewShellExecutor().Exec(context.Background(), "echo out; echo err 1>&2", ExecOptions{Stdout: &sink})
	require.NoError(t, err)
	require.Equal(t, "out\n", string(res.Stdout))
	require.Equal(t, "err\n", string(res.Stderr))
	require.Equal(t, "out\n", sink.String())
	require.Equal(t, 0, res.Child.ExitCode)
	require.NotZero(t, res.Child.Pid)
}

func TestShellExecutorCwd(t *testing.T) {
	testutil.RequireCommands(t, "sh")

	dir := t.TempDir()
	res, err := NewShellExecutor().Exec(context.Background(), "pwd -P", ExecOptions{Cwd: dir})
	require.NoError(t, err)
	require.NotEmpty(t, res.Stdout)
}

func TestShellExecutorNonZeroExit(t *testing.T) {
	testutil.RequireCommands(t, "sh")

	_, err := NewShellExecutor().Exec(context.Background(), "echo partial; echo boom 1>&2; exit 3", ExecOptions{})
	var execErr *ExecError
	require.True(t, errors.As(err, &execErr))
	require.Equal(t, 3, execErr.ExitCode)
	require.Equal(t, "partial\n", string(execErr.Stdout))
	require.Equal(t, "boom\n", string(execErr.Stderr))
	require.Equal(t, 3, execErr.Child.ExitCode)
	require.Contains(t, execErr.Error(), "boom")
}

func TestShellExecutorBufferOverflow(t *testing.T) {
	testutil.SkipIfShort(t)
	testutil.RequireCommands(t, "sh", "yes")

	_, err := NewShellExecutor().Exec(context.Background(), "yes", ExecOptions{MaxBuffer: 1024})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrBufferOverflow))

	var execErr *ExecError
	require.True(t, errors.As(err, &execErr))
	require.Len(t, execErr.Stdout, 1024)
}

func TestShellExecutorEnv(t *testing.T) {
	testutil.RequireCommands(t, "sh")

	res, err := NewShellExecutor().Exec(context.Background(), "echo $SHIPIT_TEST_VALUE", ExecOptions{Env: []string{"SHIPIT_TEST_VALUE=42"}})
	require.NoError(t, err)
	require.Equal(t, "42\n", string(res.Stdout))
}
