package ssh

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tOgg1/shipit/internal/testutil"
)

func TestLocalRunUsesPlainPrefix(t *testing.T) {
	fake := &fakeExecutor{handler: func(string) fakeResponse {
		return fakeResponse{stdout: "hello\n", stderr: "warn\n"}
	}}
	var stdout, stderr bytes.Buffer
	nop := zerolog.Nop()
	local := &Local{Executor: fake, Stdout: &stdout, Stderr: &stderr, Logger: &nop}

	res, err := local.Run(context.Background(), "git status", LocalOptions{Cwd: "/tmp"})
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(res.Stdout))
	require.Equal(t, []string{"git status"}, fake.Commands())
	require.Equal(t, "@ hello\n", stdout.String())
	require.Equal(t, "@ warn\n", stderr.String())
}

func TestLocalRunRealShell(t *testing.T) {
	testutil.RequireCommands(t, "sh")

	nop := zerolog.Nop()
	local := &Local{Logger: &nop}
	res, err := local.Run(context.Background(), "printf ok", LocalOptions{Cwd: t.TempDir()})
	require.NoError(t, err)
	require.Equal(t, "ok", string(res.Stdout))
}
