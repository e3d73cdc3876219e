package ssh

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/shipit/internal/deprecation"
)

func TestParseRemote(t *testing.T) {
	tests := []struct {
		input string
		want  Remote
	}{
		{"user@host", Remote{User: "user", Host: "host"}},
		{"user@host:1234", Remote{User: "user", Host: "host", Port: 1234}},
		{"host", Remote{User: "deploy", Host: "host"}},
		{"host:22", Remote{User: "deploy", Host: "host", Port: 22}},
		{"web-1.example.com", Remote{User: "deploy", Host: "web-1.example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			restore := deprecation.SetHandler(nil)
			defer restore()

			got, err := ParseRemote(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseRemoteErrors(t *testing.T) {
	for _, input := range []string{"", "user@host:abc", "user@host:0", "a@b@c"} {
		_, err := ParseRemote(input)
		require.Error(t, err, input)
		require.True(t, errors.Is(err, ErrInvalidRemote), input)
	}

	_, err := ParseRemote("")
	require.Contains(t, err.Error(), "a remote cannot be an empty string")
}

func TestParseRemoteDefaultUserIsDeprecated(t *testing.T) {
	rec, restore := deprecation.Record()
	defer restore()

	_, err := ParseRemote("user@host")
	require.NoError(t, err)
	require.Empty(t, rec.Notices())

	_, err = ParseRemote("host")
	require.NoError(t, err)
	require.Len(t, rec.Notices(), 1)
	require.Equal(t, deprecation.V3, rec.Notices()[0].BreaksIn)
}

func TestFormatRemoteDropsPort(t *testing.T) {
	r, err := ParseRemote("user@host:1234")
	require.NoError(t, err)
	require.Equal(t, "user@host", FormatRemote(r))
}
