package ssh

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/tOgg1/shipit/internal/deprecation"
)

// DefaultUser is used when a remote address omits the user.
const DefaultUser = "deploy"

var remotePattern = regexp.MustCompile(`^(?:([^@:]+)@)?([^@:]+)(?::(.+))?$`)

// Remote identifies an SSH-reachable target.
type Remote struct {
	User string
	Host string
	Port int
}

// ParseRemote parses "[user@]host[:port]".
func ParseRemote(s string) (Remote, error) {
	if s == "" {
		return Remote{}, fmt.Errorf("%w: a remote cannot be an empty string", ErrInvalidRemote)
	}
	m := remotePattern.FindStringSubmatch(s)
	if m == nil {
		return Remote{}, fmt.Errorf("%w: %q", ErrInvalidRemote, s)
	}

	r := Remote{User: m[1], Host: m[2]}
	if m[3] != "" {
		port, err := strconv.Atoi(m[3])
		if err != nil || port <= 0 {
			return Remote{}, fmt.Errorf("%w: invalid port %q", ErrInvalidRemote, m[3])
		}
		r.Port = port
	}
	if r.User == "" {
		deprecation.Warn(deprecation.V3, `Default user "deploy" is deprecated, please specify it explicitly.`)
		r.User = DefaultUser
	}
	return r, nil
}

// String returns "user@host". The port is carried separately.
func (r Remote) String() string {
	return r.User + "@" + r.Host
}

// FormatRemote returns the "user@host" identity used in ssh, scp and rsync
// targets.
func FormatRemote(r Remote) string {
	return r.String()
}
