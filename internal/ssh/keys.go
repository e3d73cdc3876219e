package ssh

import (
	"errors"
	"fmt"
	"net"
	"os"

	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/term"

	xssh "golang.org/x/crypto/ssh"
)

// PassphrasePrompt returns the passphrase for the provided key path.
type PassphrasePrompt func(keyPath string) (string, error)

// CheckPrivateKey parses the key at path and returns its SHA256
// fingerprint. An encrypted key needs prompt; without one it fails with
// ErrPassphraseRequired.
func CheckPrivateKey(path string, prompt PassphrasePrompt) (string, error) {
	keyBytes, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read private key: %w", err)
	}

	signer, err := xssh.ParsePrivateKey(keyBytes)
	if err == nil {
		return xssh.FingerprintSHA256(signer.PublicKey()), nil
	}

	var missing *xssh.PassphraseMissingError
	if !errors.As(err, &missing) {
		return "", fmt.Errorf("parse private key: %w", err)
	}
	if prompt == nil {
		return "", ErrPassphraseRequired
	}

	passphrase, err := prompt(path)
	if err != nil {
		return "", fmt.Errorf("passphrase prompt failed: %w", err)
	}
	if passphrase == "" {
		return "", ErrPassphraseRequired
	}

	signer, err = xssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(passphrase))
	if err != nil {
		return "", fmt.Errorf("parse private key with passphrase: %w", err)
	}
	return xssh.FingerprintSHA256(signer.PublicKey()), nil
}

// TerminalPassphrasePrompt reads a passphrase from stdin without echoing input.
func TerminalPassphrasePrompt(path string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal")
	}

	fmt.Fprintf(os.Stderr, "Enter passphrase for %s: ", path)
	passphrase, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(passphrase), nil
}

// AgentKeyCount returns how many identities the agent at SSH_AUTH_SOCK holds.
func AgentKeyCount() (int, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return 0, ErrSSHAgentUnavailable
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSSHAgentUnavailable, err)
	}
	defer conn.Close()

	keys, err := agent.NewClient(conn).List()
	if err != nil {
		return 0, fmt.Errorf("list agent keys: %w", err)
	}
	return len(keys), nil
}
