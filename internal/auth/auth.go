// Package auth resolves the API key used to talk to the remote table store.
// Keys come from a chain of providers tried in order: an explicit config
// value, a helper command (a password manager, say) and the environment.
package auth

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ErrNoToken indicates a provider had nothing to offer.
var ErrNoToken = errors.New("no API key")

// EnvVars are the environment variables EnvProvider reads, in order.
var EnvVars = []string{"HOMESTOCK_API_KEY", "SUPABASE_ANON_KEY"}

// TokenProvider obtains an API key.
type TokenProvider interface {
	GetToken() (string, error)
}

// StaticProvider returns a fixed key, typically from the config file.
type StaticProvider struct {
	Token string
}

// GetToken returns the configured key.
func (s StaticProvider) GetToken() (string, error) {
	token := strings.TrimSpace(s.Token)
	if token == "" {
		return "", fmt.Errorf("api key not configured: %w", ErrNoToken)
	}
	return token, nil
}

// CommandProvider runs a shell command and uses its trimmed stdout as the key.
type CommandProvider struct {
	Command string
}

// GetToken runs the command through sh -c.
func (c CommandProvider) GetToken() (string, error) {
	if strings.TrimSpace(c.Command) == "" {
		return "", fmt.Errorf("api key command not configured: %w", ErrNoToken)
	}

	cmd := exec.Command("sh", "-c", c.Command)
	output, err := cmd.Output()
	if err != nil {
		if execErr, ok := err.(*exec.Error); ok && execErr.Err == exec.ErrNotFound {
			return "", errors.New("sh not found in PATH")
		}
		return "", fmt.Errorf("api key command failed: %w", err)
	}

	token := strings.TrimSpace(string(output))
	if token == "" {
		return "", fmt.Errorf("api key command returned empty output: %w", ErrNoToken)
	}
	return token, nil
}

// EnvProvider reads the first non-empty variable in EnvVars.
type EnvProvider struct{}

// GetToken reads the environment.
func (EnvProvider) GetToken() (string, error) {
	for _, name := range EnvVars {
		if token := strings.TrimSpace(os.Getenv(name)); token != "" {
			return token, nil
		}
	}
	return "", fmt.Errorf("%s not set: %w", strings.Join(EnvVars, " or "), ErrNoToken)
}

// GetToken returns the first key any provider yields. When every provider
// fails the error lists each failure and how to fix it.
func GetToken(providers ...TokenProvider) (string, error) {
	var errs []error
	for _, p := range providers {
		token, err := p.GetToken()
		if err == nil {
			return token, nil
		}
		errs = append(errs, err)
	}

	return "", fmt.Errorf(
		"failed to obtain API key: %w\n"+
			"Please either:\n"+
			"  1. Set supabase.api_key in the config file, or\n"+
			"  2. Set supabase.api_key_command to a command that prints the key, or\n"+
			"  3. Set the HOMESTOCK_API_KEY environment variable",
		errors.Join(errs...),
	)
}
