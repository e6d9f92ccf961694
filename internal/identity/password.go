package identity

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/moltbunker/stakedesk/internal/logging"
)

// ErrNoPassword is returned when no source yields a password.
var ErrNoPassword = errors.New("no keystore password available")

// PasswordSources lists where a keystore password may come from. They are
// tried in field order; the first non-empty value wins.
type PasswordSources struct {
	// EnvVar names an environment variable holding the password.
	EnvVar string
	// File is a path whose first line is the password.
	File string
	// SkipKeyrings disables the platform and kernel keyrings.
	SkipKeyrings bool
	// Prompt asks the user interactively. It may return an error to abort.
	Prompt func() (string, error)
}

// ResolvePassword walks the sources and returns the first password found.
func ResolvePassword(src PasswordSources) (string, error) {
	log := logging.With(logging.Component("identity"))

	if src.EnvVar != "" {
		if pw := os.Getenv(src.EnvVar); pw != "" {
			log.Debug("keystore password from environment", "var", src.EnvVar)
			return pw, nil
		}
	}

	if src.File != "" {
		data, err := os.ReadFile(src.File)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		line, _, _ := strings.Cut(string(data), "\n")
		if pw := strings.TrimRight(line, "\r"); pw != "" {
			log.Debug("keystore password from file")
			return pw, nil
		}
	}

	if !src.SkipKeyrings {
		if pw, err := RetrieveWalletPassword(); err == nil && pw != "" {
			log.Debug("keystore password from platform keyring")
			return pw, nil
		}
		if pw, err := RetrieveKernelKeyring(); err == nil && pw != "" {
			log.Debug("keystore password from kernel keyring")
			return pw, nil
		}
	}

	if src.Prompt != nil {
		return src.Prompt()
	}
	return "", ErrNoPassword
}

// ForgetPassword removes the password from every keyring it may be stored in.
func ForgetPassword() error {
	return errors.Join(DeleteWalletPassword(), DeleteKernelKeyring())
}
