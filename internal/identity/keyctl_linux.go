//go:build linux

package identity

import (
	"fmt"
	"os/exec"
	"strings"
)

const kernelKeyringKeyName = "stakedesk-keystore"

// StoreKernelKeyring keeps the password in the user session keyring. It lives
// in kernel memory only and is gone after reboot. Needs keyctl (keyutils).
func StoreKernelKeyring(password string) error {
	cmd := exec.Command("keyctl", "padd", "user", kernelKeyringKeyName, "@u")
	cmd.Stdin = strings.NewReader(password)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("keyctl padd failed: %w (output: %s)", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// RetrieveKernelKeyring reads the password back.
func RetrieveKernelKeyring() (string, error) {
	keyID, err := kernelKeyID()
	if err != nil {
		return "", err
	}
	out, err := exec.Command("keyctl", "pipe", keyID).Output()
	if err != nil {
		return "", fmt.Errorf("keyctl pipe failed: %w", err)
	}
	return string(out), nil
}

// DeleteKernelKeyring unlinks the key. Missing is not an error.
func DeleteKernelKeyring() error {
	keyID, err := kernelKeyID()
	if err != nil {
		return nil
	}
	if _, err := exec.Command("keyctl", "unlink", keyID, "@u").Output(); err != nil {
		return fmt.Errorf("keyctl unlink failed: %w", err)
	}
	return nil
}

func kernelKeyID() (string, error) {
	out, err := exec.Command("keyctl", "search", "@u", "user", kernelKeyringKeyName).Output()
	if err != nil {
		return "", fmt.Errorf("keyctl search failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
