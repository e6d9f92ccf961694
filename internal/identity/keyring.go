package identity

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/99designs/keyring"
)

const (
	keyringServiceName = "stakedesk"
	walletPasswordKey  = "keystore-password"
)

// StoreWalletPassword saves the keystore password in the platform keyring
// and returns the backend used (macOS Keychain or Secret Service).
func StoreWalletPassword(password string) (string, error) {
	ring, backend, err := openKeyring()
	if err != nil {
		return "", err
	}

	err = ring.Set(keyring.Item{
		Key:         walletPasswordKey,
		Data:        []byte(password),
		Label:       "stakedesk keystore password",
		Description: "Unlocks the stakedesk staking wallet",
	})
	if err != nil {
		return "", fmt.Errorf("failed to store in %s: %w", backend, err)
	}
	return backend, nil
}

// RetrieveWalletPassword returns ("", nil) when the keyring works but holds
// no password.
func RetrieveWalletPassword() (string, error) {
	ring, _, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(walletPasswordKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(item.Data), nil
}

// DeleteWalletPassword removes the stored password. Missing is not an error.
func DeleteWalletPassword() error {
	ring, _, err := openKeyring()
	if err != nil {
		return err
	}
	if err := ring.Remove(walletPasswordKey); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}

func openKeyring() (keyring.Keyring, string, error) {
	backends, name := platformKeyring()
	if len(backends) == 0 {
		return nil, "", fmt.Errorf("no keyring backend available on %s", runtime.GOOS)
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:                    keyringServiceName,
		AllowedBackends:                backends,
		KeychainTrustApplication:       true,
		KeychainAccessibleWhenUnlocked: true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s: %w", name, err)
	}
	return ring, name, nil
}

func platformKeyring() ([]keyring.BackendType, string) {
	switch runtime.GOOS {
	case "darwin":
		return []keyring.BackendType{keyring.KeychainBackend}, "macOS Keychain"
	case "linux":
		return []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend},
			"Secret Service"
	default:
		return nil, "system keyring"
	}
}
