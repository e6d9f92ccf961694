//go:build !linux

package identity

import "errors"

var errNoKernelKeyring = errors.New("kernel keyring is only available on Linux")

// StoreKernelKeyring is unsupported off Linux.
func StoreKernelKeyring(string) error { return errNoKernelKeyring }

// RetrieveKernelKeyring is unsupported off Linux.
func RetrieveKernelKeyring() (string, error) { return "", errNoKernelKeyring }

// DeleteKernelKeyring is a no-op off Linux.
func DeleteKernelKeyring() error { return nil }
