// Package identity manages the local keystore wallet that signs staking
// transactions when no external wallet provider is configured.
package identity

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrNoWallet is returned by LoadWalletManager when the keystore is empty.
	ErrNoWallet = errors.New("no wallet in keystore")
	// ErrWalletExists is returned when creating or importing over a wallet.
	ErrWalletExists = errors.New("wallet already exists")
	// ErrLocked is returned when signing before Unlock.
	ErrLocked = errors.New("wallet is locked")
)

// Scrypt cost of newly written key files.
var (
	scryptN = keystore.StandardScryptN
	scryptP = keystore.StandardScryptP
)

// UseLightKDF lowers the scrypt cost of key files written afterwards. It trades
// key file strength for speed on constrained machines.
func UseLightKDF() {
	scryptN, scryptP = keystore.LightScryptN, keystore.LightScryptP
}

// WalletManager holds the single account of a keystore directory.
type WalletManager struct {
	keystore *keystore.KeyStore
	keyPath  string
	account  common.Address

	mu         sync.Mutex
	privateKey *ecdsa.PrivateKey
}

func openKeystore(keystoreDir string) (*keystore.KeyStore, error) {
	if err := os.MkdirAll(keystoreDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create keystore directory: %w", err)
	}
	return keystore.NewKeyStore(keystoreDir, scryptN, scryptP), nil
}

// HasWallet reports whether keystoreDir holds a key file, without creating it.
func HasWallet(keystoreDir string) bool {
	if _, err := os.Stat(keystoreDir); err != nil {
		return false
	}
	ks := keystore.NewKeyStore(keystoreDir, scryptN, scryptP)
	return len(ks.Accounts()) > 0
}

// LoadWalletManager opens the first account in keystoreDir.
// It returns ErrNoWallet when there is none.
func LoadWalletManager(keystoreDir string) (*WalletManager, error) {
	ks, err := openKeystore(keystoreDir)
	if err != nil {
		return nil, err
	}
	accts := ks.Accounts()
	if len(accts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoWallet, keystoreDir)
	}
	return &WalletManager{keystore: ks, keyPath: keystoreDir, account: accts[0].Address}, nil
}

// CreateWalletManager generates a new key encrypted with password.
func CreateWalletManager(keystoreDir, password string) (*WalletManager, error) {
	ks, err := openKeystore(keystoreDir)
	if err != nil {
		return nil, err
	}
	if len(ks.Accounts()) > 0 {
		return nil, fmt.Errorf("%w in %s", ErrWalletExists, keystoreDir)
	}

	account, err := ks.NewAccount(password)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return &WalletManager{keystore: ks, keyPath: keystoreDir, account: account.Address}, nil
}

// ImportWalletManager stores an existing hex private key (with or without 0x)
// encrypted with password.
func ImportWalletManager(keystoreDir, privKeyHex, password string) (*WalletManager, error) {
	privateKey, err := crypto.HexToECDSA(trimHexPrefix(privKeyHex))
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %w", err)
	}

	ks, err := openKeystore(keystoreDir)
	if err != nil {
		return nil, err
	}
	if len(ks.Accounts()) > 0 {
		return nil, fmt.Errorf("%w in %s", ErrWalletExists, keystoreDir)
	}

	account, err := ks.ImportECDSA(privateKey, password)
	if err != nil {
		return nil, fmt.Errorf("failed to import key: %w", err)
	}
	return &WalletManager{keystore: ks, keyPath: keystoreDir, account: account.Address}, nil
}

// Address returns the wallet account.
func (wm *WalletManager) Address() common.Address {
	return wm.account
}

// KeystoreDir returns the path to the keystore directory.
func (wm *WalletManager) KeystoreDir() string {
	return wm.keyPath
}

// Unlock decrypts the key file with password and keeps the key in memory
// until Lock.
func (wm *WalletManager) Unlock(password string) error {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	if wm.privateKey != nil {
		return nil
	}

	account, err := wm.keystore.Find(accounts.Account{Address: wm.account})
	if err != nil {
		return fmt.Errorf("failed to find key file: %w", err)
	}
	keyJSON, err := os.ReadFile(account.URL.Path)
	if err != nil {
		return fmt.Errorf("failed to read key file: %w", err)
	}
	key, err := keystore.DecryptKey(keyJSON, password)
	if err != nil {
		return fmt.Errorf("failed to decrypt key: %w", err)
	}

	wm.privateKey = key.PrivateKey
	return nil
}

// IsUnlocked reports whether the key is held in memory.
func (wm *WalletManager) IsUnlocked() bool {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	return wm.privateKey != nil
}

// Lock zeros and drops the in-memory key.
func (wm *WalletManager) Lock() {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	if wm.privateKey != nil {
		wm.privateKey.D.SetUint64(0)
		wm.privateKey = nil
	}
}

// SignTx signs tx for chainID with the unlocked key.
func (wm *WalletManager) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	wm.mu.Lock()
	key := wm.privateKey
	wm.mu.Unlock()
	if key == nil {
		return nil, ErrLocked
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}

// ExportKey returns the hex private key, decrypting with password.
func (wm *WalletManager) ExportKey(password string) (string, error) {
	if err := wm.Unlock(password); err != nil {
		return "", err
	}
	wm.mu.Lock()
	defer wm.mu.Unlock()
	if wm.privateKey == nil {
		return "", ErrLocked
	}
	return common.Bytes2Hex(crypto.FromECDSA(wm.privateKey)), nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
