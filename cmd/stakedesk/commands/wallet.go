package commands

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/moltbunker/stakedesk/internal/config"
	"github.com/moltbunker/stakedesk/internal/identity"
	"github.com/moltbunker/stakedesk/internal/logging"
)

// NewWalletCmd creates the wallet command group
func NewWalletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage the local keystore wallet",
		Long: `Manage the keystore wallet used when no external wallet provider is configured.

The wallet is stored as an encrypted keystore file (geth V3 format).
The password can be kept in your platform keyring:
  macOS:           Keychain
  Linux (desktop): GNOME Keyring / KDE Wallet
  Linux (server):  kernel keyring (volatile, lost on reboot)

Examples:
  stakedesk wallet create            # Generate a new wallet
  stakedesk wallet import            # Import from a private key
  stakedesk wallet show              # Show address and keystore path
  stakedesk wallet forget-password   # Remove the stored password`,
	}

	cmd.AddCommand(newWalletCreateCmd())
	cmd.AddCommand(newWalletImportCmd())
	cmd.AddCommand(newWalletShowCmd())
	cmd.AddCommand(newWalletExportCmd())
	cmd.AddCommand(newWalletForgetPasswordCmd())

	return cmd
}

// keystoreDir returns the --keystore flag value or the configured directory.
func keystoreDir(flag string) string {
	if flag != "" {
		return flag
	}
	if cfg, err := config.Load(configPath()); err == nil {
		return cfg.Wallet.KeystoreDir
	}
	return config.DefaultConfig().Wallet.KeystoreDir
}

// storePasswordInKeyring tries the platform keyring, then the kernel keyring.
func storePasswordInKeyring(password string) {
	if backend, err := identity.StoreWalletPassword(password); err == nil {
		fmt.Printf("  Password saved to %s\n", backend)
		fmt.Println("  The wallet will be unlocked automatically when signing.")
		return
	}

	if err := identity.StoreKernelKeyring(password); err == nil {
		fmt.Println("  Password saved to kernel keyring (in-memory, lost on reboot)")
		return
	}

	fmt.Println("  Could not store password in system keyring.")
	fmt.Println("  For automatic wallet unlock, set one of:")
	fmt.Printf("    - %s environment variable\n", config.EnvWalletPassword)
	fmt.Println("    - wallet.password_file in config.yaml")
}

// readNewPassword prompts for a password twice, up to three times.
func readNewPassword() (string, error) {
	const maxAttempts = 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		fmt.Fprint(os.Stderr, "Enter wallet password: ")
		password, err := readPasswordNoEcho()
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)

		if len(password) < 8 {
			Warning("Password must be at least 8 characters. Try again.")
			continue
		}

		fmt.Fprint(os.Stderr, "Confirm wallet password: ")
		confirm, err := readPasswordNoEcho()
		if err != nil {
			return "", fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Fprintln(os.Stderr)

		if password != confirm {
			Warning("Passwords do not match. Try again.")
			continue
		}
		return password, nil
	}
	return "", fmt.Errorf("too many failed attempts")
}

func newWalletCreateCmd() *cobra.Command {
	var (
		dirFlag  string
		lightKDF bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new wallet",
		Long:  "Create a new Ethereum wallet with a password-encrypted keystore file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := keystoreDir(dirFlag)
			if identity.HasWallet(dir) {
				return fmt.Errorf("wallet already exists at %s", dir)
			}
			if lightKDF {
				identity.UseLightKDF()
			}

			password, err := readNewPassword()
			if err != nil {
				return err
			}

			wm, err := identity.CreateWalletManager(dir, password)
			if err != nil {
				return fmt.Errorf("failed to create wallet: %w", err)
			}

			logging.Audit(logging.AuditEvent{
				Operation: "wallet_created",
				Actor:     wm.Address().Hex(),
				Target:    dir,
				Result:    "success",
			})

			fmt.Println()
			Success("Wallet created!")
			fmt.Println(StatusBox("Wallet", [][2]string{
				{"Address", wm.Address().Hex()},
				{"Keystore", dir},
			}))
			storePasswordInKeyring(password)
			fmt.Println()
			Warning("Back up your keystore directory and remember your password.")
			fmt.Println(Hint("If you lose either, your funds are unrecoverable."))
			return nil
		},
	}

	cmd.Flags().StringVar(&dirFlag, "keystore", "", "Path to keystore directory (default: wallet.keystore_dir)")
	cmd.Flags().BoolVar(&lightKDF, "light-kdf", false, "Use a faster, weaker key derivation (testing only)")

	return cmd
}

func newWalletImportCmd() *cobra.Command {
	var (
		dirFlag  string
		lightKDF bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a wallet from a private key",
		Long:  "Import an existing Ethereum private key into an encrypted keystore file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := keystoreDir(dirFlag)
			if identity.HasWallet(dir) {
				return fmt.Errorf("wallet already exists at %s", dir)
			}
			if lightKDF {
				identity.UseLightKDF()
			}

			const maxAttempts = 3
			var privKeyHex string
			for attempt := 1; attempt <= maxAttempts; attempt++ {
				fmt.Fprint(os.Stderr, "Enter private key (hex, with or without 0x prefix): ")
				input, err := readPasswordNoEcho()
				if err != nil {
					return fmt.Errorf("failed to read private key: %w", err)
				}
				fmt.Fprintln(os.Stderr)

				input = strings.TrimPrefix(strings.TrimSpace(input), "0x")
				if len(input) != 64 {
					Warning(fmt.Sprintf("Private key must be 64 hex characters (32 bytes), got %d. Try again.", len(input)))
					continue
				}
				privKeyHex = input
				break
			}
			if privKeyHex == "" {
				return fmt.Errorf("too many failed attempts")
			}

			password, err := readNewPassword()
			if err != nil {
				return err
			}

			wm, err := identity.ImportWalletManager(dir, privKeyHex, password)
			if err != nil {
				return fmt.Errorf("failed to import wallet: %w", err)
			}

			logging.Audit(logging.AuditEvent{
				Operation: "wallet_imported",
				Actor:     wm.Address().Hex(),
				Target:    dir,
				Result:    "success",
			})

			fmt.Println()
			Success("Wallet imported!")
			fmt.Println(StatusBox("Wallet", [][2]string{
				{"Address", wm.Address().Hex()},
				{"Keystore", dir},
			}))
			storePasswordInKeyring(password)
			return nil
		},
	}

	cmd.Flags().StringVar(&dirFlag, "keystore", "", "Path to keystore directory (default: wallet.keystore_dir)")
	cmd.Flags().BoolVar(&lightKDF, "light-kdf", false, "Use a faster, weaker key derivation (testing only)")

	return cmd
}

func newWalletShowCmd() *cobra.Command {
	var dirFlag string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show wallet address and keystore path",
		Long:  "Display the wallet address and keystore directory. No password needed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := keystoreDir(dirFlag)
			if !identity.HasWallet(dir) {
				Info("No wallet found.")
				fmt.Println(Hint("Create one with: stakedesk wallet create"))
				return nil
			}
			wm, err := identity.LoadWalletManager(dir)
			if err != nil {
				return fmt.Errorf("failed to load wallet: %w", err)
			}

			pwStatus := "not stored (prompted when signing)"
			if pw, err := identity.RetrieveWalletPassword(); err == nil && pw != "" {
				pwStatus = "stored in platform keyring"
			} else if pw, err := identity.RetrieveKernelKeyring(); err == nil && pw != "" {
				pwStatus = "stored in kernel keyring"
			}

			fmt.Println(StatusBox("Wallet", [][2]string{
				{"Address", wm.Address().Hex()},
				{"Keystore", dir},
				{"Password", pwStatus},
			}))
			return nil
		},
	}

	cmd.Flags().StringVar(&dirFlag, "keystore", "", "Path to keystore directory (default: wallet.keystore_dir)")

	return cmd
}

func newWalletExportCmd() *cobra.Command {
	var dirFlag string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the wallet's private key",
		Long: `Export the wallet's private key in hex format.

WARNING: The private key controls all funds in this wallet.
Never share it, and clear your terminal history after use.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := keystoreDir(dirFlag)
			if !identity.HasWallet(dir) {
				return fmt.Errorf("no wallet found at %s", dir)
			}
			wm, err := identity.LoadWalletManager(dir)
			if err != nil {
				return fmt.Errorf("failed to load wallet: %w", err)
			}

			fmt.Fprintf(os.Stderr, "WARNING: This will display your private key in plain text.\n")
			fmt.Fprintf(os.Stderr, "Anyone with this key can steal all funds in this wallet.\n\n")

			fmt.Fprint(os.Stderr, "Enter wallet password: ")
			password, err := readPasswordNoEcho()
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			fmt.Fprintln(os.Stderr)

			key, err := wm.ExportKey(password)
			if err != nil {
				return fmt.Errorf("failed to export key (wrong password?): %w", err)
			}

			fmt.Println()
			fmt.Printf("Address:     %s\n", wm.Address().Hex())
			fmt.Printf("Private Key: %s\n", key)
			fmt.Println()
			fmt.Fprintln(os.Stderr, "Clear your terminal history: history -c && history -w")
			return nil
		},
	}

	cmd.Flags().StringVar(&dirFlag, "keystore", "", "Path to keystore directory (default: wallet.keystore_dir)")

	return cmd
}

func newWalletForgetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget-password",
		Short: "Remove the wallet password from the system keyring",
		Long: `Remove the stored wallet password from the platform keyring and kernel keyring.

After this, signing prompts for the password unless it is provided through
the environment or a password file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := identity.ForgetPassword(); err != nil {
				Warning("Some keyrings could not be cleared: " + err.Error())
				return nil
			}
			Success("Removed stored wallet password")
			return nil
		},
	}
}

// readPasswordNoEcho reads a line from stdin with echo disabled.
func readPasswordNoEcho() (string, error) {
	password, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	return string(password), nil
}
