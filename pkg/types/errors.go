package types

import "errors"

// Error kinds produced below the interaction controller. Lower layers wrap the
// underlying cause so that both errors.Is(err, ErrX) and the cause survive.
var (
	ErrNoWalletProvider    = errors.New("no wallet provider available")
	ErrUserRejected        = errors.New("user rejected the request")
	ErrNotConnected        = errors.New("wallet not connected")
	ErrNetworkSwitchFailed = errors.New("network switch failed")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrTransactionFailed   = errors.New("transaction failed")
	ErrReadFailed          = errors.New("contract read failed")
)

// Wrap returns an error that matches kind under errors.Is and still carries
// cause. A nil cause yields kind itself.
func Wrap(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return &kindError{kind: kind, cause: cause}
}

type kindError struct {
	kind  error
	cause error
}

func (e *kindError) Error() string {
	return e.kind.Error() + ": " + e.cause.Error()
}

func (e *kindError) Unwrap() []error {
	return []error{e.kind, e.cause}
}
