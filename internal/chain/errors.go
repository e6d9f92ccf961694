package chain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rpc"
)

// EIP-1193 provider error codes, plus the JSON-RPC codes the in-process
// providers raise.
const (
	CodeExecutionReverted = 3
	CodeInvalidParams     = -32602

	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeUnrecognizedChain = 4902
)

// ErrReverted is returned by WaitMined when the receipt reports failure.
var ErrReverted = errors.New("transaction reverted")

// ProviderError is an EIP-1193 error raised by an in-process provider.
// It implements rpc.Error so callers treat it like a remote error.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// ErrorCode implements rpc.Error.
func (e *ProviderError) ErrorCode() int { return e.Code }

// NewProviderError builds a ProviderError.
func NewProviderError(code int, msg string) error {
	return &ProviderError{Code: code, Message: msg}
}

// ErrorCode extracts the JSON-RPC / EIP-1193 code from err, if it has one.
func ErrorCode(err error) (int, bool) {
	var rerr rpc.Error
	if errors.As(err, &rerr) {
		return rerr.ErrorCode(), true
	}
	return 0, false
}

// IsUserRejected reports whether the user declined the request in the wallet.
func IsUserRejected(err error) bool {
	code, ok := ErrorCode(err)
	return ok && code == CodeUserRejected
}

// IsUnrecognizedChain reports whether the wallet does not know the chain.
func IsUnrecognizedChain(err error) bool {
	code, ok := ErrorCode(err)
	return ok && code == CodeUnrecognizedChain
}
