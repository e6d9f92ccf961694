package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/time/rate"

	"github.com/moltbunker/stakedesk/internal/logging"
)

// DefaultPollInterval is the receipt polling period when none is configured.
const DefaultPollInterval = time.Second

// WaitMined polls for the receipt of hash until the transaction is included
// or ctx is done. There is no timeout of its own. A receipt with failed status
// is returned together with ErrReverted.
func WaitMined(ctx context.Context, p Provider, hash common.Hash, interval time.Duration) (*types.Receipt, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	log := logging.With(logging.Component("chain"), logging.TxHash(hash))

	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for receipt: %w", err)
		}

		receipt, err := TransactionReceipt(ctx, p, hash)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("%w: %s", ErrReverted, hash.Hex())
			}
			return receipt, nil
		case errors.Is(err, ethereum.NotFound):
			log.Debug("transaction not yet mined")
		case ctx.Err() != nil:
			return nil, fmt.Errorf("waiting for receipt: %w", ctx.Err())
		default:
			log.Debug("receipt retrieval failed", logging.Err(err))
		}
	}
}
