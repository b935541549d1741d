package client

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// StartWatcher polls eth_accounts and eth_chainId and publishes changes on the
// accounts/chain feeds, since a plain JSON-RPC endpoint has no push channel.
// Polling is throttled to one round per interval with the given burst.
func (w *EVMWallet) StartWatcher(ctx context.Context, interval time.Duration, burst int) {
	if burst <= 0 {
		burst = 1
	}
	w.limiter = rate.NewLimiter(rate.Every(interval), burst)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-w.stop:
				cancel()
			case <-ctx.Done():
			}
		}()

		var (
			lastAccounts []string
			lastChain    string
			primed       bool
		)
		for {
			if err := w.limiter.Wait(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					w.logger.Debug("Wallet watcher stopped", "error", err)
				}
				return
			}

			accounts, err := w.Accounts(ctx)
			if err != nil {
				w.logger.Debug("Wallet watcher failed to poll accounts", "url", w.url, "error", err)
				continue
			}
			chainID, err := w.ChainID(ctx)
			if err != nil {
				w.logger.Debug("Wallet watcher failed to poll chain id", "url", w.url, "error", err)
				continue
			}

			if !primed {
				lastAccounts, lastChain, primed = accounts, chainID, true
				continue
			}
			if !sameAccounts(accounts, lastAccounts) {
				lastAccounts = accounts
				w.accountsFeed.Send(accounts)
			}
			if chainID != lastChain {
				lastChain = chainID
				w.chainFeed.Send(chainID)
			}
		}
	}()
}
