package auth

import (
	"context"
	"time"

	"teamflow/internal/logging"
	"teamflow/internal/repository"
)

// 期限切れ・失効済みになってからこれだけ経ったものを消す
const staleRetention = 24 * time.Hour

type TokenCleaner struct {
	tokens repository.RefreshTokenRepository
	clock  Clock
}

func NewTokenCleaner(tokens repository.RefreshTokenRepository, clock Clock) *TokenCleaner {
	return &TokenCleaner{tokens: tokens, clock: clock}
}

// RunOnce は1回分の掃除。消した件数を返す
func (c *TokenCleaner) RunOnce(ctx context.Context) (int64, error) {
	return c.tokens.DeleteStale(ctx, c.clock.Now().Add(-staleRetention))
}

// Run はctxがキャンセルされるまでintervalごとに掃除する
func (c *TokenCleaner) Run(ctx context.Context, interval time.Duration) {
	log := logging.FromContext(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.RunOnce(ctx)
			if err != nil {
				log.Warn("refresh token cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				log.Info("refresh tokens cleaned up", "deleted", n)
			}
		}
	}
}
