package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/lostmahbles/listial-api/internal/pkg/metrics"
)

const janitorInterval = time.Hour

// invitationPruner 是清理过期邀请所需的存储切面。
type invitationPruner interface {
	PruneInvitations(ctx context.Context, olderThan time.Duration) (int64, error)
}

// runJanitor 周期清理超过保留时间仍未答复的邀请。
//
// 保留时间来自配置 invitation_ttl，<=0 时不启动这个循环。
func (s *Server) runJanitor(ctx context.Context, pruner invitationPruner, ttl time.Duration) {
	s.logger.Info("invitation janitor started",
		slog.Duration("ttl", ttl),
		slog.Duration("interval", janitorInterval))

	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	s.pruneInvitations(ctx, pruner, ttl)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("invitation janitor stopped")
			return
		case <-ticker.C:
			s.pruneInvitations(ctx, pruner, ttl)
		}
	}
}

func (s *Server) pruneInvitations(ctx context.Context, pruner invitationPruner, ttl time.Duration) {
	pruned, err := pruner.PruneInvitations(ctx, ttl)
	if err != nil {
		s.logger.Error("prune invitations failed", slog.String("error", err.Error()))
		return
	}
	if pruned > 0 {
		metrics.InvitationsExpiredTotal.Add(float64(pruned))
		s.logger.Info("expired invitations pruned", slog.Int64("count", pruned))
	}
}
