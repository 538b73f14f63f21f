package mailqueue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lostmahbles/listial-api/internal/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

// Producer 邮件生产者，由 API 进程把邀请通知发布到队列。
type Producer struct {
	queue  *MailQueue
	logger *slog.Logger
}

// NewProducer 创建一个新的邮件生产者。
func NewProducer(rdb *redis.Client, logger *slog.Logger, streamName ...string) *Producer {
	stream := DefaultStream
	if len(streamName) > 0 && streamName[0] != "" {
		stream = streamName[0]
	}

	return &Producer{
		queue:  NewMailQueue(rdb, logger, stream),
		logger: logger,
	}
}

// SubmitInvitation 把邀请邮件任务提交到队列等待投递。
func (p *Producer) SubmitInvitation(ctx context.Context, listID uint, listTitle, email, inviterEmail string) error {
	if email == "" {
		return fmt.Errorf("email is empty")
	}

	msg := NewInvitationMessage(listID, listTitle, email, inviterEmail)
	if err := p.queue.Publish(ctx, msg); err != nil {
		p.logger.Error("submit invitation mail failed",
			slog.String("email", email),
			slog.String("error", err.Error()))
		return err
	}

	metrics.MailQueuedTotal.Inc()
	p.logger.Info("invitation mail queued",
		slog.Uint64("list_id", uint64(listID)),
		slog.String("email", email))
	return nil
}

// QueueLength 获取当前队列长度。
func (p *Producer) QueueLength(ctx context.Context) (int64, error) {
	return p.queue.StreamInfo(ctx)
}
