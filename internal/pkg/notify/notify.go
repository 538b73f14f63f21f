package notify

import (
	"context"

	"github.com/lostmahbles/listial-api/internal/pkg/mailqueue"
)

// QueuedNotifier 把邀请通知发布到 Redis 邮件队列，由后台 worker 投递。
type QueuedNotifier struct {
	producer *mailqueue.Producer
}

// NewQueuedNotifier 创建一个队列通知器。
func NewQueuedNotifier(producer *mailqueue.Producer) *QueuedNotifier {
	return &QueuedNotifier{producer: producer}
}

// SendInvitation 只负责入队，真正的投递由 mailqueue.Worker 完成。
func (n *QueuedNotifier) SendInvitation(ctx context.Context, listID uint, toEmail, listTitle, inviterEmail string) error {
	return n.producer.SubmitInvitation(ctx, listID, listTitle, toEmail, inviterEmail)
}
