package mailqueue

import (
	"context"
	"log/slog"
	"time"

	"github.com/lostmahbles/listial-api/internal/pkg/metrics"
)

// Sender 负责真正投递一封邀请邮件。
type Sender interface {
	SendInvitation(ctx context.Context, listID uint, toEmail, listTitle, inviterEmail string) error
}

// Worker 循环消费邮件队列并通过 Sender 投递。
type Worker struct {
	consumer *Consumer
	sender   Sender
	logger   *slog.Logger
}

// NewWorker 创建一个邮件投递 worker。
func NewWorker(consumer *Consumer, sender Sender, logger *slog.Logger) *Worker {
	return &Worker{consumer: consumer, sender: sender, logger: logger}
}

// Run 阻塞运行，直到 ctx 取消。读取失败时退避后继续。
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("mail worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("mail worker stopped")
			return
		default:
		}

		messages, err := w.consumer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error("read mail queue failed", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		for _, msg := range messages {
			w.deliver(ctx, msg)
		}
	}
}

func (w *Worker) deliver(ctx context.Context, msg *MessageWithID) {
	m := msg.Message
	if err := w.sender.SendInvitation(ctx, m.ListID, m.Email, m.ListTitle, m.InviterEmail); err != nil {
		w.logger.Warn("deliver invitation mail failed",
			slog.String("email", m.Email),
			slog.Int("retry", m.Retry),
			slog.String("error", err.Error()))
		if failErr := w.consumer.HandleFailure(ctx, msg, err); failErr != nil {
			w.logger.Error("handle mail failure failed",
				slog.String("msg_id", msg.ID),
				slog.String("error", failErr.Error()))
		}
		return
	}

	metrics.MailSentTotal.Inc()
	if err := w.consumer.Ack(ctx, msg.ID); err != nil {
		w.logger.Error("ack mail message failed",
			slog.String("msg_id", msg.ID),
			slog.String("error", err.Error()))
	}
}
