package mailqueue

import "time"

// InvitationMessage 表示邮件队列中的一条邀请通知。
//
// 在 Redis Streams 中传递，由 API 进程发布、后台 worker 投递。
type InvitationMessage struct {
	ListID       uint      `json:"list_id"`       // 清单 ID
	ListTitle    string    `json:"list_title"`    // 清单标题
	Email        string    `json:"email"`         // 受邀邮箱
	InviterEmail string    `json:"inviter_email"` // 邀请人邮箱
	Timestamp    time.Time `json:"timestamp"`     // 消息创建时间
	Retry        int       `json:"retry"`         // 重试次数
}

// NewInvitationMessage 创建一条邀请邮件消息。
func NewInvitationMessage(listID uint, listTitle, email, inviterEmail string) *InvitationMessage {
	return &InvitationMessage{
		ListID:       listID,
		ListTitle:    listTitle,
		Email:        email,
		InviterEmail: inviterEmail,
		Timestamp:    time.Now(),
		Retry:        0,
	}
}
