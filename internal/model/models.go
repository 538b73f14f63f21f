package model

import (
	"time"
)

// List 表示一个可共享的清单。
//
// 成员关系与邀请分别放在 list_members / invitations 两张表里，
// 复合主键保证集合语义（同一用户/邮箱至多出现一次）。
// 清单在最后一名成员退出时整体删除。
type List struct {
	ID        uint      `gorm:"primaryKey"` // 清单唯一标识
	Title     string    `gorm:"not null"`   // 标题（必填）
	CreatedAt time.Time // 创建时间
	UpdatedAt time.Time // 更新时间

	Members []ListMember `gorm:"foreignKey:ListID"` // 已接受的成员
	Invites []Invitation `gorm:"foreignKey:ListID"` // 待处理的邀请
	Items   []ListItem   `gorm:"foreignKey:ListID"` // 清单条目（按 ID 升序即插入顺序）
}

// ListMember 是清单与用户的成员关系（多对多中间表）。
type ListMember struct {
	ListID uint `gorm:"primaryKey"` // 清单 ID
	UserID uint `gorm:"primaryKey"` // 用户 ID

	CreatedAt time.Time // 加入时间
}

// Invitation 表示按邮箱寻址的待处理邀请。
//
// 受邀人此刻可能还没有账号，所以这里只存小写邮箱而不是用户引用。
type Invitation struct {
	ListID uint   `gorm:"primaryKey"`                  // 清单 ID
	Email  string `gorm:"primaryKey;type:varchar(191)"` // 受邀邮箱（小写）

	CreatedAt time.Time // 邀请时间
}

// ListItem 表示清单里的一个条目。
type ListItem struct {
	ID        uint      `gorm:"primaryKey"`        // 条目 ID（清单内寻址用）
	ListID    uint      `gorm:"not null;index"`    // 所属清单
	Text      string    `gorm:"not null"`          // 条目内容
	Completed bool      `gorm:"default:false"`     // 是否已完成
	CreatedAt time.Time // 创建时间
	UpdatedAt time.Time // 更新时间
}
