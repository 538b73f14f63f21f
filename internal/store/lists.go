package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lostmahbles/listial-api/internal/credential"
	"github.com/lostmahbles/listial-api/internal/model"

	"gorm.io/gorm"
)

var (
	// ErrNotFound 表示清单不存在、条目不存在，或操作者无权看到它。
	// 两种情况刻意不区分，避免资源枚举。
	ErrNotFound = errors.New("list not found")
	// ErrTitleRequired 表示清单标题为空。
	ErrTitleRequired = errors.New("list title required")
	// ErrEmailRequired 表示受邀邮箱为空。
	ErrEmailRequired = errors.New("invite email required")
	// ErrTextRequired 表示条目内容为空。
	ErrTextRequired = errors.New("item text required")
)

// Store 以清单为聚合根提供全部读写操作。
//
// 成员与邀请的集合语义由复合主键保证；成员数归零时清单连同条目、
// 邀请一起在同一事务里删除，不存在"修改后再检查"的竞态窗口。
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewStore 创建清单存储。
func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// CountFor 返回用户作为成员的清单数，配额策略用。
func (s *Store) CountFor(ctx context.Context, userID uint) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.ListMember{}).
		Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count lists: %w", err)
	}
	return n, nil
}

// Create 新建清单，创建者成为唯一成员。
func (s *Store) Create(ctx context.Context, title string, ownerID uint) (*model.List, error) {
	if title == "" {
		return nil, ErrTitleRequired
	}

	list := model.List{Title: title}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&list).Error; err != nil {
			return fmt.Errorf("create list: %w", err)
		}
		member := model.ListMember{ListID: list.ID, UserID: ownerID}
		if err := tx.Create(&member).Error; err != nil {
			return fmt.Errorf("add owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("list created",
			slog.Uint64("list_id", uint64(list.ID)),
			slog.Uint64("owner_id", uint64(ownerID)),
		)
	}
	return s.load(ctx, list.ID)
}

// ListsFor 返回用户作为成员、或其邮箱在受邀名单里的全部清单。
// 受邀即可见，接受与否另说。
func (s *Store) ListsFor(ctx context.Context, userID uint, email string) ([]model.List, error) {
	email = credential.NormalizeEmail(email)

	var lists []model.List
	memberOf := s.db.Model(&model.ListMember{}).Select("list_id").Where("user_id = ?", userID)
	invitedTo := s.db.Model(&model.Invitation{}).Select("list_id").Where("email = ?", email)

	err := s.preloaded(ctx).
		Where("id IN (?) OR id IN (?)", memberOf, invitedTo).
		Order("id ASC").
		Find(&lists).Error
	if err != nil {
		return nil, fmt.Errorf("query lists: %w", err)
	}
	return lists, nil
}

// Get 返回清单，仅限成员；清单不存在和非成员一律 ErrNotFound。
func (s *Store) Get(ctx context.Context, listID, userID uint) (*model.List, error) {
	if err := s.requireMember(ctx, s.db, listID, userID); err != nil {
		return nil, err
	}
	return s.load(ctx, listID)
}

// Invite 把小写邮箱加入受邀集合。
//
// 邮箱已在受邀名单时返回 ErrNotFound 而不是幂等成功，
// 与既有客户端观察到的行为保持一致。
func (s *Store) Invite(ctx context.Context, listID, userID uint, email string) (*model.Invitation, error) {
	email = credential.NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if err := s.requireMember(ctx, s.db, listID, userID); err != nil {
		return nil, err
	}

	var existing model.Invitation
	err := s.db.WithContext(ctx).
		Where("list_id = ? AND email = ?", listID, email).
		First(&existing).Error
	if err == nil {
		return nil, ErrNotFound
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("query invitation: %w", err)
	}

	invite := model.Invitation{ListID: listID, Email: email}
	if err := s.db.WithContext(ctx).Create(&invite).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("invitation created",
			slog.Uint64("list_id", uint64(listID)),
			slog.String("email", email),
		)
	}
	return &invite, nil
}

// RespondToInvite 接受或拒绝邀请。
//
// 前置条件：操作者还不是成员，且其邮箱在受邀名单里；任一不满足都按
// ErrNotFound 处理。接受时把邀请移入成员集合并返回更新后的清单，
// 拒绝时仅移除邀请并返回 nil 清单。
func (s *Store) RespondToInvite(ctx context.Context, listID uint, user *model.User, accept bool) (*model.List, error) {
	email := credential.NormalizeEmail(user.Email)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var memberCount int64
		if err := tx.Model(&model.ListMember{}).
			Where("list_id = ? AND user_id = ?", listID, user.ID).
			Count(&memberCount).Error; err != nil {
			return fmt.Errorf("query membership: %w", err)
		}
		if memberCount > 0 {
			return ErrNotFound
		}

		res := tx.Where("list_id = ? AND email = ?", listID, email).Delete(&model.Invitation{})
		if res.Error != nil {
			return fmt.Errorf("remove invitation: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		if accept {
			member := model.ListMember{ListID: listID, UserID: user.ID}
			if err := tx.Create(&member).Error; err != nil {
				return fmt.Errorf("add member: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("invitation answered",
			slog.Uint64("list_id", uint64(listID)),
			slog.String("email", email),
			slog.Bool("accepted", accept),
		)
	}
	if !accept {
		return nil, nil
	}
	return s.load(ctx, listID)
}

// RemoveMember 把用户移出清单；移出后成员数为零时整张清单删除，
// 返回值报告清单是否随之消失。删除与成员计数在同一事务里完成。
func (s *Store) RemoveMember(ctx context.Context, listID, userID uint) (bool, error) {
	var deleted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("list_id = ? AND user_id = ?", listID, userID).Delete(&model.ListMember{})
		if res.Error != nil {
			return fmt.Errorf("remove member: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		var remaining int64
		if err := tx.Model(&model.ListMember{}).
			Where("list_id = ?", listID).Count(&remaining).Error; err != nil {
			return fmt.Errorf("count members: %w", err)
		}
		if remaining > 0 {
			return nil
		}

		if err := tx.Where("list_id = ?", listID).Delete(&model.ListItem{}).Error; err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		if err := tx.Where("list_id = ?", listID).Delete(&model.Invitation{}).Error; err != nil {
			return fmt.Errorf("delete invitations: %w", err)
		}
		if err := tx.Delete(&model.List{}, listID).Error; err != nil {
			return fmt.Errorf("delete list: %w", err)
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if s.logger != nil {
		s.logger.Info("member removed",
			slog.Uint64("list_id", uint64(listID)),
			slog.Uint64("user_id", uint64(userID)),
			slog.Bool("list_deleted", deleted),
		)
	}
	return deleted, nil
}

// AddItem 在清单末尾追加条目并返回全部条目。
func (s *Store) AddItem(ctx context.Context, listID, userID uint, text string) ([]model.ListItem, error) {
	if text == "" {
		return nil, ErrTextRequired
	}
	if err := s.requireMember(ctx, s.db, listID, userID); err != nil {
		return nil, err
	}

	item := model.ListItem{ListID: listID, Text: text}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	items := []model.ListItem{}
	if err := s.db.WithContext(ctx).
		Where("list_id = ?", listID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	return items, nil
}

// SetItemCompleted 原地修改条目的完成标记，双向均可。
func (s *Store) SetItemCompleted(ctx context.Context, listID, itemID, userID uint, completed bool) (*model.ListItem, error) {
	if err := s.requireMember(ctx, s.db, listID, userID); err != nil {
		return nil, err
	}

	var item model.ListItem
	if err := s.db.WithContext(ctx).
		Where("id = ? AND list_id = ?", itemID, listID).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query item: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&item).Update("completed", completed).Error; err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	item.Completed = completed
	return &item, nil
}

// ClearCompleted 用单条条件删除移除清单里所有已完成条目，
// 然后返回结果清单。已清空的清单上再次调用是无操作。
func (s *Store) ClearCompleted(ctx context.Context, listID, userID uint) (*model.List, error) {
	if err := s.requireMember(ctx, s.db, listID, userID); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Where("list_id = ? AND completed = ?", listID, true).
		Delete(&model.ListItem{}).Error; err != nil {
		return nil, fmt.Errorf("clear items: %w", err)
	}
	return s.load(ctx, listID)
}

// requireMember 校验成员身份；清单不存在与非成员同样返回 ErrNotFound。
func (s *Store) requireMember(ctx context.Context, db *gorm.DB, listID, userID uint) error {
	var n int64
	if err := db.WithContext(ctx).Model(&model.ListMember{}).
		Where("list_id = ? AND user_id = ?", listID, userID).
		Count(&n).Error; err != nil {
		return fmt.Errorf("query membership: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// load 取整张清单，成员、邀请、条目均按插入顺序预加载。
func (s *Store) load(ctx context.Context, listID uint) (*model.List, error) {
	var list model.List
	if err := s.preloaded(ctx).First(&list, listID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query list: %w", err)
	}
	return &list, nil
}

func (s *Store) preloaded(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("list_members.created_at ASC") }).
		Preload("Invites", func(db *gorm.DB) *gorm.DB { return db.Order("invitations.created_at ASC") }).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("list_items.id ASC") })
}

// PruneInvitations 删除超过保留时间仍未答复的邀请，返回删除数量。
func (s *Store) PruneInvitations(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, nil
	}
	cutoff := time.Now().Add(-olderThan)
	res := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&model.Invitation{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune invitations: %w", res.Error)
	}
	return res.RowsAffected, nil
}
