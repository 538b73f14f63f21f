package api

import (
	"context"
	"errors"

	"github.com/lostmahbles/listial-api/internal/credential"
	"github.com/lostmahbles/listial-api/internal/model"
	"github.com/lostmahbles/listial-api/internal/store"

	"gorm.io/gorm"
)

// SeedDemoData 初始化本地演示数据。
//
// 只在 local 环境调用：保证有一个演示账号和一张带示例条目的
// 清单，重复启动是幂等的。
func (s *Server) SeedDemoData(ctx context.Context) error {
	const (
		demoEmail    = "demo@listial.dev"
		demoPassword = "demo-password"
		demoTitle    = "Getting started"
	)

	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", demoEmail).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		creds := credential.NewStore(s.db, s.logger)
		registered, regErr := creds.Register(ctx, demoEmail, demoPassword)
		if regErr != nil {
			return regErr
		}
		user = *registered
	}

	lists := store.NewStore(s.db, s.logger)
	count, err := lists.CountFor(ctx, user.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	list, err := lists.Create(ctx, demoTitle, user.ID)
	if err != nil {
		return err
	}
	for _, text := range []string{
		"Create a list of your own",
		"Invite someone by email",
		"Check items off as you go",
	} {
		if _, err := lists.AddItem(ctx, list.ID, user.ID, text); err != nil {
			return err
		}
	}

	s.logger.Info("demo data seeded")
	return nil
}
