package credential

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lostmahbles/listial-api/internal/model"

	"gorm.io/gorm"
)

var (
	// ErrNotFound 表示邮箱或用户 ID 不存在。
	ErrNotFound = errors.New("user not found")
	// ErrBadPassword 表示密码校验失败。
	ErrBadPassword = errors.New("wrong password")
	// ErrEmailTaken 表示邮箱已被占用。
	ErrEmailTaken = errors.New("email already taken")
	// ErrEmailRequired 表示邮箱为空。
	ErrEmailRequired = errors.New("email required")
	// ErrPasswordRequired 表示密码为空。
	ErrPasswordRequired = errors.New("password required")
	// ErrInvalidToken 表示访问令牌没有对应用户。
	ErrInvalidToken = errors.New("invalid access token")
)

// Store 提供用户凭证的注册、认证与令牌解析。
//
// 哈希方案：hashed_password = HMAC-SHA1(salt, password) 的十六进制摘要，
// access_token = HMAC-SHA1(salt, 新随机盐)。二者在设置密码时一起生成，
// 所以改密码必然换令牌。
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewStore 创建凭证存储。
func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// ProfileUpdate 描述一次资料修改，nil 字段表示不变。
type ProfileUpdate struct {
	Email    *string
	Password *string
}

// Register 创建新用户。
//
// 邮箱转小写后要求非空且唯一，密码要求非空；成功后返回含新令牌的用户。
func (s *Store) Register(ctx context.Context, email, password string) (*model.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	var existing model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("query user: %w", err)
	}

	user := model.User{Email: email}
	if err := setPassword(&user, password); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("user registered", slog.String("email", email))
	}
	return &user, nil
}

// Authenticate 按邮箱查找用户并校验密码。
//
// 邮箱不存在返回 ErrNotFound，密码不匹配返回 ErrBadPassword。
func (s *Store) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = NormalizeEmail(email)

	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	digest := sign(user.Salt, password)
	if !hmac.Equal([]byte(digest), []byte(user.HashedPassword)) {
		return nil, ErrBadPassword
	}
	return &user, nil
}

// ResolveByToken 按访问令牌精确查找用户，找不到返回 ErrInvalidToken。
func (s *Store) ResolveByToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	var user model.User
	if err := s.db.WithContext(ctx).Where("access_token = ?", token).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("query token: %w", err)
	}
	return &user, nil
}

// GetByID 按主键查找用户。
func (s *Store) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// UpdateProfile 修改邮箱和/或密码。
//
// 邮箱走与注册相同的非空、唯一校验；改密码会重新生成盐、摘要和访问令牌，
// 旧令牌随即失效。
func (s *Store) UpdateProfile(ctx context.Context, userID uint, upd ProfileUpdate) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	if upd.Email != nil {
		email := NormalizeEmail(*upd.Email)
		if email == "" {
			return nil, ErrEmailRequired
		}
		if email != user.Email {
			var other model.User
			err := s.db.WithContext(ctx).Where("email = ?", email).First(&other).Error
			if err == nil {
				return nil, ErrEmailTaken
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("query user: %w", err)
			}
		}
		user.Email = email
	}

	if upd.Password != nil {
		if *upd.Password == "" {
			return nil, ErrPasswordRequired
		}
		if err := setPassword(&user, *upd.Password); err != nil {
			return nil, err
		}
	}

	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("save user: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("profile updated",
			slog.Uint64("user_id", uint64(user.ID)),
			slog.Bool("password_changed", upd.Password != nil),
		)
	}
	return &user, nil
}

// NormalizeEmail 去除首尾空白并转小写，持久化前的统一形态。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// setPassword 重新生成盐、密码摘要与访问令牌。
func setPassword(u *model.User, password string) error {
	salt, err := makeSalt()
	if err != nil {
		return err
	}
	tokenSeed, err := makeSalt()
	if err != nil {
		return err
	}
	u.Salt = salt
	u.HashedPassword = sign(salt, password)
	u.AccessToken = sign(salt, tokenSeed)
	return nil
}

// makeSalt 返回 16 字节的随机十六进制串。
func makeSalt() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// sign 计算 HMAC-SHA1(key, value) 的十六进制摘要。
func sign(key, value string) string {
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}
