package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	ctxPkg "github.com/opshub/opsvault/pkg/context"
	"github.com/opshub/opsvault/pkg/internal/model"
	"github.com/opshub/opsvault/pkg/internal/storage/db"
)

// UserService 维护用户表，用户来自认证网关注入的身份.
type UserService struct {
	dbc *db.Client
}

// NewUserService 创建并返回一个新的 UserService 实例.
func NewUserService(c context.Context) *UserService {
	return &UserService{dbc: ctxPkg.GetDBClient(c)}
}

// EnsureUser 确保用户存在，首次出现时落库；已存在且 displayName 变化时更新.
func (s *UserService) EnsureUser(ctx context.Context, email, displayName string) error {
	if email == "" {
		return validationError("email is required")
	}

	if s.dbc == nil || s.dbc.GetDB() == nil {
		return errors.New("db not initialized")
	}

	var u model.User
	err := s.dbc.GetDB().Where("email = ?", email).First(&u).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		u = model.User{Email: email, DisplayName: displayName}
		if err := s.dbc.GetDB().Create(&u).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}
	case err != nil:
		return fmt.Errorf("load user: %w", err)
	case displayName != "" && displayName != u.DisplayName:
		if err := s.dbc.GetDB().Model(&u).Update("display_name", displayName).Error; err != nil {
			return fmt.Errorf("update user: %w", err)
		}
	}

	return nil
}

// GetUser 按邮箱查询用户，不存在时返回 ErrNotFound.
func (s *UserService) GetUser(ctx context.Context, email string) (*model.User, error) {
	if s.dbc == nil || s.dbc.GetDB() == nil {
		return nil, errors.New("db not initialized")
	}

	var u model.User
	if err := s.dbc.GetDB().Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, joinMessage(ErrNotFound, "user not found")
		}

		return nil, fmt.Errorf("load user: %w", err)
	}

	return &u, nil
}
