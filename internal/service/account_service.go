package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/d60-Lab/persona-graph/internal/apperr"
	"github.com/d60-Lab/persona-graph/internal/model"
	"github.com/d60-Lab/persona-graph/internal/repository"
	"github.com/d60-Lab/persona-graph/internal/session"
	"github.com/d60-Lab/persona-graph/pkg/logger"
)

// AccountService 账号注册、认证与整号删除
type AccountService struct {
	users       repository.UserRepository
	coordinator *Coordinator
	binder      *Binder
	cost        int
}

func NewAccountService(users repository.UserRepository, coordinator *Coordinator, binder *Binder) *AccountService {
	return &AccountService{users: users, coordinator: coordinator, binder: binder, cost: bcrypt.DefaultCost}
}

// WithHashCost 调整 bcrypt 成本（测试使用 bcrypt.MinCost）
func (s *AccountService) WithHashCost(cost int) *AccountService {
	s.cost = cost
	return s
}

func (s *AccountService) Register(ctx context.Context, username, password string) (*model.User, error) {
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now()
	u := &model.User{ID: uuid.New().String(), Username: username, PasswordHash: string(hash), CreatedAt: now, UpdatedAt: now}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Wrap(apperr.ErrUsernameTaken, err)
		}
		return nil, err
	}
	return u, nil
}

func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.ErrBadCredentials
	}
	return u, nil
}

// Verify 确认令牌对应的账号仍存在。账号删除后再以同名注册会得到新的 id，旧令牌随之失效
func (s *AccountService) Verify(ctx context.Context, username, accountID string) error {
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.ErrAccountNotFound
	}
	if err != nil {
		return err
	}
	if u.ID != accountID {
		return apperr.ErrAccountNotFound
	}
	return nil
}

// Delete 级联删除账号名下的 persona 与关注边，然后删除账号并清除会话绑定
func (s *AccountService) Delete(ctx context.Context, sess session.Session) error {
	if _, err := s.users.GetByUsername(ctx, sess.AccountUsername); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.ErrAccountNotFound
		}
		return err
	}
	if err := s.coordinator.DeleteAccount(ctx, sess.AccountUsername); err != nil {
		return err
	}
	if err := s.users.DeleteByUsername(ctx, sess.AccountUsername); err != nil {
		return fmt.Errorf("delete account %s: %w", sess.AccountUsername, err)
	}
	if err := s.binder.Clear(ctx, sess); err != nil {
		logger.Warn("clear session after account deletion", zap.String("session", sess.ID), zap.Error(err))
	}
	return nil
}
