package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/persona-graph/internal/apperr"
	"github.com/d60-Lab/persona-graph/internal/model"
	"github.com/d60-Lab/persona-graph/internal/repository"
	"github.com/d60-Lab/persona-graph/pkg/logger"
)

// EdgeView 关注边及其两端 persona（两端都存在才会返回）
type EdgeView struct {
	Edge      *model.Follow
	Follower  *model.Persona
	Following *model.Persona
}

// RelationshipService 关注图：Follow 记录的唯一写入方
type RelationshipService interface {
	Follow(ctx context.Context, followerID, followingID string) (*model.Follow, error)
	Unfollow(ctx context.Context, followerID, followingID string) error
	FindEdge(ctx context.Context, followerID, followingID string) (*model.Follow, error)
	ListFollowing(ctx context.Context, personaID string, page, pageSize int) ([]*model.Follow, error)
	ListFollowers(ctx context.Context, personaID string, page, pageSize int) ([]*model.Follow, error)
	DeleteAllInitiatedBy(ctx context.Context, personaID string) error
	DeleteAllTargeting(ctx context.Context, personaID string) error

	// 以下操作以 actor 的活跃 persona 作为关注方
	FollowHandle(ctx context.Context, actor ActorContext, handle string) (*model.Follow, error)
	UnfollowHandle(ctx context.Context, actor ActorContext, handle string) error
	UnfollowAll(ctx context.Context, actor ActorContext) error

	// 按 handle 浏览，跳过指向已删除 persona 的悬挂边
	Following(ctx context.Context, handle string, page, pageSize int) ([]EdgeView, error)
	Followers(ctx context.Context, handle string, page, pageSize int) ([]EdgeView, error)
}

// Option 配置 relationshipService
type Option func(*relationshipService)

// WithClock 替换时间源（测试用于构造确定的排序）
func WithClock(now func() time.Time) Option {
	return func(s *relationshipService) { s.now = now }
}

type relationshipService struct {
	followRepo repository.FollowRepository
	personas   PersonaRegistry
	now        func() time.Time
}

func NewRelationshipService(followRepo repository.FollowRepository, personas PersonaRegistry, opts ...Option) RelationshipService {
	s := &relationshipService{followRepo: followRepo, personas: personas, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *relationshipService) Follow(ctx context.Context, followerID, followingID string) (*model.Follow, error) {
	if followerID == followingID {
		return nil, apperr.ErrSelfFollow
	}
	exists, err := s.followRepo.Exists(ctx, followerID, followingID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.ErrFollowExists
	}
	f := &model.Follow{
		ID:          uuid.New().String(),
		FollowerID:  followerID,
		FollowingID: followingID,
		CreatedAt:   s.now(),
	}
	if err := s.followRepo.Create(ctx, f); err != nil {
		// 并发下两次检查都可能通过，唯一索引兜底
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Wrap(apperr.ErrFollowExists, err)
		}
		return nil, err
	}
	return f, nil
}

func (s *relationshipService) Unfollow(ctx context.Context, followerID, followingID string) error {
	removed, err := s.followRepo.Delete(ctx, followerID, followingID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.ErrFollowNotFound
	}
	return nil
}

func (s *relationshipService) FindEdge(ctx context.Context, followerID, followingID string) (*model.Follow, error) {
	f, err := s.followRepo.Find(ctx, followerID, followingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.ErrFollowNotFound
	}
	return f, err
}

// pageWindow pageSize < 1 表示不分页
func pageWindow(page, pageSize int) (offset, limit int) {
	if pageSize < 1 {
		return 0, 0
	}
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize, pageSize
}

func (s *relationshipService) ListFollowing(ctx context.Context, personaID string, page, pageSize int) ([]*model.Follow, error) {
	offset, limit := pageWindow(page, pageSize)
	return s.followRepo.ListFollowings(ctx, personaID, offset, limit)
}

func (s *relationshipService) ListFollowers(ctx context.Context, personaID string, page, pageSize int) ([]*model.Follow, error) {
	offset, limit := pageWindow(page, pageSize)
	return s.followRepo.ListFollowers(ctx, personaID, offset, limit)
}

func (s *relationshipService) DeleteAllInitiatedBy(ctx context.Context, personaID string) error {
	n, err := s.followRepo.DeleteByFollower(ctx, personaID)
	if err != nil {
		return fmt.Errorf("delete edges from %s: %w", personaID, err)
	}
	logger.Debug("edges removed", zap.String("follower", personaID), zap.Int64("count", n))
	return nil
}

func (s *relationshipService) DeleteAllTargeting(ctx context.Context, personaID string) error {
	n, err := s.followRepo.DeleteByFollowing(ctx, personaID)
	if err != nil {
		return fmt.Errorf("delete edges to %s: %w", personaID, err)
	}
	logger.Debug("edges removed", zap.String("following", personaID), zap.Int64("count", n))
	return nil
}

// activePersona 重新读取活跃 persona，绑定可能已被其他请求删除
func (s *relationshipService) activePersona(ctx context.Context, actor ActorContext) (*model.Persona, error) {
	if !actor.HasActivePersona() {
		return nil, apperr.ErrNoActivePersona
	}
	p, err := s.personas.GetByID(ctx, actor.ActivePersonaID)
	if errors.Is(err, apperr.ErrPersonaNotFound) {
		return nil, apperr.ErrStaleActivePersona
	}
	return p, err
}

func (s *relationshipService) FollowHandle(ctx context.Context, actor ActorContext, handle string) (*model.Follow, error) {
	me, err := s.activePersona(ctx, actor)
	if err != nil {
		return nil, err
	}
	target, err := s.personas.GetByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	return s.Follow(ctx, me.ID, target.ID)
}

func (s *relationshipService) UnfollowHandle(ctx context.Context, actor ActorContext, handle string) error {
	me, err := s.activePersona(ctx, actor)
	if err != nil {
		return err
	}
	target, err := s.personas.GetByHandle(ctx, handle)
	if err != nil {
		return err
	}
	return s.Unfollow(ctx, me.ID, target.ID)
}

func (s *relationshipService) UnfollowAll(ctx context.Context, actor ActorContext) error {
	me, err := s.activePersona(ctx, actor)
	if err != nil {
		return err
	}
	return s.DeleteAllInitiatedBy(ctx, me.ID)
}

func (s *relationshipService) Following(ctx context.Context, handle string, page, pageSize int) ([]EdgeView, error) {
	p, err := s.personas.GetByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	edges, err := s.ListFollowing(ctx, p.ID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, edges)
}

func (s *relationshipService) Followers(ctx context.Context, handle string, page, pageSize int) ([]EdgeView, error) {
	p, err := s.personas.GetByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	edges, err := s.ListFollowers(ctx, p.ID, page, pageSize)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, edges)
}

// views 连接两端 persona；任一端缺失的边视为无效，跳过
func (s *relationshipService) views(ctx context.Context, edges []*model.Follow) ([]EdgeView, error) {
	ids := make([]string, 0, len(edges)*2)
	for _, e := range edges {
		ids = append(ids, e.FollowerID, e.FollowingID)
	}
	byID, err := s.personas.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}
	res := make([]EdgeView, 0, len(edges))
	for _, e := range edges {
		from, okFrom := byID[e.FollowerID]
		to, okTo := byID[e.FollowingID]
		if !okFrom || !okTo {
			logger.Debug("dangling follow edge skipped",
				zap.String("edge", e.ID), zap.String("follower", e.FollowerID), zap.String("following", e.FollowingID))
			continue
		}
		res = append(res, EdgeView{Edge: e, Follower: from, Following: to})
	}
	return res, nil
}
