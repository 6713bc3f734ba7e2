package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/d60-Lab/persona-graph/internal/model"
)

// FollowRepository 关注边存储。SQL 与 neo4j 两种实现都必须原子拒绝重复边（ErrDuplicate）
type FollowRepository interface {
	Create(ctx context.Context, f *model.Follow) error
	Delete(ctx context.Context, followerID, followingID string) (bool, error)
	Find(ctx context.Context, followerID, followingID string) (*model.Follow, error)
	Exists(ctx context.Context, followerID, followingID string) (bool, error)
	// 以下列表均按 created_at DESC, id DESC 排序
	ListFollowings(ctx context.Context, followerID string, offset, limit int) ([]*model.Follow, error)
	ListFollowers(ctx context.Context, followingID string, offset, limit int) ([]*model.Follow, error)
	DeleteByFollower(ctx context.Context, followerID string) (int64, error)
	DeleteByFollowing(ctx context.Context, followingID string) (int64, error)
}

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository { return &followRepository{db: db} }

func (r *followRepository) Create(ctx context.Context, f *model.Follow) error {
	// 不用 OnConflict DoNothing：重复关注需要由 ux_follow_pair 拒绝并上报
	if err := r.db.WithContext(ctx).Create(f).Error; err != nil {
		return fmt.Errorf("create follow %s->%s: %w", f.FollowerID, f.FollowingID, translate(err))
	}
	return nil
}

func (r *followRepository) Delete(ctx context.Context, followerID, followingID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&model.Follow{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *followRepository) Find(ctx context.Context, followerID, followingID string) (*model.Follow, error) {
	var f model.Follow
	err := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		First(&f).Error
	if err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *followRepository) ListFollowings(ctx context.Context, followerID string, offset, limit int) ([]*model.Follow, error) {
	offset, limit = normalizePage(offset, limit)
	var res []*model.Follow
	err := r.db.WithContext(ctx).
		Where("follower_id = ?", followerID).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *followRepository) ListFollowers(ctx context.Context, followingID string, offset, limit int) ([]*model.Follow, error) {
	offset, limit = normalizePage(offset, limit)
	var res []*model.Follow
	err := r.db.WithContext(ctx).
		Where("following_id = ?", followingID).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *followRepository) DeleteByFollower(ctx context.Context, followerID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("follower_id = ?", followerID).Delete(&model.Follow{})
	return res.RowsAffected, res.Error
}

func (r *followRepository) DeleteByFollowing(ctx context.Context, followingID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("following_id = ?", followingID).Delete(&model.Follow{})
	return res.RowsAffected, res.Error
}
