package repository

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/persona-graph/internal/model"
)

func setupRelBenchDB(b *testing.B) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true, Logger: logger.Discard})
	if err != nil {
		b.Fatalf("open db: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&model.Persona{}, &model.Follow{}); err != nil {
		b.Fatalf("migrate: %v", err)
	}
	return db
}

func seedPersonas(b *testing.B, db *gorm.DB, n int) []model.Persona {
	personas := make([]model.Persona, n)
	for i := range personas {
		id := fmt.Sprintf("p%04d", i)
		personas[i] = model.Persona{ID: id, Owner: "bench", Handle: id, Name: "Bench " + id}
	}
	if err := db.CreateInBatches(&personas, 500).Error; err != nil {
		b.Fatalf("seed personas: %v", err)
	}
	return personas
}

func BenchmarkFollowWrite_WithDuplicateRejection(b *testing.B) {
	db := setupRelBenchDB(b)
	followRepo := NewFollowRepository(db)
	ctx := context.Background()
	personas := seedPersonas(b, db, 1000)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		from := personas[rng.Intn(len(personas))].ID
		to := personas[rng.Intn(len(personas))].ID
		if from == to {
			continue
		}
		// 重复边返回 ErrDuplicate，属于预期路径
		_ = followRepo.Create(ctx, &model.Follow{ID: fmt.Sprintf("e%d", i), FollowerID: from, FollowingID: to, CreatedAt: time.Now()})
	}
}

func BenchmarkQueryFollowersAndFollowing(b *testing.B) {
	db := setupRelBenchDB(b)
	followRepo := NewFollowRepository(db)
	ctx := context.Background()

	// 构造：p0 有 N 个粉丝，同时 p0 也关注 N 个 persona
	const N = 5000
	personas := seedPersonas(b, db, N+1)
	p0 := personas[0].ID
	now := time.Now()
	for i := 1; i <= N; i++ {
		pid := personas[i].ID
		_ = followRepo.Create(ctx, &model.Follow{ID: "in" + pid, FollowerID: pid, FollowingID: p0, CreatedAt: now.Add(time.Duration(i))})
		_ = followRepo.Create(ctx, &model.Follow{ID: "out" + pid, FollowerID: p0, FollowingID: pid, CreatedAt: now.Add(time.Duration(i))})
	}

	b.ResetTimer()
	b.Run("ListFollowers", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = followRepo.ListFollowers(ctx, p0, 0, 50)
		}
	})

	b.Run("ListFollowings", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_, _ = followRepo.ListFollowings(ctx, p0, 0, 50)
		}
	})
}
