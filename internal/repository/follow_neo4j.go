package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/d60-Lab/persona-graph/internal/model"
)

// Neo4jFollowRepository 以 (:Persona)-[:FOLLOWS]->(:Persona) 存储关注边。
// Persona 节点只携带 id，身份数据仍在关系库。
type Neo4jFollowRepository struct {
	driver neo4j.DriverWithContext
}

func NewNeo4jFollowRepository(driver neo4j.DriverWithContext) *Neo4jFollowRepository {
	return &Neo4jFollowRepository{driver: driver}
}

// EnsureSchema 建立节点唯一约束，使 MERGE 在并发下不会复制节点
func (r *Neo4jFollowRepository) EnsureSchema(ctx context.Context) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	stmts := []string{
		`CREATE CONSTRAINT persona_id IF NOT EXISTS FOR (p:Persona) REQUIRE p.id IS UNIQUE`,
		`CREATE CONSTRAINT follows_id IF NOT EXISTS FOR ()-[f:FOLLOWS]-() REQUIRE f.id IS UNIQUE`,
	}
	for _, q := range stmts {
		if _, err := session.Run(ctx, q, nil); err != nil {
			return fmt.Errorf("ensure neo4j schema: %w", err)
		}
	}
	return nil
}

func (r *Neo4jFollowRepository) Close(ctx context.Context) error { return r.driver.Close(ctx) }

func (r *Neo4jFollowRepository) Create(ctx context.Context, f *model.Follow) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	// MERGE 在两端节点加锁后判重，ON CREATE 仅在新建时写入我们的 id
	query := `
		MERGE (a:Persona {id: $followerID})
		MERGE (b:Persona {id: $followingID})
		MERGE (a)-[r:FOLLOWS]->(b)
		ON CREATE SET r.id = $id, r.created_at = $createdAt
		RETURN r.id = $id AS created
	`
	created, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, map[string]any{
			"followerID":  f.FollowerID,
			"followingID": f.FollowingID,
			"id":          f.ID,
			"createdAt":   f.CreatedAt.UnixNano(),
		})
		if err != nil {
			return false, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return false, err
		}
		v, _ := record.Get("created")
		ok, _ := v.(bool)
		return ok, nil
	})
	if err != nil {
		return fmt.Errorf("create follow %s->%s: %w", f.FollowerID, f.FollowingID, err)
	}
	if ok, _ := created.(bool); !ok {
		return fmt.Errorf("create follow %s->%s: %w", f.FollowerID, f.FollowingID, ErrDuplicate)
	}
	return nil
}

func (r *Neo4jFollowRepository) Delete(ctx context.Context, followerID, followingID string) (bool, error) {
	n, err := r.write(ctx, `
		MATCH (:Persona {id: $followerID})-[r:FOLLOWS]->(:Persona {id: $followingID})
		DELETE r
		RETURN count(r) AS n
	`, map[string]any{"followerID": followerID, "followingID": followingID})
	if err != nil {
		return false, err
	}
	return n > 0, r.prune(ctx, followerID, followingID)
}

func (r *Neo4jFollowRepository) Find(ctx context.Context, followerID, followingID string) (*model.Follow, error) {
	rows, err := r.list(ctx, `
		MATCH (a:Persona {id: $followerID})-[r:FOLLOWS]->(b:Persona {id: $followingID})
		RETURN r.id AS id, a.id AS follower_id, b.id AS following_id, r.created_at AS created_at
	`, map[string]any{"followerID": followerID, "followingID": followingID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

func (r *Neo4jFollowRepository) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	_, err := r.Find(ctx, followerID, followingID)
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *Neo4jFollowRepository) ListFollowings(ctx context.Context, followerID string, offset, limit int) ([]*model.Follow, error) {
	return r.list(ctx, `
		MATCH (a:Persona {id: $id})-[r:FOLLOWS]->(b:Persona)
		RETURN r.id AS id, a.id AS follower_id, b.id AS following_id, r.created_at AS created_at
		ORDER BY r.created_at DESC, r.id DESC
		SKIP $skip LIMIT $limit
	`, pageParams(followerID, offset, limit))
}

func (r *Neo4jFollowRepository) ListFollowers(ctx context.Context, followingID string, offset, limit int) ([]*model.Follow, error) {
	return r.list(ctx, `
		MATCH (a:Persona)-[r:FOLLOWS]->(b:Persona {id: $id})
		RETURN r.id AS id, a.id AS follower_id, b.id AS following_id, r.created_at AS created_at
		ORDER BY r.created_at DESC, r.id DESC
		SKIP $skip LIMIT $limit
	`, pageParams(followingID, offset, limit))
}

func (r *Neo4jFollowRepository) DeleteByFollower(ctx context.Context, followerID string) (int64, error) {
	n, err := r.write(ctx, `
		MATCH (:Persona {id: $id})-[r:FOLLOWS]->()
		DELETE r
		RETURN count(r) AS n
	`, map[string]any{"id": followerID})
	if err != nil {
		return n, err
	}
	return n, r.prune(ctx, followerID)
}

func (r *Neo4jFollowRepository) DeleteByFollowing(ctx context.Context, followingID string) (int64, error) {
	n, err := r.write(ctx, `
		MATCH ()-[r:FOLLOWS]->(:Persona {id: $id})
		DELETE r
		RETURN count(r) AS n
	`, map[string]any{"id": followingID})
	if err != nil {
		return n, err
	}
	return n, r.prune(ctx, followingID)
}

// prune 删除不再有任何边的 Persona 节点；节点只在 Create 时由 MERGE 产生
func (r *Neo4jFollowRepository) prune(ctx context.Context, ids ...string) error {
	_, err := r.write(ctx, `
		MATCH (p:Persona)
		WHERE p.id IN $ids AND NOT (p)--()
		DELETE p
		RETURN count(p) AS n
	`, map[string]any{"ids": ids})
	return err
}

func (r *Neo4jFollowRepository) write(ctx context.Context, query string, params map[string]any) (int64, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	n, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return int64(0), err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return int64(0), err
		}
		return getInt64FromRecord(record, "n"), nil
	})
	if err != nil {
		return 0, fmt.Errorf("neo4j write: %w", err)
	}
	return n.(int64), nil
}

func (r *Neo4jFollowRepository) list(ctx context.Context, query string, params map[string]any) ([]*model.Follow, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	res, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		var out []*model.Follow
		for result.Next(ctx) {
			rec := result.Record()
			out = append(out, &model.Follow{
				ID:          getStringFromRecord(rec, "id"),
				FollowerID:  getStringFromRecord(rec, "follower_id"),
				FollowingID: getStringFromRecord(rec, "following_id"),
				CreatedAt:   time.Unix(0, getInt64FromRecord(rec, "created_at")),
			})
		}
		return out, result.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j read: %w", err)
	}
	out, _ := res.([]*model.Follow)
	return out, nil
}

func pageParams(id string, offset, limit int) map[string]any {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 1 << 31
	}
	return map[string]any{"id": id, "skip": int64(offset), "limit": int64(limit)}
}

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getInt64FromRecord(record *neo4j.Record, key string) int64 {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

var _ FollowRepository = (*Neo4jFollowRepository)(nil)
