package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/persona-graph/internal/apperr"
	"github.com/d60-Lab/persona-graph/internal/model"
	"github.com/d60-Lab/persona-graph/internal/repository"
	"github.com/d60-Lab/persona-graph/internal/session"
)

type fixture struct {
	db          *gorm.DB
	personas    PersonaRegistry
	graph       RelationshipService
	binder      *Binder
	coordinator *Coordinator
	freets      *FreetService
	accounts    *AccountService
	followRepo  repository.FollowRepository
}

// tickingClock 每次调用前进一秒，保证 newest-first 排序可预测
func tickingClock() func() time.Time {
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true, Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Persona{}, &model.Follow{}, &model.Freet{}))

	return buildFixture(db, repository.NewFollowRepository(db))
}

func buildFixture(db *gorm.DB, followRepo repository.FollowRepository) *fixture {
	personas := NewPersonaRegistry(repository.NewPersonaRepository(db), NewNamePolicy(DefaultNameMaxGroups))
	graph := NewRelationshipService(followRepo, personas, WithClock(tickingClock()))
	binder := NewBinder(personas, session.NewMemoryStore(time.Hour))
	freetRepo := repository.NewFreetRepository(db)
	coordinator := NewCoordinator(personas, graph, freetRepo)
	return &fixture{
		db:          db,
		personas:    personas,
		graph:       graph,
		binder:      binder,
		coordinator: coordinator,
		freets:      NewFreetService(freetRepo, personas),
		accounts:    NewAccountService(repository.NewUserRepository(db), coordinator, binder).WithHashCost(bcrypt.MinCost),
		followRepo:  followRepo,
	}
}

func (f *fixture) persona(t *testing.T, owner, handle, name string) *model.Persona {
	t.Helper()
	p, err := f.personas.Create(context.Background(), owner, handle, name)
	require.NoError(t, err)
	return p
}

func (f *fixture) follow(t *testing.T, from, to *model.Persona) {
	t.Helper()
	_, err := f.graph.Follow(context.Background(), from.ID, to.ID)
	require.NoError(t, err)
}

func (f *fixture) signIn(t *testing.T, sess session.Session, handle string) ActorContext {
	t.Helper()
	ctx := context.Background()
	_, err := f.binder.SignIn(ctx, sess, handle)
	require.NoError(t, err)
	actor, err := f.binder.Actor(ctx, sess)
	require.NoError(t, err)
	return actor
}

// --- Persona Registry ---

func TestRegistry_DuplicateHandleConflictsRegardlessOfOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.persona(t, "ann", "shared", "First")
	_, err := f.personas.Create(ctx, "bo", "shared", "Second")
	assert.ErrorIs(t, err, apperr.ErrHandleTaken)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// 另一顺序：bo 先创建
	f.persona(t, "bo", "other", "First")
	_, err = f.personas.Create(ctx, "ann", "other", "Second")
	assert.ErrorIs(t, err, apperr.ErrHandleTaken)
}

func TestRegistry_HandlesAreCaseSensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.persona(t, "ann", "Alice", "Alice Upper")
	f.persona(t, "ann", "alice", "Alice Lower")
	_, err := f.personas.Create(ctx, "ann", "alice", "Alice Again")
	assert.ErrorIs(t, err, apperr.ErrHandleTaken)

	got, err := f.personas.GetByHandle(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice Upper", got.Name)
}

func TestRegistry_InvalidFormat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.personas.Create(ctx, "ann", "bad handle", "Alice")
	assert.ErrorIs(t, err, apperr.ErrInvalidHandle)
	assert.Equal(t, apperr.KindInvalidFormat, apperr.KindOf(err))

	_, err = f.personas.Create(ctx, "ann", "alice", "one two three four five six seven")
	assert.ErrorIs(t, err, apperr.ErrInvalidName)

	_, err = f.personas.Create(ctx, "", "alice", "Alice")
	assert.Equal(t, apperr.KindInvalidFormat, apperr.KindOf(err))

	_, err = f.personas.Create(ctx, "ann", strings.Repeat("h", 80), "Alice")
	assert.ErrorIs(t, err, apperr.ErrInvalidHandle)
	_, err = f.personas.Create(ctx, "ann", "alice", strings.Repeat("n", MaxNameLength+1))
	assert.ErrorIs(t, err, apperr.ErrInvalidName)
	list, err := f.personas.ListByOwner(ctx, "ann")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRegistry_HandleIsTrimmedAndExact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.persona(t, "ann", "  alice ", "Alice A")
	assert.Equal(t, "alice", p.Handle)

	got, err := f.personas.GetByHandle(ctx, " alice")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	for _, partial := range []string{"alic", "lice", "alice2", "ALICE"} {
		_, err := f.personas.GetByHandle(ctx, partial)
		assert.ErrorIs(t, err, apperr.ErrPersonaNotFound, partial)
	}
}

func TestRegistry_UpdateChecksUniquenessExcludingSelf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.persona(t, "ann", "alice", "Alice")
	f.persona(t, "bo", "bob", "Bob")

	same := "alice"
	name := "Alice Renamed"
	got, err := f.personas.Update(ctx, alice.ID, PersonaUpdate{Handle: &same, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alice Renamed", got.Name)

	taken := "bob"
	_, err = f.personas.Update(ctx, alice.ID, PersonaUpdate{Handle: &taken})
	assert.ErrorIs(t, err, apperr.ErrHandleTaken)

	bad := "no spaces allowed"
	_, err = f.personas.Update(ctx, alice.ID, PersonaUpdate{Handle: &bad})
	assert.ErrorIs(t, err, apperr.ErrInvalidHandle)

	fresh := "alice_new"
	got, err = f.personas.Update(ctx, alice.ID, PersonaUpdate{Handle: &fresh})
	require.NoError(t, err)
	assert.Equal(t, "alice_new", got.Handle)
	assert.Equal(t, "ann", got.Owner, "owner is immutable")

	stored, err := f.personas.GetByHandle(ctx, "alice_new")
	require.NoError(t, err)
	assert.Equal(t, "Alice Renamed", stored.Name)

	_, err = f.personas.Update(ctx, "missing", PersonaUpdate{Name: &name})
	assert.ErrorIs(t, err, apperr.ErrPersonaNotFound)
}

func TestRegistry_UpdateOwned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.persona(t, "ann", "alice", "Alice")

	name := "Hijacked"
	_, err := f.personas.UpdateOwned(ctx, ActorContext{AccountUsername: "mallory"}, alice.ID, PersonaUpdate{Name: &name})
	assert.ErrorIs(t, err, apperr.ErrNotOwner)

	_, err = f.personas.UpdateOwned(ctx, ActorContext{AccountUsername: "ann"}, alice.ID, PersonaUpdate{Name: &name})
	assert.NoError(t, err)
}

func TestRegistry_ListByOwner(t *testing.T) {
	f := newFixture(t)
	f.persona(t, "ann", "a1", "A One")
	f.persona(t, "ann", "a2", "A Two")
	f.persona(t, "bo", "b1", "B One")

	list, err := f.personas.ListByOwner(context.Background(), "ann")
	require.NoError(t, err)
	assert.Len(t, list, 2)
	for _, p := range list {
		assert.Equal(t, "ann", p.Owner)
	}
}

// --- Follow Graph ---

func TestGraph_DuplicateAndReverseFollow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.persona(t, "ann", "a", "A")
	b := f.persona(t, "bo", "b", "B")

	f.follow(t, a, b)
	_, err := f.graph.Follow(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, apperr.ErrFollowExists)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = f.graph.Follow(ctx, b.ID, a.ID)
	assert.NoError(t, err, "reverse direction is an independent edge")
}

func TestGraph_SelfFollowRejected(t *testing.T) {
	f := newFixture(t)
	a := f.persona(t, "ann", "a", "A")

	_, err := f.graph.Follow(context.Background(), a.ID, a.ID)
	assert.ErrorIs(t, err, apperr.ErrSelfFollow)
}

func TestGraph_UnfollowRemovesEdge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.persona(t, "ann", "a", "A")
	b := f.persona(t, "bo", "b", "B")
	c := f.persona(t, "bo", "c", "C")
	f.follow(t, a, b)
	f.follow(t, a, c)

	require.NoError(t, f.graph.Unfollow(ctx, a.ID, b.ID))

	_, err := f.graph.FindEdge(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, apperr.ErrFollowNotFound)

	following, err := f.graph.ListFollowing(ctx, a.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, c.ID, following[0].FollowingID)

	assert.ErrorIs(t, f.graph.Unfollow(ctx, a.ID, b.ID), apperr.ErrFollowNotFound)
}

func TestGraph_ListsAreNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	target := f.persona(t, "ann", "target", "Target")
	var fans []*model.Persona
	for _, h := range []string{"f1", "f2", "f3"} {
		p := f.persona(t, "bo", h, "Fan")
		f.follow(t, p, target)
		fans = append(fans, p)
	}

	got, err := f.graph.ListFollowers(ctx, target.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, fans[2].ID, got[0].FollowerID)
	assert.Equal(t, fans[0].ID, got[2].FollowerID)

	page2, err := f.graph.ListFollowers(ctx, target.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, fans[0].ID, page2[0].FollowerID)
}

func TestGraph_ScenarioFollowThenUnfollow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.persona(t, "ann", "alice", "Alice A")
	bob := f.persona(t, "bo", "bob", "Bob")

	_, err := f.graph.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	followers, err := f.graph.ListFollowers(ctx, bob.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, alice.ID, followers[0].FollowerID)

	require.NoError(t, f.graph.Unfollow(ctx, alice.ID, bob.ID))

	followers, err = f.graph.ListFollowers(ctx, bob.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, followers)
}

func TestGraph_ActorOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.persona(t, "ann", "alice", "Alice")
	bob := f.persona(t, "bo", "bob", "Bob")
	carol := f.persona(t, "cy", "carol", "Carol")

	_, err := f.graph.FollowHandle(ctx, ActorContext{AccountUsername: "ann"}, "bob")
	assert.ErrorIs(t, err, apperr.ErrNoActivePersona)

	actor := f.signIn(t, session.Session{ID: "s1", AccountUsername: "ann"}, "alice")

	_, err = f.graph.FollowHandle(ctx, actor, "nobody")
	assert.ErrorIs(t, err, apperr.ErrPersonaNotFound)

	edge, err := f.graph.FollowHandle(ctx, actor, "bob")
	require.NoError(t, err)
	assert.Equal(t, actor.ActivePersonaID, edge.FollowerID)
	assert.Equal(t, bob.ID, edge.FollowingID)

	_, err = f.graph.FollowHandle(ctx, actor, "carol")
	require.NoError(t, err)

	views, err := f.graph.Following(ctx, "alice", 1, 10)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "carol", views[0].Following.Handle)
	assert.Equal(t, "alice", views[0].Follower.Handle)

	require.NoError(t, f.graph.UnfollowHandle(ctx, actor, "bob"))
	assert.ErrorIs(t, f.graph.UnfollowHandle(ctx, actor, "bob"), apperr.ErrFollowNotFound)

	require.NoError(t, f.graph.UnfollowAll(ctx, actor))
	_, err = f.graph.FindEdge(ctx, actor.ActivePersonaID, carol.ID)
	assert.ErrorIs(t, err, apperr.ErrFollowNotFound)
}

func TestGraph_DanglingEdgesAreSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.persona(t, "ann", "alice", "Alice")
	bob := f.persona(t, "bo", "bob", "Bob")
	f.follow(t, alice, bob)

	// 模拟级联中途崩溃：边指向一个已不存在的 persona
	require.NoError(t, f.followRepo.Create(ctx, &model.Follow{ID: "ghost-edge", FollowerID: "ghost", FollowingID: bob.ID, CreatedAt: time.Now()}))

	views, err := f.graph.Followers(ctx, "bob", 0, 0)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "alice", views[0].Follower.Handle)
}

// --- Session Binder ---

func TestBinder_SignInRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.persona(t, "ann", "alice", "Alice")
	sess := session.Session{ID: "s1", AccountUsername: "bo"}

	_, err := f.binder.SignIn(ctx, sess, "alice")
	assert.ErrorIs(t, err, apperr.ErrPersonaNotFound)

	_, err = f.binder.SignIn(ctx, sess, "nobody")
	assert.ErrorIs(t, err, apperr.ErrPersonaNotFound)

	_, err = f.binder.CurrentPersona(ctx, sess)
	assert.ErrorIs(t, err, apperr.ErrNoActivePersona)
}

func TestBinder_CurrentPersonaAndStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.persona(t, "ann", "alice", "Alice")
	sess := session.Session{ID: "s1", AccountUsername: "ann"}

	_, err := f.binder.CurrentPersona(ctx, sess)
	assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))

	f.signIn(t, sess, "alice")
	cur, err := f.binder.CurrentPersona(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, cur.ID)

	// 另一个会话删除了该 persona，绑定未被清理
	require.NoError(t, f.personas.Delete(ctx, alice.ID))
	_, err = f.binder.CurrentPersona(ctx, sess)
	assert.ErrorIs(t, err, apperr.ErrStaleActivePersona)

	require.NoError(t, f.binder.Clear(ctx, sess))
	_, err = f.binder.CurrentPersona(ctx, sess)
	assert.ErrorIs(t, err, apperr.ErrNoActivePersona)
}

func TestBinder_SwitchPersona(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.persona(t, "ann", "alice", "Alice")
	work := f.persona(t, "ann", "alice_work", "Alice Work")
	sess := session.Session{ID: "s1", AccountUsername: "ann"}

	f.signIn(t, sess, "alice")
	actor := f.signIn(t, sess, "alice_work")
	assert.Equal(t, work.ID, actor.ActivePersonaID)

	cur, err := f.binder.CurrentPersona(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, work.ID, cur.ID)
}

func TestGraph_StaleActorCannotFollow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.persona(t, "ann", "alice", "Alice")
	f.persona(t, "bo", "bob", "Bob")
	actor := f.signIn(t, session.Session{ID: "s1", AccountUsername: "ann"}, "alice")

	require.NoError(t, f.personas.Delete(ctx, alice.ID))
	_, err := f.graph.FollowHandle(ctx, actor, "bob")
	assert.ErrorIs(t, err, apperr.ErrStaleActivePersona)
}

// --- Referential-Integrity Coordinator ---

func TestCoordinator_DeletePersonaRemovesEdgesBothWays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.persona(t, "ann", "p", "P")
	spare := f.persona(t, "ann", "spare", "Spare")
	others := []*model.Persona{f.persona(t, "bo", "q", "Q"), f.persona(t, "bo", "r", "R")}
	for _, q := range others {
		f.follow(t, p, q)
		f.follow(t, q, p)
	}
	f.follow(t, others[0], others[1])

	actor := f.signIn(t, session.Session{ID: "s1", AccountUsername: "ann"}, "spare")
	_, err := f.freets.Publish(ctx, ActorContext{AccountUsername: "ann", ActivePersonaID: p.ID}, "soon gone")
	require.NoError(t, err)

	require.NoError(t, f.coordinator.DeletePersona(ctx, actor, p.ID))

	for _, q := range others {
		_, err := f.graph.FindEdge(ctx, p.ID, q.ID)
		assert.ErrorIs(t, err, apperr.ErrFollowNotFound)
		_, err = f.graph.FindEdge(ctx, q.ID, p.ID)
		assert.ErrorIs(t, err, apperr.ErrFollowNotFound)
	}
	_, err = f.graph.FindEdge(ctx, others[0].ID, others[1].ID)
	assert.NoError(t, err, "unrelated edges survive")

	_, err = f.personas.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, apperr.ErrPersonaNotFound)
	_, err = f.personas.GetByID(ctx, spare.ID)
	assert.NoError(t, err)

	var freetCount int64
	require.NoError(t, f.db.Model(&model.Freet{}).Where("author_id = ?", p.ID).Count(&freetCount).Error)
	assert.Zero(t, freetCount)

	// 重试幂等
	assert.NoError(t, f.coordinator.DeletePersona(ctx, actor, p.ID))
}

func TestCoordinator_CannotDeleteActivePersona(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.persona(t, "ann", "alice", "Alice")
	bob := f.persona(t, "bo", "bob", "Bob")
	f.follow(t, alice, bob)
	actor := f.signIn(t, session.Session{ID: "s1", AccountUsername: "ann"}, "alice")

	err := f.coordinator.DeletePersona(ctx, actor, alice.ID)
	assert.ErrorIs(t, err, apperr.ErrDeleteActivePersona)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	// 无任何变更
	_, err = f.personas.GetByID(ctx, alice.ID)
	assert.NoError(t, err)
	_, err = f.graph.FindEdge(ctx, alice.ID, bob.ID)
	assert.NoError(t, err)
}

func TestCoordinator_DeletePersonaRequiresOwner(t *testing.T) {
	f := newFixture(t)
	alice := f.persona(t, "ann", "alice", "Alice")

	err := f.coordinator.DeletePersona(context.Background(), ActorContext{AccountUsername: "mallory"}, alice.ID)
	assert.ErrorIs(t, err, apperr.ErrNotOwner)
}

func TestCoordinator_DeleteMissingPersonaOnlySweepsDanglingRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.persona(t, "ann", "alice", "Alice")
	bob := f.persona(t, "bo", "bob", "Bob")
	f.follow(t, alice, bob)
	require.NoError(t, f.followRepo.Create(ctx, &model.Follow{ID: "dangling", FollowerID: "gone", FollowingID: bob.ID, CreatedAt: time.Now()}))

	require.NoError(t, f.coordinator.DeletePersona(ctx, ActorContext{AccountUsername: "mallory"}, "gone"))

	_, err := f.followRepo.Find(ctx, "gone", bob.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = f.graph.FindEdge(ctx, alice.ID, bob.ID)
	assert.NoError(t, err)
	_, err = f.personas.GetByID(ctx, bob.ID)
	assert.NoError(t, err)
}

func TestCoordinator_DeleteAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a1 := f.persona(t, "ann", "a1", "A One")
	a2 := f.persona(t, "ann", "a2", "A Two")
	b := f.persona(t, "bo", "b", "B")
	c := f.persona(t, "cy", "c", "C")
	f.follow(t, a1, b)
	f.follow(t, b, a2)
	f.follow(t, a1, a2)
	f.follow(t, b, c)

	// 活跃 persona 限制不适用于整号删除
	f.signIn(t, session.Session{ID: "s1", AccountUsername: "ann"}, "a1")

	require.NoError(t, f.coordinator.DeleteAccount(ctx, "ann"))

	owned, err := f.personas.ListByOwner(ctx, "ann")
	require.NoError(t, err)
	assert.Empty(t, owned)

	var touching int64
	require.NoError(t, f.db.Model(&model.Follow{}).
		Where("follower_id IN ? OR following_id IN ?", []string{a1.ID, a2.ID}, []string{a1.ID, a2.ID}).
		Count(&touching).Error)
	assert.Zero(t, touching)

	_, err = f.graph.FindEdge(ctx, b.ID, c.ID)
	assert.NoError(t, err)
}

// failingFollowRepo 在指定步骤注入失败
type failingFollowRepo struct {
	repository.FollowRepository
	failTargeting bool
}

func (r *failingFollowRepo) DeleteByFollowing(ctx context.Context, id string) (int64, error) {
	if r.failTargeting {
		return 0, errors.New("store unavailable")
	}
	return r.FollowRepository.DeleteByFollowing(ctx, id)
}

func TestCoordinator_PartialFailureIsAggregatedAndRetryable(t *testing.T) {
	base := newFixture(t)
	flaky := &failingFollowRepo{FollowRepository: base.followRepo, failTargeting: true}
	f := buildFixture(base.db, flaky)
	ctx := context.Background()

	p := f.persona(t, "ann", "p", "P")
	q := f.persona(t, "bo", "q", "Q")
	f.follow(t, p, q)
	f.follow(t, q, p)

	err := f.coordinator.DeletePersona(ctx, ActorContext{AccountUsername: "ann"}, p.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unavailable")

	// 出边已删，persona 保留以便重试
	_, err = f.graph.FindEdge(ctx, p.ID, q.ID)
	assert.ErrorIs(t, err, apperr.ErrFollowNotFound)
	_, err = f.personas.GetByID(ctx, p.ID)
	assert.NoError(t, err)

	flaky.failTargeting = false
	require.NoError(t, f.coordinator.DeletePersona(ctx, ActorContext{AccountUsername: "ann"}, p.ID))
	_, err = f.graph.FindEdge(ctx, q.ID, p.ID)
	assert.ErrorIs(t, err, apperr.ErrFollowNotFound)
}

func TestCoordinator_DeleteAccountAggregatesFailures(t *testing.T) {
	base := newFixture(t)
	flaky := &failingFollowRepo{FollowRepository: base.followRepo, failTargeting: true}
	f := buildFixture(base.db, flaky)
	ctx := context.Background()
	f.persona(t, "ann", "a1", "A One")
	f.persona(t, "ann", "a2", "A Two")

	err := f.coordinator.DeleteAccount(ctx, "ann")
	require.Error(t, err)

	owned, lerr := f.personas.ListByOwner(ctx, "ann")
	require.NoError(t, lerr)
	assert.Len(t, owned, 2, "no persona is removed while edge cleanup is failing")
}

// --- Freets ---

func TestFreets_PublishListDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.persona(t, "ann", "alice", "Alice")

	_, err := f.freets.Publish(ctx, ActorContext{AccountUsername: "ann"}, "hi")
	assert.ErrorIs(t, err, apperr.ErrNoActivePersona)

	actor := f.signIn(t, session.Session{ID: "s1", AccountUsername: "ann"}, "alice")
	_, err = f.freets.Publish(ctx, actor, "   ")
	assert.ErrorIs(t, err, apperr.ErrInvalidContent)

	first, err := f.freets.Publish(ctx, actor, "first")
	require.NoError(t, err)
	assert.Equal(t, actor.ActivePersonaID, first.AuthorID)

	list, err := f.freets.ListByAuthor(ctx, "alice", 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	err = f.freets.Delete(ctx, ActorContext{AccountUsername: "mallory"}, first.ID)
	assert.ErrorIs(t, err, apperr.ErrNotOwner)

	require.NoError(t, f.freets.Delete(ctx, actor, first.ID))
	assert.ErrorIs(t, f.freets.Delete(ctx, actor, first.ID), apperr.ErrFreetNotFound)
}

// --- Accounts ---

func TestAccounts_RegisterAuthenticateDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.accounts.Register(ctx, "ann", "secret1")
	require.NoError(t, err)
	_, err = f.accounts.Register(ctx, "ann", "secret2")
	assert.ErrorIs(t, err, apperr.ErrUsernameTaken)
	_, err = f.accounts.Register(ctx, "bad name", "secret1")
	assert.ErrorIs(t, err, apperr.ErrInvalidAccount)

	_, err = f.accounts.Authenticate(ctx, "ann", "wrong")
	assert.ErrorIs(t, err, apperr.ErrBadCredentials)
	u, err := f.accounts.Authenticate(ctx, "ann", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "ann", u.Username)

	alice := f.persona(t, "ann", "alice", "Alice")
	bob := f.persona(t, "bo", "bob", "Bob")
	f.follow(t, bob, alice)
	sess := session.Session{ID: "s1", AccountUsername: "ann"}
	f.signIn(t, sess, "alice")

	require.NoError(t, f.accounts.Delete(ctx, sess))

	_, err = f.accounts.Authenticate(ctx, "ann", "secret1")
	assert.ErrorIs(t, err, apperr.ErrBadCredentials)
	_, err = f.graph.FindEdge(ctx, bob.ID, alice.ID)
	assert.ErrorIs(t, err, apperr.ErrFollowNotFound)
	_, err = f.binder.CurrentPersona(ctx, sess)
	assert.ErrorIs(t, err, apperr.ErrNoActivePersona)

	assert.ErrorIs(t, f.accounts.Delete(ctx, sess), apperr.ErrAccountNotFound)
}

func TestAccounts_VerifyTracksAccountIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.accounts.Register(ctx, "ann", "secret1")
	require.NoError(t, err)
	require.NoError(t, f.accounts.Verify(ctx, "ann", first.ID))
	assert.ErrorIs(t, f.accounts.Verify(ctx, "ann", "other-id"), apperr.ErrAccountNotFound)
	assert.ErrorIs(t, f.accounts.Verify(ctx, "nobody", first.ID), apperr.ErrAccountNotFound)

	require.NoError(t, f.accounts.Delete(ctx, session.Session{ID: "s1", AccountUsername: "ann"}))
	err = f.accounts.Verify(ctx, "ann", first.ID)
	assert.ErrorIs(t, err, apperr.ErrAccountNotFound)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	second, err := f.accounts.Register(ctx, "ann", "secret1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.ErrorIs(t, f.accounts.Verify(ctx, "ann", first.ID), apperr.ErrAccountNotFound)
	assert.NoError(t, f.accounts.Verify(ctx, "ann", second.ID))
}
