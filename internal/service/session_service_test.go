package service

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewrz/word-soul/internal/model"
)

type fakeWorldRepo struct {
	worlds  map[int64]*model.World
	nextID  int64
	updates int
}

func newFakeWorldRepo() *fakeWorldRepo {
	return &fakeWorldRepo{worlds: make(map[int64]*model.World)}
}

func (r *fakeWorldRepo) Create(ctx context.Context, world *model.World) (int64, error) {
	r.nextID++
	world.ID = r.nextID
	r.worlds[world.ID] = world
	return world.ID, nil
}

func (r *fakeWorldRepo) GetByID(ctx context.Context, id int64) (*model.World, error) {
	return r.worlds[id], nil
}

func (r *fakeWorldRepo) Update(ctx context.Context, world *model.World) error {
	r.updates++
	r.worlds[world.ID] = world
	return nil
}

type fakeSessionRepo struct {
	sessions map[int64]*model.GameSession
	nextID   int64
	getCalls int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[int64]*model.GameSession)}
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *model.GameSession) (int64, error) {
	r.nextID++
	session.ID = r.nextID
	r.sessions[session.ID] = session
	return session.ID, nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id int64) (*model.GameSession, error) {
	r.getCalls++
	return r.sessions[id], nil
}

func (r *fakeSessionRepo) ListByUser(ctx context.Context, userID int64) ([]*model.GameSession, error) {
	var out []*model.GameSession
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, session *model.GameSession) error {
	r.sessions[session.ID] = session
	return nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, id int64) error {
	delete(r.sessions, id)
	return nil
}

type fakeSettingRepo struct {
	configs map[int64]*model.AIConfig
	nextID  int64
}

func newFakeSettingRepo() *fakeSettingRepo {
	return &fakeSettingRepo{configs: make(map[int64]*model.AIConfig)}
}

func (r *fakeSettingRepo) Create(ctx context.Context, cfg *model.AIConfig) (int64, error) {
	r.nextID++
	cfg.ID = r.nextID
	r.configs[cfg.ID] = cfg
	return cfg.ID, nil
}

func (r *fakeSettingRepo) GetByIDForUser(ctx context.Context, id, userID int64) (*model.AIConfig, error) {
	cfg := r.configs[id]
	if cfg == nil || cfg.UserID != userID {
		return nil, nil
	}
	return cfg, nil
}

func (r *fakeSettingRepo) ListByUser(ctx context.Context, userID int64) ([]*model.AIConfig, error) {
	var out []*model.AIConfig
	for _, cfg := range r.configs {
		if cfg.UserID == userID {
			out = append(out, cfg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeSettingRepo) Update(ctx context.Context, cfg *model.AIConfig) error {
	r.configs[cfg.ID] = cfg
	return nil
}

func (r *fakeSettingRepo) Delete(ctx context.Context, id, userID int64) (bool, error) {
	cfg := r.configs[id]
	if cfg == nil || cfg.UserID != userID {
		return false, nil
	}
	delete(r.configs, id)
	return true, nil
}

type fakeSessionCache struct {
	entries map[int64]*model.GameSession
	sets    int
	deletes int
}

func newFakeSessionCache() *fakeSessionCache {
	return &fakeSessionCache{entries: make(map[int64]*model.GameSession)}
}

func (c *fakeSessionCache) Set(ctx context.Context, session *model.GameSession) error {
	c.sets++
	c.entries[session.ID] = session
	return nil
}

func (c *fakeSessionCache) Get(ctx context.Context, id int64) (*model.GameSession, error) {
	return c.entries[id], nil
}

func (c *fakeSessionCache) Delete(ctx context.Context, id int64) error {
	c.deletes++
	delete(c.entries, id)
	return nil
}

type sessionFixture struct {
	svc      *SessionService
	worlds   *fakeWorldRepo
	sessions *fakeSessionRepo
	settings *fakeSettingRepo
	cache    *fakeSessionCache
	narrator *scriptedNarrator
}

func newSessionFixture() *sessionFixture {
	f := &sessionFixture{
		worlds:   newFakeWorldRepo(),
		sessions: newFakeSessionRepo(),
		settings: newFakeSettingRepo(),
		cache:    newFakeSessionCache(),
		narrator: &scriptedNarrator{reply: model.AIResponse{Description: "叙事继续。"}},
	}
	f.svc = NewSessionService(f.sessions, f.worlds, f.settings, f.cache, f.narrator)
	return f
}

func (f *sessionFixture) seed(t *testing.T, userID int64) *model.GameSession {
	t.Helper()
	world := testWorld()
	_, err := f.worlds.Create(context.Background(), world)
	require.NoError(t, err)

	session := testSession(world)
	session.UserID = userID
	session.WorldID = world.ID
	_, err = f.sessions.Create(context.Background(), session)
	require.NoError(t, err)
	return session
}

func TestListResolvesWorldNames(t *testing.T) {
	f := newSessionFixture()
	f.seed(t, 1)

	orphan := &model.GameSession{UserID: 1, WorldID: 999}
	_, err := f.sessions.Create(context.Background(), orphan)
	require.NoError(t, err)

	// Another player's session must not leak into the listing.
	f.seed(t, 2)

	summaries, err := f.svc.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "测试世界", summaries[0].WorldName)
	assert.Equal(t, "未知世界", summaries[1].WorldName)
}

func TestGetEnforcesOwnership(t *testing.T) {
	f := newSessionFixture()
	session := f.seed(t, 1)

	detail, err := f.svc.Get(context.Background(), 1, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "测试世界", detail.WorldName)

	_, err = f.svc.Get(context.Background(), 2, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.svc.Get(context.Background(), 1, 404)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestLoadPrefersCache(t *testing.T) {
	f := newSessionFixture()
	session := f.seed(t, 1)
	require.NoError(t, f.cache.Set(context.Background(), session))
	f.sessions.getCalls = 0

	_, err := f.svc.Get(context.Background(), 1, session.ID)
	require.NoError(t, err)
	assert.Zero(t, f.sessions.getCalls)
}

func TestDeleteEvictsCache(t *testing.T) {
	f := newSessionFixture()
	session := f.seed(t, 1)
	require.NoError(t, f.cache.Set(context.Background(), session))
	f.cache.deletes = 0

	require.NoError(t, f.svc.Delete(context.Background(), 1, session.ID))
	assert.Empty(t, f.sessions.sessions)
	assert.Equal(t, 1, f.cache.deletes)
}

func TestTakeActionCommitsSessionAndModifiedWorld(t *testing.T) {
	f := newSessionFixture()
	session := f.seed(t, 1)
	f.narrator.reply = model.AIResponse{
		Description: "一位老者托付了差事。",
		CreateNewQuest: &model.QuestSpec{
			Name: "寻找遗刻",
			Goal: "在镇外林地寻回石碑遗刻",
		},
	}

	resp, err := f.svc.TakeAction(context.Background(), 1, session.ID, "与老者攀谈")
	require.NoError(t, err)
	assert.Equal(t, "一位老者托付了差事。", resp.Description)

	// Session state was written through, cache refreshed.
	assert.GreaterOrEqual(t, f.cache.sets, 1)
	stored := f.sessions.sessions[session.ID]
	require.Len(t, stored.CurrentState.RecentHistory, 2)

	// The narrator's new quest changed the world's setting pack.
	assert.Equal(t, 1, f.worlds.updates)
	world := f.worlds.worlds[session.WorldID]
	assert.Equal(t, "寻找遗刻", world.SettingPack.Tasks[len(world.SettingPack.Tasks)-1].Name)
}

func TestTakeActionWithUnmodifiedWorldSkipsWorldWrite(t *testing.T) {
	f := newSessionFixture()
	session := f.seed(t, 1)

	_, err := f.svc.TakeAction(context.Background(), 1, session.ID, "你好")
	require.NoError(t, err)
	assert.Zero(t, f.worlds.updates)
}

func TestSetAIConfigValidatesOwnership(t *testing.T) {
	f := newSessionFixture()
	session := f.seed(t, 1)

	cfgID, err := f.settings.Create(context.Background(), &model.AIConfig{UserID: 2, ConfigName: "别人的配置"})
	require.NoError(t, err)

	err = f.svc.SetAIConfig(context.Background(), 1, session.ID, &cfgID)
	assert.ErrorIs(t, err, ErrConfigNotFound)

	ownID, err := f.settings.Create(context.Background(), &model.AIConfig{UserID: 1, ConfigName: "我的配置"})
	require.NoError(t, err)

	require.NoError(t, f.svc.SetAIConfig(context.Background(), 1, session.ID, &ownID))
	require.NotNil(t, f.sessions.sessions[session.ID].ActiveAIConfigID)
	assert.Equal(t, ownID, *f.sessions.sessions[session.ID].ActiveAIConfigID)

	// Reverting to the global default clears the binding.
	require.NoError(t, f.svc.SetAIConfig(context.Background(), 1, session.ID, nil))
	assert.Nil(t, f.sessions.sessions[session.ID].ActiveAIConfigID)
}

func TestUpdateNarrativeRewritesNewestEntryAndLastResponse(t *testing.T) {
	f := newSessionFixture()
	session := f.seed(t, 1)
	session.CurrentState.RecentHistory = []model.HistoryEntry{
		{Role: model.RoleAssistant, Content: "原本的叙事。"},
		{Role: model.RolePlayer, Content: "环顾四周"},
	}
	session.CurrentState.LastAIResponse = &model.AIResponse{Description: "原本的叙事。"}

	updated, err := f.svc.UpdateNarrative(context.Background(), 1, session.ID, &model.UpdateNarrativeRequest{
		Narrative:    "改写后的<叙事>。",
		HistoryIndex: 0,
	})
	require.NoError(t, err)

	assert.Equal(t, "改写后的&lt;叙事&gt;。", updated.CurrentState.RecentHistory[0].Content)
	assert.Equal(t, "改写后的&lt;叙事&gt;。", updated.CurrentState.LastAIResponse.Description)
}

func TestUpdateNarrativeRejectsBadTargets(t *testing.T) {
	f := newSessionFixture()
	session := f.seed(t, 1)
	session.CurrentState.RecentHistory = []model.HistoryEntry{
		{Role: model.RoleAssistant, Content: "叙事。"},
		{Role: model.RolePlayer, Content: "行动"},
	}

	_, err := f.svc.UpdateNarrative(context.Background(), 1, session.ID, &model.UpdateNarrativeRequest{
		Narrative:    "越界",
		HistoryIndex: 5,
	})
	assert.ErrorIs(t, err, ErrBadHistoryIndex)

	_, err = f.svc.UpdateNarrative(context.Background(), 1, session.ID, &model.UpdateNarrativeRequest{
		Narrative:    "改写玩家",
		HistoryIndex: 1,
	})
	assert.ErrorIs(t, err, ErrNotNarrative)
}
