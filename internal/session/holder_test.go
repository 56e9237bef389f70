package session

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sinedi/internal/models"
	"sinedi/internal/repository"
	"sinedi/internal/store"
)

func setup(t *testing.T) (*Holder, *repository.UserRepository, *MemoryKV) {
	t.Helper()
	st := store.NewMemoryStore()
	users := repository.NewUserRepository(st)
	kv := NewMemoryKV()
	h := NewHolder(st, users, kv, time.Hour)
	t.Cleanup(h.Close)
	return h, users, kv
}

func TestHolder_LoadsAndPersists(t *testing.T) {
	ctx := context.Background()
	h, users, kv := setup(t)
	u := &models.User{Name: "Budi", Role: "tutor", Wallet: 1000, PasswordHash: "hash"}
	require.NoError(t, users.Create(ctx, u))

	got, err := h.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.Wallet)

	b, err := kv.Get(ctx, Key(u.ID))
	require.NoError(t, err)
	var cached models.User
	require.NoError(t, json.Unmarshal(b, &cached))
	assert.Equal(t, u.ID, cached.ID)
	assert.Empty(t, cached.PasswordHash)

	_, err = h.Get(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestHolder_RefreshesOnChange(t *testing.T) {
	ctx := context.Background()
	h, users, kv := setup(t)
	u := &models.User{Name: "Budi", Role: "tutor", Wallet: 1000}
	require.NoError(t, users.Create(ctx, u))
	_, err := h.Get(ctx, u.ID)
	require.NoError(t, err)

	require.NoError(t, users.Update(ctx, u.ID, map[string]interface{}{"wallet": 5000}))

	assert.Eventually(t, func() bool {
		got, err := h.Get(ctx, u.ID)
		return err == nil && got.Wallet == 5000
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		b, err := kv.Get(ctx, Key(u.ID))
		if err != nil {
			return false
		}
		var cached models.User
		return json.Unmarshal(b, &cached) == nil && cached.Wallet == 5000
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHolder_RehydratesFromKV(t *testing.T) {
	ctx := context.Background()
	h, _, kv := setup(t)
	b, _ := json.Marshal(models.User{ID: "u9", Name: "Cached", Role: "student"})
	require.NoError(t, kv.Set(ctx, Key("u9"), b, time.Hour))

	got, err := h.Get(ctx, "u9")
	require.NoError(t, err)
	assert.Equal(t, "Cached", got.Name)
}

func TestHolder_EvictsIdleUsers(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	users := repository.NewUserRepository(st)
	kv := NewMemoryKV()
	h := NewHolder(st, users, kv, 0)
	t.Cleanup(h.Close)
	h.ttl = time.Minute
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	idle := &models.User{Name: "Budi", Role: "tutor"}
	active := &models.User{Name: "Siti", Role: "student"}
	require.NoError(t, users.Create(ctx, idle))
	require.NoError(t, users.Create(ctx, active))
	for _, u := range []*models.User{idle, active} {
		_, err := h.Get(ctx, u.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, h.held())

	now = now.Add(45 * time.Second)
	_, err := h.Get(ctx, active.ID)
	require.NoError(t, err)
	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, h.evictIdle())
	assert.Equal(t, 1, h.held())

	// Released users are read again on their next request.
	require.NoError(t, users.Update(ctx, idle.ID, map[string]interface{}{"wallet": 7000}))
	require.NoError(t, kv.Del(ctx, Key(idle.ID)))
	got, err := h.Get(ctx, idle.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), got.Wallet)
	assert.Equal(t, 2, h.held())
}

func TestHolder_ReleasesSubscriptionsAfterTTL(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	users := repository.NewUserRepository(st)
	h := NewHolder(st, users, NewMemoryKV(), 20*time.Millisecond)
	t.Cleanup(h.Close)

	before := runtime.NumGoroutine()
	for i := 0; i < 50; i++ {
		u := &models.User{Name: fmt.Sprintf("user%d", i), Role: "student"}
		require.NoError(t, users.Create(ctx, u))
		_, err := h.Get(ctx, u.ID)
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		return h.held() == 0 && runtime.NumGoroutine() <= before+5
	}, 2*time.Second, 20*time.Millisecond)
}

func TestMemoryKV_Expiry(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }

	require.NoError(t, kv.Set(ctx, "k", []byte("v"), time.Minute))
	b, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), b)

	now = now.Add(2 * time.Minute)
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "sinedi:session:abc", Key("abc"))
}
