package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/BetterCallFirewall/ssti-master/internal/limits"
	"github.com/BetterCallFirewall/ssti-master/internal/logger"
	"github.com/BetterCallFirewall/ssti-master/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generatorItem(goal string) models.HistoryItem {
	return models.NewGeneratorItem(
		models.PayloadRequest{Engine: models.EngineJinja2, Goal: goal, Restrictions: []string{}},
		models.GeneratedPayload{Engine: models.EngineJinja2, Payload: "{{7*7}}", PollutionChain: []string{}},
	)
}

func auditorItem() models.HistoryItem {
	return models.NewAuditorItem(
		models.CodeAnalysisRequest{SourceCode: "render_template_string(x)"},
		models.CodeAnalysisResponse{VulnerabilityFound: true, EngineDetected: "Jinja2"},
	)
}

func newStore(t *testing.T) (*HistoryStore, *MemoryBackend) {
	t.Helper()
	backend := NewMemoryBackend()
	store := NewHistoryStore(backend, limits.NewHistoryLimiter(nil), logger.Nop())
	require.NoError(t, store.Load(context.Background()))
	return store, backend
}

func ids(items []models.HistoryItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func TestHistoryStore_NewestFirst(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	a, b := generatorItem("a"), auditorItem()
	require.NoError(t, store.Append(ctx, a))
	require.NoError(t, store.Append(ctx, b))

	assert.Equal(t, []string{b.ID, a.ID}, ids(store.All()))
}

func TestHistoryStore_CapEvictsOldest(t *testing.T) {
	ctx := context.Background()
	store, _ := newStore(t)

	var appended []models.HistoryItem
	for i := 0; i < limits.MaxHistoryItems+1; i++ {
		item := generatorItem(fmt.Sprintf("goal-%d", i))
		appended = append(appended, item)
		require.NoError(t, store.Append(ctx, item))
	}

	all := store.All()
	require.Len(t, all, limits.MaxHistoryItems)
	assert.Equal(t, appended[len(appended)-1].ID, all[0].ID)
	_, found := store.Get(appended[0].ID)
	assert.False(t, found, "first item is evicted by the 21st")
	assert.Equal(t, appended[1].ID, all[len(all)-1].ID)
}

func TestHistoryStore_Remove(t *testing.T) {
	ctx := context.Background()
	store, backend := newStore(t)

	a, b, c := generatorItem("a"), generatorItem("b"), auditorItem()
	for _, item := range []models.HistoryItem{a, b, c} {
		require.NoError(t, store.Append(ctx, item))
	}

	require.NoError(t, store.Remove(ctx, b.ID))
	assert.Equal(t, []string{c.ID, a.ID}, ids(store.All()))

	persisted, err := backend.Get(ctx, HistoryKey)
	require.NoError(t, err)
	assert.NotContains(t, persisted, b.ID)

	require.NoError(t, store.Remove(ctx, "missing"))
	assert.Equal(t, 2, store.Len())
}

func TestHistoryStore_PersistsAcrossLoads(t *testing.T) {
	ctx := context.Background()
	store, backend := newStore(t)

	a, b := generatorItem("a"), auditorItem()
	require.NoError(t, store.Append(ctx, a))
	require.NoError(t, store.Append(ctx, b))

	reloaded := NewHistoryStore(backend, nil, logger.Nop())
	require.NoError(t, reloaded.Load(ctx))

	all := reloaded.All()
	require.Len(t, all, 2)
	assert.Equal(t, []string{b.ID, a.ID}, ids(all))
	assert.Equal(t, models.ModeAuditor, all[0].Type)
	require.NotNil(t, all[0].Auditor)
	assert.True(t, all[0].Auditor.Response.VulnerabilityFound)
	assert.Equal(t, a.Timestamp.UnixMilli(), all[1].Timestamp.UnixMilli())
}

func TestHistoryStore_CorruptDataLoadsEmpty(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "{{{ definitely not json"},
		{name: "object instead of array", raw: `{"id":"x"}`},
		{name: "unknown type tag", raw: `[{"id":"x","timestamp":1,"type":"fuzzer","request":{},"response":{}}]`},
		{name: "null element", raw: `[null]`},
		{name: "null", raw: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			backend := NewMemoryBackend()
			require.NoError(t, backend.Set(ctx, HistoryKey, tt.raw))

			store := NewHistoryStore(backend, nil, logger.Nop())
			require.NoError(t, store.Load(ctx))
			assert.Empty(t, store.All())

			require.NoError(t, store.Append(ctx, generatorItem("after")))
			assert.Equal(t, 1, store.Len())
		})
	}
}

func TestHistoryStore_LoadTruncatesOversizedData(t *testing.T) {
	ctx := context.Background()
	store, backend := newStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(ctx, generatorItem(fmt.Sprint(i))))
	}

	small := NewHistoryStore(backend, limits.NewHistoryLimiter(&limits.HistoryLimits{MaxItems: 3}), logger.Nop())
	require.NoError(t, small.Load(ctx))
	assert.Equal(t, ids(store.All())[:3], ids(small.All()))
}

func TestHistoryStore_RejectsInvalidItem(t *testing.T) {
	store, backend := newStore(t)

	err := store.Append(context.Background(), models.HistoryItem{ID: "x", Type: models.ModeGenerator})
	assert.Error(t, err)
	assert.Equal(t, 0, store.Len())

	_, err = backend.Get(context.Background(), HistoryKey)
	assert.ErrorIs(t, err, ErrNotFound, "nothing persisted")
}

type failingBackend struct {
	*MemoryBackend
	err error
}

func (f *failingBackend) Set(context.Context, string, string) error { return f.err }

func TestHistoryStore_BackendFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	store := NewHistoryStore(&failingBackend{MemoryBackend: NewMemoryBackend(), err: boom}, nil, logger.Nop())
	require.NoError(t, store.Load(ctx))

	err := store.Append(ctx, generatorItem("a"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryBackend(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()

	_, err := b.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Set(ctx, "k", "v1"))
	require.NoError(t, b.Set(ctx, "k", "v2"))
	v, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
}
