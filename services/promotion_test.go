package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/inkblog/markdown"
)

func TestPromote_EmptyInput(t *testing.T) {
	store, _ := newFaultyStore(t)
	res, err := NewPromoter(store, 1).Promote(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Empty(t, res.Promotions())
}

func TestPromote_IgnoresNonTempPaths(t *testing.T) {
	store, _ := newFaultyStore(t)
	p := NewPromoter(store, 1)
	paths := []string{"permanent/image/a.png", "avatars/b.png"}

	for i := 0; i < 2; i++ {
		res, err := p.Promote(context.Background(), paths)
		require.NoError(t, err)
		assert.Empty(t, res.Succeeded())
		assert.Empty(t, res.Failed())
		assert.Equal(t, paths, res.Skipped())
	}
}

func TestPromote_MovesObjects(t *testing.T) {
	store, local := newFaultyStore(t)
	a, _ := putTemp(t, store, nil, "s1")
	b, _ := putTemp(t, store, nil, "")

	res, err := NewPromoter(store, 1).Promote(context.Background(), []string{a, b, a})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, res.Succeeded())
	assert.False(t, exists(t, local, a))
	assert.True(t, exists(t, local, permanentOf(t, a)))
	assert.True(t, exists(t, local, permanentOf(t, b)))
	assert.Equal(t, []markdown.Promotion{
		{From: a, To: permanentOf(t, a)},
		{From: b, To: permanentOf(t, b)},
	}, res.Promotions())
}

func TestPromote_CopyFailureIsRecorded(t *testing.T) {
	store, local := newFaultyStore(t)
	a, _ := putTemp(t, store, nil, "s1")
	b, _ := putTemp(t, store, nil, "s1")
	store.copyErr[a] = errors.New("copy refused")

	res, err := NewPromoter(store, 1).Promote(context.Background(), []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, []string{a}, res.Failed())
	assert.Equal(t, []string{b}, res.Succeeded())
	assert.Equal(t, OutcomeRecovered, res.Items[0].Outcome)
	assert.EqualError(t, res.Items[0].Err, "copy refused")
	assert.True(t, exists(t, local, a))
}

func TestPromote_MissingSourceIsRecovered(t *testing.T) {
	store, _ := newFaultyStore(t)
	res, err := NewPromoter(store, 1).Promote(context.Background(), []string{"temp/image/gone.png"})
	require.NoError(t, err)
	assert.Equal(t, []string{"temp/image/gone.png"}, res.Failed())
}

func TestPromote_DeleteFailureAbortsBatch(t *testing.T) {
	store, local := newFaultyStore(t)
	a, _ := putTemp(t, store, nil, "s1")
	b, _ := putTemp(t, store, nil, "s1")
	c, _ := putTemp(t, store, nil, "s1")
	cause := errors.New("delete refused")
	store.deleteErr[b] = cause

	res, err := NewPromoter(store, 1).Promote(context.Background(), []string{a, b, c})
	require.Error(t, err)

	var perr *PromotionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, b, perr.Path)
	assert.ErrorIs(t, err, cause)

	require.Len(t, res.Items, 2)
	fatal, ok := res.Fatal()
	require.True(t, ok)
	assert.Equal(t, b, fatal.Path)
	assert.True(t, exists(t, local, c), "paths after the fatal one are not touched")
}

func TestPromote_Parallel(t *testing.T) {
	store, local := newFaultyStore(t)
	var paths []string
	for i := 0; i < 12; i++ {
		p, _ := putTemp(t, store, nil, "s1")
		paths = append(paths, p)
	}
	paths = append(paths, "permanent/image/x.png")
	store.copyErr[paths[3]] = fmt.Errorf("boom")

	res, err := NewPromoter(store, 4).Promote(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, res.Items, len(paths))
	for i, it := range res.Items {
		assert.Equal(t, paths[i], it.Path)
	}
	assert.Equal(t, []string{paths[3]}, res.Failed())
	assert.Len(t, res.Succeeded(), 11)
	assert.Equal(t, []string{"permanent/image/x.png"}, res.Skipped())
	assert.True(t, exists(t, local, permanentOf(t, paths[0])))
}

func TestPromote_ParallelFatal(t *testing.T) {
	store, _ := newFaultyStore(t)
	var paths []string
	for i := 0; i < 6; i++ {
		p, _ := putTemp(t, store, nil, "")
		paths = append(paths, p)
	}
	store.deleteErr[paths[0]] = errors.New("delete refused")

	res, err := NewPromoter(store, 3).Promote(context.Background(), paths)
	var perr *PromotionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, paths[0], perr.Path)
	_, ok := res.Fatal()
	assert.True(t, ok)
}

func TestPromote_CanceledContext(t *testing.T) {
	store, _ := newFaultyStore(t)
	a, _ := putTemp(t, store, nil, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPromoter(store, 1).Promote(ctx, []string{a})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDemote(t *testing.T) {
	store, local := newFaultyStore(t)
	a, _ := putTemp(t, store, nil, "s1")
	p := NewPromoter(store, 1)
	res, err := p.Promote(context.Background(), []string{a})
	require.NoError(t, err)

	stuck := p.Demote(context.Background(), res.Promotions())
	assert.Empty(t, stuck)
	assert.True(t, exists(t, local, a))
	assert.False(t, exists(t, local, permanentOf(t, a)))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "recovered", OutcomeRecovered.String())
	assert.Equal(t, "fatal", OutcomeFatal.String())
}
