package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/notice-escalator/internal/domain"
)

func TestCaseService_Get(t *testing.T) {
	db := newSvcDB(t)
	clk := newClock(t0.Add(50 * time.Hour))
	s := &CaseService{DB: db, Windows: domain.DefaultWindows, Now: clk.Now}
	seed(t, db, "w", "w@example.com", domain.StateWarned, t0)

	v, err := s.Get(context.Background(), "w")
	require.NoError(t, err)
	require.NotNil(t, v.Next)
	assert.Equal(t, domain.KindFollowUp, v.Next.Kind)
	assert.Equal(t, domain.StateFollowedUp, v.Next.To)
	assert.True(t, v.Next.DueAt.Equal(t0.Add(48*time.Hour)))
	assert.True(t, v.Next.Due)

	_, err = s.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrCaseNotFound)
}

func TestCaseService_GetTerminalHasNoNext(t *testing.T) {
	db := newSvcDB(t)
	s := &CaseService{DB: db}
	seed(t, db, "e", "e@example.com", domain.StateEscalated, t0)
	v, err := s.Get(context.Background(), "e")
	require.NoError(t, err)
	assert.Nil(t, v.Next)
}

func TestCaseService_ListPageAndStats(t *testing.T) {
	db := newSvcDB(t)
	s := &CaseService{DB: db}
	ctx := context.Background()
	seed(t, db, "a", "a@example.com", domain.StatePending, t0)
	seed(t, db, "b", "b@example.com", domain.StatePending, t0.Add(time.Hour))
	seed(t, db, "c", "c@example.com", domain.StateWarned, t0)

	items, total, err := s.ListPage(ctx, CaseQuery{State: domain.StatePending}, 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].ID)

	items, total, err = s.ListPage(ctx, CaseQuery{State: domain.StateResponded}, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)

	n, ts, err := s.Stats(ctx, CaseQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NotNil(t, ts)

	counts, err := s.StateCounts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts[domain.StatePending])
}
