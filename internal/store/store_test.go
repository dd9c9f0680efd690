package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", zerolog.New(nil).Level(zerolog.Disabled))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWatchlistCRUD(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	w, err := s.CreateWatchlist(ctx, "user-1", "Blue Chips", []string{"RELIANCE", "TCS", "INFY"})
	require.NoError(t, err)
	require.NotEmpty(t, w.ID)

	got, err := s.GetWatchlist(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "Blue Chips", got.Name)
	assert.Equal(t, []string{"RELIANCE", "TCS", "INFY"}, got.Symbols, "symbol order preserved")

	require.NoError(t, s.UpdateWatchlistSymbols(ctx, w.ID, []string{"SBIN", "ITC"}))
	got, err = s.GetWatchlist(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"SBIN", "ITC"}, got.Symbols)

	require.NoError(t, s.DeleteWatchlist(ctx, w.ID))
	_, err = s.GetWatchlist(ctx, w.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDeleteMissingWatchlist(t *testing.T) {
	s := setupStore(t)
	err := s.DeleteWatchlist(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestDuplicateWatchlistNameRejected(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.CreateWatchlist(ctx, "user-1", "Favorites", nil)
	require.NoError(t, err)
	_, err = s.CreateWatchlist(ctx, "user-1", "Favorites", nil)
	assert.Error(t, err, "same user cannot reuse a watchlist name")

	_, err = s.CreateWatchlist(ctx, "user-2", "Favorites", nil)
	assert.NoError(t, err, "different users can share names")
}

func TestListWatchlistsScopedToUser(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.CreateWatchlist(ctx, "user-1", "A", []string{"TCS"})
	require.NoError(t, err)
	_, err = s.CreateWatchlist(ctx, "user-1", "B", nil)
	require.NoError(t, err)
	_, err = s.CreateWatchlist(ctx, "user-2", "C", nil)
	require.NoError(t, err)

	lists, err := s.ListWatchlists(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, lists, 2)
}

func TestConversationMessages(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	c, err := s.CreateConversation(ctx, "user-1", "Price check")
	require.NoError(t, err)

	_, err = s.AppendMessage(ctx, c.ID, "user", "price of reliance", "PRICE_QUOTE")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, c.ID, "assistant", "RELIANCE is trading at 2850.50", "PRICE_QUOTE")
	require.NoError(t, err)

	msgs, err := s.Messages(ctx, c.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, "PRICE_QUOTE", msgs[1].Intent)
}
