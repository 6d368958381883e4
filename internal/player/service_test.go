package player

import (
	"context"
	"testing"
	"time"

	"casino_backoffice/internal/event"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakePlayerRepo struct {
	players  []Player
	failures int
	applied  int
}

func (f *fakePlayerRepo) GetByID(ctx context.Context, playerID string) (*Player, error) {
	for i := range f.players {
		if f.players[i].PlayerID == playerID {
			return &f.players[i], nil
		}
	}
	return nil, ErrPlayerNotFound
}

func (f *fakePlayerRepo) List(ctx context.Context) ([]Player, error) {
	return f.players, nil
}

func (f *fakePlayerRepo) ListBySegment(ctx context.Context, segment string) ([]Player, error) {
	var out []Player
	for _, p := range f.players {
		if p.Segment == segment {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePlayerRepo) Create(ctx context.Context, tx *gorm.DB, p *Player) error {
	f.players = append(f.players, *p)
	return nil
}

func (f *fakePlayerRepo) RecordLogin(ctx context.Context, playerID string, at time.Time) error {
	return nil
}

func (f *fakePlayerRepo) AddDeposit(ctx context.Context, playerID string, amount decimal.Decimal) error {
	if f.failures > 0 {
		f.failures--
		return ErrOptimisticLock
	}
	f.applied++
	return nil
}

func (f *fakePlayerRepo) AddWithdrawal(ctx context.Context, playerID string, amount decimal.Decimal) error {
	return f.AddDeposit(ctx, playerID, amount)
}

func depositsOf(players []Player) []int64 {
	out := make([]int64, len(players))
	for i, p := range players {
		out[i] = p.TotalDeposits.IntPart()
	}
	return out
}

func TestTopPlayersFiltersSortsAndTruncates(t *testing.T) {
	repo := &fakePlayerRepo{players: []Player{
		{PlayerID: "a", TotalDeposits: decimal.NewFromInt(50)},
		{PlayerID: "b", TotalDeposits: decimal.NewFromInt(150)},
		{PlayerID: "c", TotalDeposits: decimal.NewFromInt(300)},
		{PlayerID: "d", TotalDeposits: decimal.NewFromInt(200)},
	}}
	service := NewService(nil, repo, nil, event.NewDispatcher())

	top, err := service.TopPlayers(context.Background(), 2, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, []int64{300, 200}, depositsOf(top))
}

func TestTopPlayersTiesKeepRepositoryOrder(t *testing.T) {
	repo := &fakePlayerRepo{players: []Player{
		{PlayerID: "first", TotalDeposits: decimal.NewFromInt(100)},
		{PlayerID: "second", TotalDeposits: decimal.NewFromInt(100)},
	}}
	service := NewService(nil, repo, nil, event.NewDispatcher())

	top, err := service.TopPlayers(context.Background(), 2, decimal.NewFromInt(100))
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "first", top[0].PlayerID)
	assert.Equal(t, "second", top[1].PlayerID)
}

func TestTopPlayersEmptyWhenNoneEligible(t *testing.T) {
	repo := &fakePlayerRepo{players: []Player{
		{PlayerID: "a", TotalDeposits: decimal.NewFromInt(10)},
	}}
	service := NewService(nil, repo, nil, event.NewDispatcher())

	top, err := service.TopPlayers(context.Background(), 5, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestDepositRetriesOptimisticLock(t *testing.T) {
	repo := &fakePlayerRepo{failures: 2}
	service := NewService(nil, repo, nil, event.NewDispatcher())

	err := service.Deposit(context.Background(), LedgerRequest{
		PlayerID: "p1",
		Amount:   decimal.NewFromInt(25),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.applied)
}

func TestDepositGivesUpAfterMaxRetries(t *testing.T) {
	repo := &fakePlayerRepo{failures: MaxRetries + 1}
	service := NewService(nil, repo, nil, event.NewDispatcher())

	err := service.Deposit(context.Background(), LedgerRequest{
		PlayerID: "p1",
		Amount:   decimal.NewFromInt(25),
	})
	require.ErrorIs(t, err, ErrOptimisticLock)
	assert.Equal(t, 0, repo.applied)
}
