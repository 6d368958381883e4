package player

import (
	"context"
	"fmt"
	"sort"
	"time"

	"casino_backoffice/internal/event"
	"casino_backoffice/internal/outbox"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	MaxRetries = 3
	RetryDelay = 10 * time.Millisecond
)

type Service struct {
	db         *gorm.DB
	repo       PlayerRepository
	outbox     outbox.Repository
	dispatcher event.Sink
}

func NewService(db *gorm.DB, repo PlayerRepository, ob outbox.Repository, dispatcher event.Sink) *Service {
	return &Service{db: db, repo: repo, outbox: ob, dispatcher: dispatcher}
}

func (s *Service) GetPlayer(ctx context.Context, playerID string) (*Player, error) {
	return s.repo.GetByID(ctx, playerID)
}

func (s *Service) ListPlayers(ctx context.Context) ([]Player, error) {
	return s.repo.List(ctx)
}

// Register creates the player and its registration event in one transaction,
// then dispatches the event post-commit.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Player, error) {
	segment := req.Segment
	if segment == "" {
		segment = SegmentStandard
	}
	if !ValidSegment(segment) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSegment, segment)
	}

	p := &Player{
		Username:         req.Username,
		Email:            req.Email,
		Segment:          segment,
		TotalDeposits:    decimal.Zero,
		TotalWithdrawals: decimal.Zero,
		RegistrationDate: time.Now(),
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	var registered event.PlayerRegistered
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, p); err != nil {
			return err
		}
		registered = event.PlayerRegistered{
			Meta:     event.NewMeta(),
			PlayerID: p.PlayerID,
			Segment:  p.Segment,
		}
		return s.outbox.Enqueue(ctx, tx, registered)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register player: %w", err)
	}

	s.dispatcher.Dispatch(ctx, registered)
	log.WithFields(log.Fields{"player_id": p.PlayerID, "segment": p.Segment}).Info("Player registered")
	return p, nil
}

// Deposit records a confirmed deposit against the player's lifetime totals,
// retrying briefly when a concurrent ledger update wins the version race.
func (s *Service) Deposit(ctx context.Context, req LedgerRequest) error {
	return s.applyLedger(ctx, req, s.repo.AddDeposit)
}

func (s *Service) Withdraw(ctx context.Context, req LedgerRequest) error {
	return s.applyLedger(ctx, req, s.repo.AddWithdrawal)
}

func (s *Service) applyLedger(ctx context.Context, req LedgerRequest, apply func(context.Context, string, decimal.Decimal) error) error {
	var err error
	for i := 0; i < MaxRetries; i++ {
		err = apply(ctx, req.PlayerID, req.Amount)
		if err == nil {
			return nil
		}
		if err == ErrOptimisticLock {
			time.Sleep(RetryDelay)
			continue
		}
		return err
	}
	return err
}

func (s *Service) RecordLogin(ctx context.Context, playerID string) error {
	return s.repo.RecordLogin(ctx, playerID, time.Now())
}

// TopPlayers returns the count players with the highest lifetime deposits at
// or above minimumDeposit, descending, ties kept in repository order.
func (s *Service) TopPlayers(ctx context.Context, count int, minimumDeposit decimal.Decimal) ([]Player, error) {
	players, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	eligible := make([]Player, 0, len(players))
	for _, p := range players {
		if p.TotalDeposits.GreaterThanOrEqual(minimumDeposit) {
			eligible = append(eligible, p)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].TotalDeposits.GreaterThan(eligible[j].TotalDeposits)
	})
	if count > 0 && len(eligible) > count {
		eligible = eligible[:count]
	}
	return eligible, nil
}
