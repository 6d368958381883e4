package bonus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"casino_backoffice/internal/event"
	"casino_backoffice/internal/game"
	"casino_backoffice/internal/outbox"
	"casino_backoffice/internal/player"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Service struct {
	db         *gorm.DB
	bonuses    BonusRepository
	claims     BonusClaimRepository
	players    player.PlayerRepository
	games      game.GameRepository
	outbox     outbox.Repository
	dispatcher event.Sink
	cache      *ActiveBonusCache
}

func NewService(db *gorm.DB, bonuses BonusRepository, claims BonusClaimRepository, players player.PlayerRepository, games game.GameRepository, ob outbox.Repository, dispatcher event.Sink) *Service {
	return &Service{
		db:         db,
		bonuses:    bonuses,
		claims:     claims,
		players:    players,
		games:      games,
		outbox:     ob,
		dispatcher: dispatcher,
		cache:      NewActiveBonusCache(),
	}
}

// ClaimBonus validates eligibility, persists the claim and its outbox row in
// one transaction, and dispatches the claimed event only after commit. Side
// effects run post-commit and may fail without affecting the caller.
func (s *Service) ClaimBonus(ctx context.Context, playerID string, bonusID string) (*BonusClaim, error) {
	p, err := s.players.GetByID(ctx, playerID)
	if err != nil {
		return nil, err
	}
	b, err := s.bonuses.GetByID(ctx, bonusID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !b.IsActive {
		return nil, ErrBonusNotActive
	}
	if now.Before(b.ValidFrom) {
		return nil, ErrBonusNotStarted
	}
	if now.After(b.ValidTo) {
		return nil, ErrBonusExpired
	}
	if !b.IsGlobal && b.TargetSegment != p.Segment {
		return nil, fmt.Errorf("%w: bonus targets %s, player is %s", ErrSegmentMismatch, b.TargetSegment, p.Segment)
	}

	claim := &BonusClaim{
		PlayerID:            playerID,
		BonusID:             bonusID,
		Status:              ClaimStatusClaimed,
		ClaimDate:           now,
		WageringRequirement: b.Value.Mul(b.WageringMultiplier),
		WageringProgress:    decimal.Zero,
		ExpiryDate:          now.AddDate(0, 0, b.ExpiryDays),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	var claimed event.BonusClaimed
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.claims.Create(ctx, tx, claim); err != nil {
			return err
		}
		claimed = event.BonusClaimed{
			Meta:      event.NewMeta(),
			PlayerID:  playerID,
			BonusID:   bonusID,
			ClaimID:   claim.ClaimID,
			ClaimedAt: claim.ClaimDate,
		}
		return s.outbox.Enqueue(ctx, tx, claimed)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim bonus: %w", err)
	}

	s.dispatcher.Dispatch(ctx, claimed)
	log.WithFields(log.Fields{
		"claim_id":  claim.ClaimID,
		"player_id": playerID,
		"bonus_id":  bonusID,
	}).Info("Bonus claimed")

	return claim, nil
}

// TransitionClaim moves a claim along its lifecycle under a row lock,
// rejecting anything the transition table does not allow.
func (s *Service) TransitionClaim(ctx context.Context, claimID string, toStatus string) error {
	var changed event.ClaimStatusChanged
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim, err := s.claims.GetForUpdate(ctx, tx, claimID)
		if err != nil {
			return err
		}
		if !CanTransition(claim.Status, toStatus) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, claim.Status, toStatus)
		}
		if err := s.claims.UpdateStatus(ctx, tx, claimID, toStatus); err != nil {
			return err
		}
		changed = event.ClaimStatusChanged{
			Meta:       event.NewMeta(),
			PlayerID:   claim.PlayerID,
			ClaimID:    claimID,
			FromStatus: claim.Status,
			ToStatus:   toStatus,
		}
		return s.outbox.Enqueue(ctx, tx, changed)
	})
	if err != nil {
		return err
	}

	s.dispatcher.Dispatch(ctx, changed)
	return nil
}

func (s *Service) ActivateClaim(ctx context.Context, claimID string) error {
	return s.TransitionClaim(ctx, claimID, ClaimStatusActive)
}

func (s *Service) CancelClaim(ctx context.Context, claimID string) error {
	return s.TransitionClaim(ctx, claimID, ClaimStatusCancelled)
}

func (s *Service) ForfeitClaim(ctx context.Context, claimID string) error {
	return s.TransitionClaim(ctx, claimID, ClaimStatusForfeited)
}

// ExpireOverdueClaims closes claims whose expiry date has passed. Claims
// still in the claimed state cannot jump to expired, so those are cancelled.
func (s *Service) ExpireOverdueClaims(ctx context.Context) (int, error) {
	overdue, err := s.claims.ListOverdue(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, claim := range overdue {
		target := ClaimStatusExpired
		if claim.Status == ClaimStatusClaimed {
			target = ClaimStatusCancelled
		}
		if err := s.TransitionClaim(ctx, claim.ClaimID, target); err != nil {
			log.WithError(err).WithField("claim_id", claim.ClaimID).Error("Failed to expire claim")
			continue
		}
		expired++
	}
	return expired, nil
}

// ProcessBetWagering counts a bet toward the player's active claim. The bet
// id is the idempotency key; replaying a bet never counts twice.
func (s *Service) ProcessBetWagering(ctx context.Context, bet BetEvent) error {
	_, err := s.claims.GetEventByBetID(ctx, bet.BetID)
	if err == nil {
		log.WithField("bet_id", bet.BetID).Debug("Bet already counted, skipping")
		return nil
	}
	if !errors.Is(err, ErrWageringEventNotFound) {
		return fmt.Errorf("idempotency check failed: %w", err)
	}

	activeClaim, err := s.claims.GetActiveByPlayer(ctx, bet.PlayerID)
	if err != nil {
		if errors.Is(err, ErrClaimNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get active claim for player %s: %w", bet.PlayerID, err)
	}
	if time.Now().After(activeClaim.ExpiryDate) {
		return ErrClaimNotActive
	}

	g, err := s.games.GetByID(ctx, bet.GameID)
	if err != nil {
		return fmt.Errorf("failed to get game contribution: %w", err)
	}
	contribution := bet.BetAmount.Mul(g.Contribution)

	var completed *event.WageringCompleted
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim, lockErr := s.claims.GetForUpdate(ctx, tx, activeClaim.ClaimID)
		if lockErr != nil {
			return lockErr
		}
		if claim.Status != ClaimStatusActive {
			return ErrClaimNotActive
		}

		newProgress := claim.WageringProgress.Add(contribution)
		if newProgress.GreaterThan(claim.WageringRequirement) {
			newProgress = claim.WageringRequirement
		}
		if updateErr := s.claims.UpdateWageringProgress(ctx, tx, claim.ClaimID, newProgress); updateErr != nil {
			return updateErr
		}

		wageringEvent := &WageringEvent{
			EventID:                uuid.New().String(),
			ClaimID:                claim.ClaimID,
			BetID:                  bet.BetID,
			GameID:                 bet.GameID,
			BetAmount:              bet.BetAmount,
			ContributionPercentage: g.Contribution,
			WageringContribution:   contribution,
			CreatedAt:              time.Now(),
		}
		if createErr := s.claims.CreateWageringEvent(ctx, tx, wageringEvent); createErr != nil {
			return createErr
		}

		if newProgress.GreaterThanOrEqual(claim.WageringRequirement) {
			if statusErr := s.claims.UpdateStatus(ctx, tx, claim.ClaimID, ClaimStatusCompleted); statusErr != nil {
				return statusErr
			}
			done := event.WageringCompleted{
				Meta:     event.NewMeta(),
				PlayerID: bet.PlayerID,
				ClaimID:  claim.ClaimID,
				Wagered:  newProgress,
			}
			if enqErr := s.outbox.Enqueue(ctx, tx, done); enqErr != nil {
				return enqErr
			}
			completed = &done
		}
		return nil
	})
	if err != nil {
		// A concurrent replay of the same bet can slip past the pre-check
		// and lose the unique bet_id insert; treat that as already counted.
		if errors.Is(err, ErrDuplicateBet) {
			log.WithField("bet_id", bet.BetID).Debug("Bet already counted, skipping")
			return nil
		}
		return fmt.Errorf("failed to process wagering: %w", err)
	}

	if completed != nil {
		s.dispatcher.Dispatch(ctx, *completed)
		log.WithFields(log.Fields{
			"claim_id":  completed.ClaimID,
			"player_id": bet.PlayerID,
		}).Info("Bonus wagering completed")
	}
	return nil
}

func (s *Service) GetWageringProgress(ctx context.Context, playerID string, claimID string) (*WageringProgress, error) {
	var claim *BonusClaim
	var err error
	if claimID != "" {
		claim, err = s.claims.GetByID(ctx, claimID)
	} else {
		claim, err = s.claims.GetActiveByPlayer(ctx, playerID)
	}
	if err != nil {
		return nil, err
	}

	percentComplete := float64(0)
	if !claim.WageringRequirement.IsZero() {
		percentComplete = claim.WageringProgress.Div(claim.WageringRequirement).
			Mul(decimal.NewFromInt(100)).
			InexactFloat64()
	}
	return &WageringProgress{
		ClaimID:             claim.ClaimID,
		WageringRequirement: claim.WageringRequirement,
		WageringProgress:    claim.WageringProgress,
		PercentageComplete:  percentComplete,
		Completed:           claim.Status == ClaimStatusCompleted,
	}, nil
}

func (s *Service) GetBonus(ctx context.Context, bonusID string) (*Bonus, error) {
	return s.bonuses.GetByID(ctx, bonusID)
}

func (s *Service) CreateBonus(ctx context.Context, b *Bonus) error {
	if err := s.bonuses.Create(ctx, b); err != nil {
		return err
	}
	s.cache.Invalidate()
	return nil
}

func (s *Service) SetBonusActive(ctx context.Context, bonusID string, active bool) error {
	if err := s.bonuses.SetActive(ctx, bonusID, active); err != nil {
		return err
	}
	s.cache.Invalidate()
	return nil
}

func (s *Service) ListBonuses(ctx context.Context) ([]Bonus, error) {
	return s.bonuses.List(ctx)
}

// ListActiveBonuses serves reads from the feature cache; claim and bonus
// mutations invalidate it through the event pipeline.
func (s *Service) ListActiveBonuses(ctx context.Context) ([]Bonus, error) {
	return s.cache.Get(ctx, func(ctx context.Context) ([]Bonus, error) {
		return s.bonuses.ListActive(ctx, time.Now())
	})
}

// InvalidateFeatureCache is registered as an event handler at startup.
func (s *Service) InvalidateFeatureCache(ctx context.Context, _ event.Event) error {
	s.cache.Invalidate()
	return nil
}

func (s *Service) GetClaim(ctx context.Context, claimID string) (*BonusClaim, error) {
	return s.claims.GetByID(ctx, claimID)
}

func (s *Service) ListClaimsByPlayer(ctx context.Context, playerID string) ([]BonusClaim, error) {
	return s.claims.ListByPlayer(ctx, playerID)
}
