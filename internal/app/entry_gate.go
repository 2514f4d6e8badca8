package app

import (
	"context"
	"errors"

	"techkwiz-quiz-service/internal/domain"
	"techkwiz-quiz-service/internal/reward"
)

// Decision is the outcome of an entry-fee check. A denial is an expected result, not an error.
// Charged is false when the fee had already been paid for this category session.
type Decision struct {
	Allowed          bool `json:"allowed"`
	Charged          bool `json:"charged"`
	EntryFee         int  `json:"entryFee"`
	Balance          int  `json:"balance"`
	Shortfall        int  `json:"shortfall,omitempty"`
	EarningPotential int  `json:"earningPotential,omitempty"`
}

var errDenied = errors.New("entry fee denied")

// EntryGate checks and deducts category entry fees.
type EntryGate struct {
	calc          *reward.Calculator
	homepageCount int
}

func NewEntryGate(calc *reward.Calculator, homepageCount int) *EntryGate {
	return &EntryGate{calc: calc, homepageCount: homepageCount}
}

// Authorize compares the balance to the fee without mutating anything.
func (g *EntryGate) Authorize(user domain.UserRecord, category domain.Category) Decision {
	d := Decision{
		Allowed:  user.Coins >= category.EntryFee,
		EntryFee: category.EntryFee,
		Balance:  user.Coins,
	}
	if !d.Allowed {
		d.Shortfall = category.EntryFee - user.Coins
		d.EarningPotential = g.calc.EarningPotential(g.homepageCount)
	}
	return d
}

// Charge deducts the fee for category once per category session. Re-entering the
// category already charged on session is a no-op. The returned error may wrap
// domain.ErrPersistence, in which case the charge still took effect in memory.
func (g *EntryGate) Charge(ctx context.Context, users *UserStore, session *Session, category domain.Category) (Decision, domain.UserRecord, error) {
	session.chargeMu.Lock()
	defer session.chargeMu.Unlock()

	if session.ChargedCategory() == category.ID {
		user, err := users.Load(ctx, session.UserID())
		if err != nil {
			return Decision{}, domain.UserRecord{}, err
		}
		if user == nil {
			return Decision{}, domain.UserRecord{}, domain.ErrUnknownUser
		}
		return Decision{Allowed: true, EntryFee: category.EntryFee, Balance: user.Coins}, *user, nil
	}

	var decision Decision
	user, err := users.Update(ctx, session.UserID(), func(u *domain.UserRecord) error {
		decision = g.Authorize(*u, category)
		if !decision.Allowed {
			return errDenied
		}
		u.Coins -= category.EntryFee
		decision.Charged = true
		decision.Balance = u.Coins
		return nil
	})
	if errors.Is(err, errDenied) {
		return decision, user, nil
	}
	if err != nil && !errors.Is(err, domain.ErrPersistence) {
		return Decision{}, domain.UserRecord{}, err
	}
	session.markCharged(category.ID)
	return decision, user, err
}
