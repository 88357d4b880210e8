package domain

import "fmt"

// Decide validates a command against the freshly replayed account state and
// returns the events it produces. It is pure: no side effects, no external
// calls, and the returned events are not yet durable.
//
// Validation order is uniform for every command: existence first, then amount
// validity, then the business rule.
func Decide(state Account, cmd Command) ([]Event, error) {
	switch c := cmd.(type) {
	case CreateAccount:
		return decideCreate(state, c)
	case CreditAccount:
		return decideCredit(state, c)
	case DebitAccount:
		return decideDebit(state, c)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}

// decideCreate returns both the creation and the activation event. Activation
// is intrinsic to creation, so the pair is emitted here instead of being
// cascaded from inside the replay fold.
func decideCreate(state Account, cmd CreateAccount) ([]Event, error) {
	if state.Status != StatusUninitialized {
		return nil, ErrAccountAlreadyExists
	}
	if cmd.InitialBalance.IsNegative() {
		return nil, ErrNegativeInitialBalance
	}
	return []Event{
		AccountCreated{ID: cmd.ID, Currency: cmd.Currency, InitialBalance: cmd.InitialBalance},
		AccountActivated{ID: cmd.ID},
	}, nil
}

func decideCredit(state Account, cmd CreditAccount) ([]Event, error) {
	if state.Status == StatusUninitialized {
		return nil, ErrAccountNotFound
	}
	if cmd.Amount.IsNegative() {
		return nil, ErrNegativeAmount
	}
	return []Event{
		AccountCredited{ID: cmd.ID, Currency: cmd.Currency, Amount: cmd.Amount},
	}, nil
}

func decideDebit(state Account, cmd DebitAccount) ([]Event, error) {
	if state.Status == StatusUninitialized {
		return nil, ErrAccountNotFound
	}
	if cmd.Amount.IsNegative() {
		return nil, ErrNegativeAmount
	}
	if state.Balance.Sub(cmd.Amount).IsNegative() {
		return nil, ErrInsufficientBalance
	}
	return []Event{
		AccountDebited{ID: cmd.ID, Currency: cmd.Currency, Amount: cmd.Amount},
	}, nil
}
