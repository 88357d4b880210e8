package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func activatedAccount(balance int64) Account {
	return Account{
		ID:       "acc-1",
		Currency: "USD",
		Balance:  decimal.NewFromInt(balance),
		Status:   StatusActivated,
		Sequence: 2,
	}
}

func TestDecide_CreateAccount(t *testing.T) {
	tests := []struct {
		name           string
		state          Account
		initialBalance decimal.Decimal
		wantErr        error
	}{
		{
			name:           "create on uninitialized state",
			state:          NewAccount(),
			initialBalance: decimal.NewFromInt(100),
		},
		{
			name:           "zero initial balance is valid",
			state:          NewAccount(),
			initialBalance: decimal.Zero,
		},
		{
			name:           "negative initial balance",
			state:          NewAccount(),
			initialBalance: decimal.NewFromInt(-1),
			wantErr:        ErrNegativeInitialBalance,
		},
		{
			name:           "already exists",
			state:          activatedAccount(100),
			initialBalance: decimal.NewFromInt(100),
			wantErr:        ErrAccountAlreadyExists,
		},
		{
			name: "already exists beats invalid balance",
			state: Account{
				ID:     "acc-1",
				Status: StatusCreated,
			},
			initialBalance: decimal.NewFromInt(-1),
			wantErr:        ErrAccountAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := Decide(tt.state, CreateAccount{
				ID:             "acc-1",
				Currency:       "USD",
				InitialBalance: tt.initialBalance,
			})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if events != nil {
					t.Fatalf("expected no events on failure, got %d", len(events))
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(events) != 2 {
				t.Fatalf("expected [created, activated], got %d events", len(events))
			}
			created, ok := events[0].(AccountCreated)
			if !ok {
				t.Fatalf("expected AccountCreated first, got %T", events[0])
			}
			if !created.InitialBalance.Equal(tt.initialBalance) {
				t.Errorf("expected initial balance %s, got %s", tt.initialBalance, created.InitialBalance)
			}
			if _, ok := events[1].(AccountActivated); !ok {
				t.Fatalf("expected AccountActivated second, got %T", events[1])
			}
		})
	}
}

func TestDecide_CreditAccount(t *testing.T) {
	tests := []struct {
		name    string
		state   Account
		amount  decimal.Decimal
		wantErr error
	}{
		{
			name:   "credit activated account",
			state:  activatedAccount(100),
			amount: decimal.NewFromInt(50),
		},
		{
			name:    "credit uninitialized account",
			state:   NewAccount(),
			amount:  decimal.NewFromInt(50),
			wantErr: ErrAccountNotFound,
		},
		{
			name:    "negative amount",
			state:   activatedAccount(100),
			amount:  decimal.NewFromInt(-50),
			wantErr: ErrNegativeAmount,
		},
		{
			name:    "existence check precedes amount check",
			state:   NewAccount(),
			amount:  decimal.NewFromInt(-50),
			wantErr: ErrAccountNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := Decide(tt.state, CreditAccount{ID: "acc-1", Currency: "USD", Amount: tt.amount})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(events) != 1 {
				t.Fatalf("expected one event, got %d", len(events))
			}
			credited, ok := events[0].(AccountCredited)
			if !ok {
				t.Fatalf("expected AccountCredited, got %T", events[0])
			}
			if !credited.Amount.Equal(tt.amount) {
				t.Errorf("expected amount %s, got %s", tt.amount, credited.Amount)
			}
		})
	}
}

func TestDecide_DebitAccount(t *testing.T) {
	tests := []struct {
		name    string
		state   Account
		amount  decimal.Decimal
		wantErr error
	}{
		{
			name:   "debit within balance",
			state:  activatedAccount(100),
			amount: decimal.NewFromInt(50),
		},
		{
			name:   "debit exact balance",
			state:  activatedAccount(100),
			amount: decimal.NewFromInt(100),
		},
		{
			name:    "debit exceeding balance",
			state:   activatedAccount(150),
			amount:  decimal.NewFromInt(200),
			wantErr: ErrInsufficientBalance,
		},
		{
			name:    "debit uninitialized account",
			state:   NewAccount(),
			amount:  decimal.NewFromInt(10),
			wantErr: ErrAccountNotFound,
		},
		{
			name:    "negative amount",
			state:   activatedAccount(100),
			amount:  decimal.NewFromInt(-10),
			wantErr: ErrNegativeAmount,
		},
		{
			name:    "amount check precedes balance check",
			state:   activatedAccount(0),
			amount:  decimal.NewFromInt(-10),
			wantErr: ErrNegativeAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := Decide(tt.state, DebitAccount{ID: "acc-1", Currency: "USD", Amount: tt.amount})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if events != nil {
					t.Fatalf("expected no events on failure, got %d", len(events))
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(events) != 1 {
				t.Fatalf("expected one event, got %d", len(events))
			}
			if _, ok := events[0].(AccountDebited); !ok {
				t.Fatalf("expected AccountDebited, got %T", events[0])
			}
		})
	}
}

type bogusCommand struct{}

func (bogusCommand) AccountID() string   { return "a" }
func (bogusCommand) CommandType() string { return "account.bogus" }

func TestDecide_UnknownCommand(t *testing.T) {
	_, err := Decide(NewAccount(), bogusCommand{})
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
}
