package payment

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// State is the authoritative payment session state. Transitions only move
// forward along idle < armed < detected < confirmed; cancelled and expired are
// terminal exits reachable before any payment has been seen.
type State string

const (
	StateIdle      State = "idle"
	StateArmed     State = "armed"
	StateDetected  State = "detected"
	StateConfirmed State = "confirmed"
	StateCancelled State = "cancelled"
	StateExpired   State = "expired"
)

// rank orders the forward states so merges can refuse to move backward.
func (s State) rank() int {
	switch s {
	case StateIdle:
		return 0
	case StateArmed:
		return 1
	case StateDetected:
		return 2
	case StateConfirmed:
		return 3
	default:
		return -1
	}
}

func (s State) terminal() bool {
	return s == StateConfirmed || s == StateCancelled || s == StateExpired
}

// Channel identifies one of the two independent verification paths.
type Channel string

const (
	ChannelAddress     Channel = "address"
	ChannelTransaction Channel = "transaction"
)

// Completion is the in-memory settlement produced exactly once per session
// when it reaches the confirmed state. Immutable after creation.
type Completion struct {
	TransactionHash string
	SettledAmount   decimal.Decimal
	Currency        string
	Confirmations   int
	SettledAt       time.Time
}

// Session is one checkout attempt. All state mutation goes through the
// reconciler methods in reconciler.go; pollers only report, they never touch
// the session directly.
type Session struct {
	Token          string
	OrderID        uint
	ExpectedAmount decimal.Decimal
	Currency       string
	WalletAddress  string
	CreatedAt      time.Time

	mu                sync.Mutex
	state             State
	transactionID     string // first-writer-wins, immutable once set
	detectedAmount    decimal.Decimal
	hasDetectedAmount bool
	confirmations     int
	amountMismatch    bool
	matchedChannel    Channel
	maxProgress       int

	completeOnce sync.Once
	completion   *Completion

	sched       *Scheduler
	cancelPolls context.CancelFunc
	expireTimer *time.Timer
}

// Snapshot is the read-only view the checkout UI renders.
type Snapshot struct {
	Token          string          `json:"token"`
	OrderID        uint            `json:"order_id"`
	State          State           `json:"state"`
	Progress       int             `json:"progress"`
	ExpectedAmount decimal.Decimal `json:"expected_amount"`
	Currency       string          `json:"currency"`
	WalletAddress  string          `json:"wallet_address"`
	TransactionID  string          `json:"transaction_id,omitempty"`
	DetectedAmount string          `json:"detected_amount,omitempty"`
	Confirmations  int             `json:"confirmations"`
	AmountMismatch bool            `json:"amount_mismatch"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Token:          s.Token,
		OrderID:        s.OrderID,
		State:          s.state,
		Progress:       s.progressLocked(),
		ExpectedAmount: s.ExpectedAmount,
		Currency:       s.Currency,
		WalletAddress:  s.WalletAddress,
		TransactionID:  s.transactionID,
		Confirmations:  s.confirmations,
		AmountMismatch: s.amountMismatch,
		CreatedAt:      s.CreatedAt,
	}
	if s.hasDetectedAmount {
		snap.DetectedAmount = s.detectedAmount.String()
	}
	return snap
}

// State returns the current authoritative state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TransactionID returns the session transaction identifier, which is set at
// most once (at arm time or by the first detecting channel).
func (s *Session) TransactionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactionID
}

// Completion returns the settlement record, or nil before confirmation.
func (s *Session) Completion() *Completion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completion
}

// progressLocked derives the user-visible progress percentage. Purely
// presentational and monotonically non-decreasing; it never influences
// transitions. Caller holds s.mu.
func (s *Session) progressLocked() int {
	p := 0
	switch s.state {
	case StateIdle:
		p = 0
	case StateArmed:
		p = 25
		if s.WalletAddress != "" {
			p += 10
		}
		if s.transactionID != "" {
			p += 10
		}
	case StateDetected:
		p = 70
		if s.confirmations > 0 {
			p = 85
		}
	case StateConfirmed:
		p = 100
	}
	if p > s.maxProgress {
		s.maxProgress = p
	}
	return s.maxProgress
}
