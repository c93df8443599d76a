package payment

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourusername/peptide-shop/oracle"
)

var (
	ErrNotAcknowledged = errors.New("expected-wait disclosure must be acknowledged before polling starts")
	ErrMissingInputs   = errors.New("wallet address and transaction id are both required to arm a session")
	ErrInvalidAmount   = errors.New("expected amount must be positive")
	ErrSessionNotFound = errors.New("payment session not found")
	ErrNotCancellable  = errors.New("session cannot be cancelled after a payment has been detected")
)

// Finalizer is the order-side collaborator invoked at most once per session,
// when the payment confirms. Implementations should be idempotent on their
// side as an additional safety net.
type Finalizer interface {
	CompleteOrder(ctx context.Context, orderID uint, c *Completion) error
}

// ArmRequest carries the explicit user action that authorizes polling.
type ArmRequest struct {
	OrderID        uint
	ExpectedAmount decimal.Decimal
	Currency       string
	WalletAddress  string
	TransactionID  string
	Acknowledged   bool
}

// Options tunes the confirmation engine. Zero values fall back to defaults.
type Options struct {
	AddressPollInterval time.Duration
	TxPollInterval      time.Duration
	Lookback            time.Duration
	MaxLifetime         time.Duration
}

func (o Options) withDefaults() Options {
	if o.AddressPollInterval <= 0 {
		o.AddressPollInterval = 8 * time.Second
	}
	if o.TxPollInterval <= 0 {
		o.TxPollInterval = 10 * time.Second
	}
	if o.Lookback <= 0 {
		o.Lookback = time.Hour
	}
	if o.MaxLifetime <= 0 {
		o.MaxLifetime = 24 * time.Hour
	}
	return o
}

// Manager owns the in-memory session registry and drives each session's two
// verification channels against the oracle.
type Manager struct {
	oracle    oracle.Client
	finalizer Finalizer
	opts      Options

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(oracleClient oracle.Client, finalizer Finalizer, opts Options) *Manager {
	return &Manager{
		oracle:    oracleClient,
		finalizer: finalizer,
		opts:      opts.withDefaults(),
		sessions:  make(map[string]*Session),
	}
}

// Arm creates a session in the armed state and starts both pollers. Arming is
// always an explicit user action; it never happens implicitly.
func (m *Manager) Arm(req ArmRequest) (*Session, error) {
	if !req.Acknowledged {
		return nil, ErrNotAcknowledged
	}
	if req.WalletAddress == "" || req.TransactionID == "" {
		return nil, ErrMissingInputs
	}
	if !req.ExpectedAmount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	s := &Session{
		Token:          uuid.NewString(),
		OrderID:        req.OrderID,
		ExpectedAmount: req.ExpectedAmount,
		Currency:       req.Currency,
		WalletAddress:  req.WalletAddress,
		CreatedAt:      time.Now(),
		state:          StateArmed,
		transactionID:  req.TransactionID,
		sched:          NewScheduler(),
	}
	s.mu.Lock()
	s.progressLocked()
	s.mu.Unlock()

	pollCtx, cancel := context.WithCancel(context.Background())
	s.cancelPolls = cancel

	m.mu.Lock()
	m.sessions[s.Token] = s
	m.mu.Unlock()

	s.sched.Start(pollCtx, ChannelAddress, m.opts.AddressPollInterval, func(ctx context.Context) {
		m.pollAddress(ctx, s)
	})
	s.sched.Start(pollCtx, ChannelTransaction, m.opts.TxPollInterval, func(ctx context.Context) {
		m.pollTransaction(ctx, s)
	})
	s.expireTimer = time.AfterFunc(m.opts.MaxLifetime, func() { m.expire(s) })

	log.Printf("payment session %s armed for order %d (%s %s)", s.Token, s.OrderID, req.ExpectedAmount, req.Currency)
	return s, nil
}

// Get returns the session for a token.
func (m *Manager) Get(token string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Cancel stops both pollers and discards the session. Only idle and armed
// sessions may be cancelled: once money has been seen the session can only be
// confirmed or left to poll.
func (m *Manager) Cancel(token string) error {
	s, err := m.Get(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.state != StateIdle && s.state != StateArmed {
		s.mu.Unlock()
		return ErrNotCancellable
	}
	s.state = StateCancelled
	s.mu.Unlock()

	m.teardown(s)
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()

	log.Printf("payment session %s cancelled", token)
	return nil
}

// pollAddress runs one address-channel tick. Oracle failures are logged and
// swallowed: the next tick proceeds normally.
func (m *Manager) pollAddress(ctx context.Context, s *Session) {
	res, err := m.oracle.QueryAddress(ctx, s.WalletAddress, s.Currency, s.ExpectedAmount, m.opts.Lookback)
	if err != nil {
		log.Printf("address poll failed for session %s: %v", s.Token, err)
		return
	}
	if s.ApplyAddressResult(res) {
		m.complete(s)
	}
}

// pollTransaction runs one transaction-channel tick.
func (m *Manager) pollTransaction(ctx context.Context, s *Session) {
	res, err := m.oracle.QueryTransaction(ctx, s.TransactionID(), s.Currency, s.ExpectedAmount)
	if err != nil {
		log.Printf("transaction poll failed for session %s: %v", s.Token, err)
		return
	}
	if s.ApplyTransactionResult(res) {
		m.complete(s)
	}
}

// complete is the one-shot completion trigger. Even if both channels resolve
// to confirmed on overlapping ticks, the latch ensures a single completion
// record and a single finalizer call.
func (m *Manager) complete(s *Session) {
	s.completeOnce.Do(func() {
		s.mu.Lock()
		c := &Completion{
			TransactionHash: s.transactionID,
			SettledAmount:   s.detectedAmount,
			Currency:        s.Currency,
			Confirmations:   s.confirmations,
			SettledAt:       time.Now(),
		}
		s.completion = c
		s.mu.Unlock()

		m.teardown(s)

		if err := m.finalizer.CompleteOrder(context.Background(), s.OrderID, c); err != nil {
			log.Printf("order finalization failed for session %s: %v", s.Token, err)
			return
		}
		log.Printf("payment session %s confirmed: tx %s settled %s %s", s.Token, c.TransactionHash, c.SettledAmount, c.Currency)
	})
}

// expire enforces the maximum session lifetime. Only armed sessions expire —
// a detected payment keeps polling for its confirmation.
func (m *Manager) expire(s *Session) {
	s.mu.Lock()
	if s.state != StateArmed {
		s.mu.Unlock()
		return
	}
	s.state = StateExpired
	s.mu.Unlock()

	m.teardown(s)
	log.Printf("payment session %s expired before a payment was seen", s.Token)
}

// teardown stops both pollers and the expiry timer.
func (m *Manager) teardown(s *Session) {
	s.sched.StopAll()
	if s.cancelPolls != nil {
		s.cancelPolls()
	}
	if s.expireTimer != nil {
		s.expireTimer.Stop()
	}
}
