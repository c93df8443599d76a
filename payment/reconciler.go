package payment

import (
	"github.com/shopspring/decimal"

	"github.com/yourusername/peptide-shop/oracle"
)

// The reconciler owns every state mutation on a session. Channel results are
// applied in arrival order; a result can only move the state forward or attach
// the amount-mismatch annotation, never move it backward. Applying the same
// result twice, or the two channels' results in either order, converges to the
// same state.

// ApplyAddressResult merges an address-channel observation. The address
// channel tolerates overpayment: any payment at or above the expected amount
// is a match. A payment below the expected amount still counts as money seen
// (the session becomes detected with the mismatch annotation) but can never
// confirm.
func (s *Session) ApplyAddressResult(res oracle.AddressResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.terminal() || !res.Found {
		return false
	}

	s.setTransactionIDLocked(res.TransactionID)
	s.noteDetectionLocked(ChannelAddress, res.Amount, res.Confirmations)

	if res.Confirmations >= 1 && res.Amount.GreaterThanOrEqual(s.ExpectedAmount) {
		return s.advanceLocked(StateConfirmed)
	}
	return false
}

// ApplyTransactionResult merges a transaction-channel observation. This
// channel requires the amount to match exactly: a valid transaction for the
// wrong amount only sets the mismatch annotation and leaves the state where it
// was, so the address channel can still find the real payment.
func (s *Session) ApplyTransactionResult(res oracle.TransactionResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.terminal() || !res.Valid {
		return false
	}

	if !res.Amount.Equal(s.ExpectedAmount) {
		if !s.exactAmountRecordedLocked() {
			s.amountMismatch = true
		}
		return false
	}

	s.noteDetectionLocked(ChannelTransaction, res.Amount, res.Confirmations)

	if res.Confirmed && res.Confirmations >= 1 {
		return s.advanceLocked(StateConfirmed)
	}
	return false
}

// setTransactionIDLocked applies the first-writer-wins rule. Caller holds s.mu.
func (s *Session) setTransactionIDLocked(txID string) {
	if s.transactionID == "" && txID != "" {
		s.transactionID = txID
	}
}

// noteDetectionLocked records a seen payment: advances armed sessions to
// detected and keeps the highest confirmation count observed. An exactly
// matched amount is authoritative regardless of which channel reports it: it
// becomes the recorded amount and clears the mismatch annotation, and no
// later stray report outranks it. The first channel to detect wins the
// matched-channel slot; the other keeps polling. Caller holds s.mu.
func (s *Session) noteDetectionLocked(ch Channel, amount decimal.Decimal, confirmations int) {
	s.advanceLocked(StateDetected)

	if s.matchedChannel == "" {
		s.matchedChannel = ch
	}
	if confirmations > s.confirmations {
		s.confirmations = confirmations
	}

	if amount.Equal(s.ExpectedAmount) {
		s.detectedAmount = amount
		s.hasDetectedAmount = true
		s.amountMismatch = false
		return
	}
	if s.exactAmountRecordedLocked() {
		return
	}
	s.detectedAmount = amount
	s.hasDetectedAmount = true
	s.amountMismatch = true
}

// exactAmountRecordedLocked reports whether a payment for exactly the
// expected amount has already been recorded. Caller holds s.mu.
func (s *Session) exactAmountRecordedLocked() bool {
	return s.hasDetectedAmount && s.detectedAmount.Equal(s.ExpectedAmount)
}

// advanceLocked moves the state forward, refusing any backward move. Returns
// true only when the session enters confirmed by this call. Caller holds s.mu.
func (s *Session) advanceLocked(target State) bool {
	if s.state.terminal() || target.rank() <= s.state.rank() {
		return false
	}
	s.state = target
	s.progressLocked()
	return target == StateConfirmed
}
