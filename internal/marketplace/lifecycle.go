package marketplace

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Engine enforces legal status transitions for matches, listings and
// transactions, and the side effects each transition produces. It mutates
// only the entities it is handed; callers own persistence and must serialize
// transitions for the same match.
type Engine struct{}

// NewEngine creates a lifecycle engine.
func NewEngine() *Engine {
	return &Engine{}
}

// matchForward is the single-step forward chain; skipping a step is illegal.
var matchForward = map[MatchStatus]MatchStatus{
	MatchStatusSuggested:      MatchStatusContacted,
	MatchStatusContacted:      MatchStatusNegotiating,
	MatchStatusNegotiating:    MatchStatusContractSigned,
	MatchStatusContractSigned: MatchStatusCompleted,
}

// matchCancellable lists the states a match can still be called off from.
// Signed and completed matches require a separate dispute flow.
var matchCancellable = map[MatchStatus]bool{
	MatchStatusSuggested:   true,
	MatchStatusContacted:   true,
	MatchStatusNegotiating: true,
}

var listingTransitions = map[ListingStatus][]ListingStatus{
	ListingStatusActive:  {ListingStatusPending, ListingStatusExpired},
	ListingStatusPending: {ListingStatusActive, ListingStatusSold},
	ListingStatusSold:    {},
	ListingStatusExpired: {},
}

var paymentForward = map[PaymentStatus]PaymentStatus{
	PaymentStatusPending: PaymentStatusPaid,
}

var shipmentForward = map[ShipmentStatus]ShipmentStatus{
	ShipmentStatusPending: ShipmentStatusShipped,
	ShipmentStatusShipped: ShipmentStatusDelivered,
}

// AdvanceMatch moves m to target, stamping the transition time and applying
// side effects: the associated listing is locked while negotiating, released
// on cancellation and sold on completion, and entering CONTRACT_SIGNED
// returns the single transaction spawned for the match. Re-applying the state
// the match is already in succeeds without side effects.
func (e *Engine) AdvanceMatch(m *Match, listing *Listing, target MatchStatus, actor uuid.UUID, now time.Time) (*Transaction, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown match status %q", ErrIllegalTransition, target)
	}
	if m.Status == target {
		return nil, nil
	}

	if target == MatchStatusCancelled {
		if !matchCancellable[m.Status] {
			return nil, fmt.Errorf("%w: match %s -> %s", ErrIllegalTransition, m.Status, target)
		}
		m.Status = MatchStatusCancelled
		m.CancelledAt = &now
		m.UpdatedAt = now
		if listing != nil && listing.Status == ListingStatusPending {
			if err := e.AdvanceListing(listing, ListingStatusActive, now); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	if matchForward[m.Status] != target {
		return nil, fmt.Errorf("%w: match %s -> %s", ErrIllegalTransition, m.Status, target)
	}

	var tx *Transaction
	switch target {
	case MatchStatusContacted:
		m.ContactedAt = &now
	case MatchStatusNegotiating:
		m.NegotiatingAt = &now
		if listing != nil && listing.Status == ListingStatusActive {
			if err := e.AdvanceListing(listing, ListingStatusPending, now); err != nil {
				return nil, err
			}
		}
	case MatchStatusContractSigned:
		if m.TransactionID != nil {
			return nil, fmt.Errorf("%w: match %s", ErrDuplicateTransaction, m.ID)
		}
		m.ContractSignedAt = &now
		tx = newTransactionForMatch(m, listing, now)
		m.TransactionID = &tx.ID
	case MatchStatusCompleted:
		m.CompletedAt = &now
		if listing != nil && listing.Status == ListingStatusPending {
			if err := e.AdvanceListing(listing, ListingStatusSold, now); err != nil {
				return nil, err
			}
		}
	}

	m.Status = target
	m.UpdatedAt = now
	return tx, nil
}

// newTransactionForMatch builds the transaction spawned when a match's
// contract is signed, priced at the listing's terms.
func newTransactionForMatch(m *Match, listing *Listing, now time.Time) *Transaction {
	tx := &Transaction{
		ID:             uuid.New(),
		MatchID:        m.ID,
		BuyerID:        m.BuyerID,
		PaymentStatus:  PaymentStatusPending,
		ShipmentStatus: ShipmentStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if listing != nil {
		tx.Quantity = listing.Quantity
		tx.Unit = listing.Unit
		tx.AgreedPrice = listing.PricePerUnit
		tx.TotalValue = listing.Quantity * listing.PricePerUnit
		tx.Currency = listing.Currency
	}
	return tx
}

// AdvanceListing moves l to target. SOLD and EXPIRED are terminal.
func (e *Engine) AdvanceListing(l *Listing, target ListingStatus, now time.Time) error {
	if !target.Valid() {
		return fmt.Errorf("%w: unknown listing status %q", ErrIllegalTransition, target)
	}
	for _, allowed := range listingTransitions[l.Status] {
		if allowed == target {
			l.Status = target
			l.UpdatedAt = now
			return nil
		}
	}
	return fmt.Errorf("%w: listing %s -> %s", ErrIllegalTransition, l.Status, target)
}

// RecordPayment advances a transaction's payment status. Payments only move
// forward.
func (e *Engine) RecordPayment(t *Transaction, target PaymentStatus, now time.Time) error {
	if paymentForward[t.PaymentStatus] != target {
		return fmt.Errorf("%w: payment %s -> %s", ErrIllegalTransition, t.PaymentStatus, target)
	}
	t.PaymentStatus = target
	t.UpdatedAt = now
	return nil
}

// RecordShipment advances a transaction's shipment status one stage at a
// time; skips and backward moves are illegal.
func (e *Engine) RecordShipment(t *Transaction, target ShipmentStatus, now time.Time) error {
	if shipmentForward[t.ShipmentStatus] != target {
		return fmt.Errorf("%w: shipment %s -> %s", ErrIllegalTransition, t.ShipmentStatus, target)
	}
	t.ShipmentStatus = target
	t.UpdatedAt = now
	return nil
}
