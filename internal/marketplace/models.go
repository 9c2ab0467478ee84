package marketplace

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// =====================================================
// Enums and Constants
// =====================================================

// ListingStatus represents the lifecycle state of a listing.
type ListingStatus string

const (
	ListingStatusActive  ListingStatus = "ACTIVE"
	ListingStatusPending ListingStatus = "PENDING"
	ListingStatusSold    ListingStatus = "SOLD"
	ListingStatusExpired ListingStatus = "EXPIRED"
)

// Valid reports whether s is a known listing status.
func (s ListingStatus) Valid() bool {
	switch s {
	case ListingStatusActive, ListingStatusPending, ListingStatusSold, ListingStatusExpired:
		return true
	}
	return false
}

// QualityGrade represents a crop quality grade. Grades are ordered for
// scoring: PREMIUM > GRADE_A > GRADE_B > STANDARD.
type QualityGrade string

const (
	GradeStandard QualityGrade = "STANDARD"
	GradeB        QualityGrade = "GRADE_B"
	GradeA        QualityGrade = "GRADE_A"
	GradePremium  QualityGrade = "PREMIUM"
)

var gradeOrdinal = map[QualityGrade]int{
	GradeStandard: 0,
	GradeB:        1,
	GradeA:        2,
	GradePremium:  3,
}

// Valid reports whether g is a known grade.
func (g QualityGrade) Valid() bool {
	_, ok := gradeOrdinal[g]
	return ok
}

// MatchStatus represents the lifecycle state of a match.
type MatchStatus string

const (
	MatchStatusSuggested      MatchStatus = "SUGGESTED"
	MatchStatusContacted      MatchStatus = "CONTACTED"
	MatchStatusNegotiating    MatchStatus = "NEGOTIATING"
	MatchStatusContractSigned MatchStatus = "CONTRACT_SIGNED"
	MatchStatusCompleted      MatchStatus = "COMPLETED"
	MatchStatusCancelled      MatchStatus = "CANCELLED"
)

// Valid reports whether s is a known match status.
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchStatusSuggested, MatchStatusContacted, MatchStatusNegotiating,
		MatchStatusContractSigned, MatchStatusCompleted, MatchStatusCancelled:
		return true
	}
	return false
}

// PaymentStatus represents the payment progress of a transaction.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// ShipmentStatus represents the shipment progress of a transaction.
type ShipmentStatus string

const (
	ShipmentStatusPending   ShipmentStatus = "PENDING"
	ShipmentStatusShipped   ShipmentStatus = "SHIPPED"
	ShipmentStatusDelivered ShipmentStatus = "DELIVERED"
)

// GradeList is a set of acceptable quality grades, stored as a text array.
type GradeList []QualityGrade

// Value implements driver.Valuer.
func (g GradeList) Value() (driver.Value, error) {
	strs := make(pq.StringArray, len(g))
	for i, grade := range g {
		strs[i] = string(grade)
	}
	return strs.Value()
}

// Scan implements sql.Scanner.
func (g *GradeList) Scan(value interface{}) error {
	var strs pq.StringArray
	if err := strs.Scan(value); err != nil {
		return err
	}
	out := make(GradeList, len(strs))
	for i, s := range strs {
		out[i] = QualityGrade(s)
	}
	*g = out
	return nil
}

// Money pairs an amount with the currency it is denominated in.
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// =====================================================
// Entities
// =====================================================

// Listing is a farmer's offer of a crop batch for sale.
type Listing struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	FarmerID       uuid.UUID     `json:"farmer_id" db:"farmer_id"`
	CropType       string        `json:"crop_type" db:"crop_type"`
	Variety        string        `json:"variety" db:"variety"`
	Quantity       float64       `json:"quantity" db:"quantity"`
	Unit           string        `json:"unit" db:"unit"`
	QualityGrade   QualityGrade  `json:"quality_grade" db:"quality_grade"`
	PricePerUnit   float64       `json:"price_per_unit" db:"price_per_unit"`
	Currency       string        `json:"currency" db:"currency"`
	AvailableFrom  time.Time     `json:"available_from" db:"available_from"`
	AvailableUntil *time.Time    `json:"available_until,omitempty" db:"available_until"`
	Status         ListingStatus `json:"status" db:"status"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// Validate checks construction-time invariants.
func (l *Listing) Validate() error {
	if l.FarmerID == uuid.Nil {
		return fmt.Errorf("%w: farmer_id is required", ErrInvalidEntity)
	}
	if l.CropType == "" {
		return fmt.Errorf("%w: crop_type is required", ErrInvalidEntity)
	}
	if l.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidEntity)
	}
	if l.PricePerUnit <= 0 {
		return fmt.Errorf("%w: price_per_unit must be positive", ErrInvalidEntity)
	}
	if !l.QualityGrade.Valid() {
		return fmt.Errorf("%w: unknown quality grade %q", ErrInvalidEntity, l.QualityGrade)
	}
	if l.Currency == "" {
		return fmt.Errorf("%w: currency is required", ErrInvalidEntity)
	}
	if l.AvailableUntil != nil && l.AvailableUntil.Before(l.AvailableFrom) {
		return fmt.Errorf("%w: available_until precedes available_from", ErrInvalidEntity)
	}
	return nil
}

// BuyerProfile captures what a buyer is in the market for. A zero volume
// requirement or an empty grade list means the buyer accepts anything on
// that axis.
type BuyerProfile struct {
	BuyerID           uuid.UUID      `json:"buyer_id" db:"buyer_id"`
	SeekingCrops      pq.StringArray `json:"seeking_crops" db:"seeking_crops"`
	VolumeRequired    float64        `json:"volume_required" db:"volume_required"`
	QualityStandards  GradeList      `json:"quality_standards" db:"quality_standards"`
	PreferredCurrency string         `json:"preferred_currency" db:"preferred_currency"`
	NeededFrom        *time.Time     `json:"needed_from,omitempty" db:"needed_from"`
	NeededUntil       *time.Time     `json:"needed_until,omitempty" db:"needed_until"`
}

// Seeking reports whether the buyer is in the market for the given crop.
func (b *BuyerProfile) Seeking(crop string) bool {
	for _, c := range b.SeekingCrops {
		if c == crop {
			return true
		}
	}
	return false
}

// Match is a proposed pairing of a listing with a buyer, scored for
// compatibility. Score and value are frozen once the match leaves SUGGESTED.
type Match struct {
	ID                 uuid.UUID   `json:"id" db:"id"`
	ListingID          uuid.UUID   `json:"listing_id" db:"listing_id"`
	FarmerID           uuid.UUID   `json:"farmer_id" db:"farmer_id"`
	BuyerID            uuid.UUID   `json:"buyer_id" db:"buyer_id"`
	CompatibilityScore float64     `json:"compatibility_score" db:"compatibility_score"`
	EstimatedValue     float64     `json:"estimated_value" db:"estimated_value"`
	ValueCurrency      string      `json:"value_currency" db:"value_currency"`
	Status             MatchStatus `json:"status" db:"status"`
	TransactionID      *uuid.UUID  `json:"transaction_id,omitempty" db:"transaction_id"`
	ContactedAt        *time.Time  `json:"contacted_at,omitempty" db:"contacted_at"`
	NegotiatingAt      *time.Time  `json:"negotiating_at,omitempty" db:"negotiating_at"`
	ContractSignedAt   *time.Time  `json:"contract_signed_at,omitempty" db:"contract_signed_at"`
	CompletedAt        *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
	CancelledAt        *time.Time  `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt          time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at" db:"updated_at"`
}

// Transaction records the financial and shipment progress of a signed match.
// Exactly one transaction exists per match, created when the contract is
// signed; payment and shipment advance independently.
type Transaction struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	MatchID         uuid.UUID      `json:"match_id" db:"match_id"`
	BuyerID         uuid.UUID      `json:"buyer_id" db:"buyer_id"`
	ExportCompanyID *uuid.UUID     `json:"export_company_id,omitempty" db:"export_company_id"`
	Quantity        float64        `json:"quantity" db:"quantity"`
	Unit            string         `json:"unit" db:"unit"`
	AgreedPrice     float64        `json:"agreed_price" db:"agreed_price"`
	TotalValue      float64        `json:"total_value" db:"total_value"`
	Currency        string         `json:"currency" db:"currency"`
	PaymentStatus   PaymentStatus  `json:"payment_status" db:"payment_status"`
	ShipmentStatus  ShipmentStatus `json:"shipment_status" db:"shipment_status"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// Validate checks construction-time invariants.
func (t *Transaction) Validate() error {
	if t.MatchID == uuid.Nil {
		return fmt.Errorf("%w: match_id is required", ErrInvalidEntity)
	}
	if t.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidEntity)
	}
	if t.AgreedPrice <= 0 {
		return fmt.Errorf("%w: agreed_price must be positive", ErrInvalidEntity)
	}
	if t.TotalValue != t.Quantity*t.AgreedPrice {
		return fmt.Errorf("%w: total_value must equal quantity * agreed_price", ErrInvalidEntity)
	}
	return nil
}
