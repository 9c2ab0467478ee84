package marketplace

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"agrilink/marketplace-backend/pkg/currency"
)

// Service implements the marketplace operations exposed by the API: listing
// management, match scoring and lifecycle, transaction progress and the
// dashboard summary.
type Service struct {
	repo      Repository
	engine    *Engine
	scorer    *Scorer
	converter *currency.Converter
	logger    *zap.Logger
}

// NewService creates a marketplace service.
func NewService(repo Repository, converter *currency.Converter, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		engine:    NewEngine(),
		scorer:    NewScorer(converter),
		converter: converter,
		logger:    logger,
	}
}

// =====================================================
// Listings
// =====================================================

// CreateListingInput carries the fields a farmer supplies for a new listing.
type CreateListingInput struct {
	FarmerID       uuid.UUID    `json:"farmer_id"`
	CropType       string       `json:"crop_type"`
	Variety        string       `json:"variety"`
	Quantity       float64      `json:"quantity"`
	Unit           string       `json:"unit"`
	QualityGrade   QualityGrade `json:"quality_grade"`
	PricePerUnit   float64      `json:"price_per_unit"`
	Currency       string       `json:"currency"`
	AvailableFrom  time.Time    `json:"available_from"`
	AvailableUntil *time.Time   `json:"available_until,omitempty"`
}

// CreateListing validates and persists a new listing. New listings start
// ACTIVE and are immediately visible to matching.
func (s *Service) CreateListing(ctx context.Context, input *CreateListingInput) (*Listing, error) {
	now := time.Now()
	listing := &Listing{
		ID:             uuid.New(),
		FarmerID:       input.FarmerID,
		CropType:       input.CropType,
		Variety:        input.Variety,
		Quantity:       input.Quantity,
		Unit:           input.Unit,
		QualityGrade:   input.QualityGrade,
		PricePerUnit:   input.PricePerUnit,
		Currency:       input.Currency,
		AvailableFrom:  input.AvailableFrom,
		AvailableUntil: input.AvailableUntil,
		Status:         ListingStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := listing.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.converter.Catalog().Lookup(listing.Currency); err != nil {
		return nil, err
	}

	if err := s.repo.CreateListing(ctx, listing); err != nil {
		return nil, err
	}

	s.logger.Info("listing created",
		zap.String("listing_id", listing.ID.String()),
		zap.String("farmer_id", listing.FarmerID.String()),
		zap.String("crop_type", listing.CropType),
	)

	return listing, nil
}

// GetListing fetches a single listing.
func (s *Service) GetListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	return s.repo.GetListing(ctx, id)
}

// ListListings returns listings matching the filter plus the total count.
func (s *Service) ListListings(ctx context.Context, filter *ListingFilter) ([]*Listing, int, error) {
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	return s.repo.ListListings(ctx, filter)
}

// AdvanceListing moves a listing to the target status, subject to the
// lifecycle rules.
func (s *Service) AdvanceListing(ctx context.Context, id uuid.UUID, target ListingStatus) (*Listing, error) {
	listing, err := s.repo.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.engine.AdvanceListing(listing, target, time.Now()); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateListing(ctx, listing); err != nil {
		return nil, err
	}

	s.logger.Info("listing status changed",
		zap.String("listing_id", listing.ID.String()),
		zap.String("status", string(listing.Status)),
	)

	return listing, nil
}

// =====================================================
// Buyer profiles
// =====================================================

// SaveBuyerProfile creates or replaces a buyer's requirement profile.
func (s *Service) SaveBuyerProfile(ctx context.Context, profile *BuyerProfile) error {
	if profile.BuyerID == uuid.Nil {
		return fmt.Errorf("%w: buyer_id is required", ErrInvalidEntity)
	}
	if profile.PreferredCurrency != "" {
		if _, err := s.converter.Catalog().Lookup(profile.PreferredCurrency); err != nil {
			return err
		}
	}
	for _, std := range profile.QualityStandards {
		if !std.Valid() {
			return fmt.Errorf("%w: unknown quality grade %q", ErrInvalidEntity, std)
		}
	}
	return s.repo.UpsertBuyerProfile(ctx, profile)
}

// GetBuyerProfile fetches a buyer's requirement profile.
func (s *Service) GetBuyerProfile(ctx context.Context, buyerID uuid.UUID) (*BuyerProfile, error) {
	return s.repo.GetBuyerProfile(ctx, buyerID)
}

// =====================================================
// Matches
// =====================================================

// CreateMatch scores a listing against a buyer's stored profile and persists
// the resulting suggestion. A listing whose crop the buyer is not seeking is
// rejected rather than recorded with a hollow score.
func (s *Service) CreateMatch(ctx context.Context, listingID, buyerID uuid.UUID) (*Match, error) {
	listing, err := s.repo.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	buyer, err := s.repo.GetBuyerProfile(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	if !buyer.Seeking(listing.CropType) {
		return nil, fmt.Errorf("%w: buyer is not seeking %q", ErrIncompatibleMatch, listing.CropType)
	}

	breakdown, value, err := s.scorer.Score(ctx, listing, buyer)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	match := &Match{
		ID:                 uuid.New(),
		ListingID:          listing.ID,
		FarmerID:           listing.FarmerID,
		BuyerID:            buyer.BuyerID,
		CompatibilityScore: breakdown.Total,
		EstimatedValue:     value.Amount,
		ValueCurrency:      value.Currency,
		Status:             MatchStatusSuggested,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.CreateMatch(ctx, match); err != nil {
		return nil, err
	}

	s.logger.Info("match suggested",
		zap.String("match_id", match.ID.String()),
		zap.String("listing_id", listing.ID.String()),
		zap.String("buyer_id", buyer.BuyerID.String()),
		zap.Float64("score", match.CompatibilityScore),
	)

	return match, nil
}

// GetMatch fetches a single match.
func (s *Service) GetMatch(ctx context.Context, id uuid.UUID) (*Match, error) {
	return s.repo.GetMatch(ctx, id)
}

// ListMatches returns matches matching the filter plus the total count.
func (s *Service) ListMatches(ctx context.Context, filter *MatchFilter) ([]*Match, int, error) {
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	return s.repo.ListMatches(ctx, filter)
}

// RescoreMatch recomputes a suggested match's score and estimated value from
// current listing and profile data. Once a match has left SUGGESTED its score
// is frozen.
func (s *Service) RescoreMatch(ctx context.Context, id uuid.UUID) (*Match, error) {
	match, err := s.repo.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if match.Status != MatchStatusSuggested {
		return nil, fmt.Errorf("%w: cannot rescore match in status %s", ErrIllegalTransition, match.Status)
	}

	listing, err := s.repo.GetListing(ctx, match.ListingID)
	if err != nil {
		return nil, err
	}
	buyer, err := s.repo.GetBuyerProfile(ctx, match.BuyerID)
	if err != nil {
		return nil, err
	}

	breakdown, value, err := s.scorer.Score(ctx, listing, buyer)
	if err != nil {
		return nil, err
	}

	match.CompatibilityScore = breakdown.Total
	match.EstimatedValue = value.Amount
	match.ValueCurrency = value.Currency
	match.UpdatedAt = time.Now()

	if err := s.repo.UpdateMatch(ctx, match); err != nil {
		return nil, err
	}

	return match, nil
}

// AdvanceMatch moves a match to the target status and persists every entity
// the transition touched: the match itself, the listing when its state
// changed, and the transaction spawned on CONTRACT_SIGNED.
func (s *Service) AdvanceMatch(ctx context.Context, id uuid.UUID, target MatchStatus, actor uuid.UUID) (*Match, error) {
	match, err := s.repo.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	listing, err := s.repo.GetListing(ctx, match.ListingID)
	if err != nil {
		return nil, err
	}

	prevListingStatus := listing.Status
	tx, err := s.engine.AdvanceMatch(match, listing, target, actor, time.Now())
	if err != nil {
		return nil, err
	}

	if tx != nil {
		if err := s.repo.CreateTransaction(ctx, tx); err != nil {
			return nil, err
		}
	}
	if err := s.repo.UpdateMatch(ctx, match); err != nil {
		return nil, err
	}
	if listing.Status != prevListingStatus {
		if err := s.repo.UpdateListing(ctx, listing); err != nil {
			return nil, err
		}
	}

	s.logger.Info("match status changed",
		zap.String("match_id", match.ID.String()),
		zap.String("status", string(match.Status)),
		zap.String("actor", actor.String()),
	)

	return match, nil
}

// =====================================================
// Transactions
// =====================================================

// GetTransaction fetches a single transaction.
func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

// GetTransactionByMatch fetches the transaction spawned for a match.
func (s *Service) GetTransactionByMatch(ctx context.Context, matchID uuid.UUID) (*Transaction, error) {
	return s.repo.GetTransactionByMatch(ctx, matchID)
}

// AssignExportCompany attaches the export company handling the shipment.
func (s *Service) AssignExportCompany(ctx context.Context, id, companyID uuid.UUID) (*Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	tx.ExportCompanyID = &companyID
	tx.UpdatedAt = time.Now()
	if err := s.repo.UpdateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// RecordPaymentEvent advances a transaction's payment status.
func (s *Service) RecordPaymentEvent(ctx context.Context, id uuid.UUID, target PaymentStatus) (*Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.engine.RecordPayment(tx, target, time.Now()); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	s.logger.Info("payment status changed",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("payment_status", string(tx.PaymentStatus)),
	)

	return tx, nil
}

// RecordShipmentEvent advances a transaction's shipment status.
func (s *Service) RecordShipmentEvent(ctx context.Context, id uuid.UUID, target ShipmentStatus) (*Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.engine.RecordShipment(tx, target, time.Now()); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	s.logger.Info("shipment status changed",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("shipment_status", string(tx.ShipmentStatus)),
	)

	return tx, nil
}

// =====================================================
// Dashboard
// =====================================================

// DashboardSummary aggregates marketplace activity for the overview screen.
// Transaction volume is reported per original currency and as a single total
// converted into the display currency.
type DashboardSummary struct {
	ListingsByStatus map[ListingStatus]int `json:"listings_by_status"`
	MatchesByStatus  map[MatchStatus]int   `json:"matches_by_status"`
	VolumeByCurrency map[string]float64    `json:"volume_by_currency"`
	TotalVolume      float64               `json:"total_volume"`
	DisplayCurrency  string                `json:"display_currency"`
	FormattedVolume  string                `json:"formatted_volume"`
	GeneratedAt      time.Time             `json:"generated_at"`
}

// GetDashboardSummary builds the overview aggregates, converting transaction
// volume into the given display currency.
func (s *Service) GetDashboardSummary(ctx context.Context, displayCurrency, locale string) (*DashboardSummary, error) {
	if _, err := s.converter.Catalog().Lookup(displayCurrency); err != nil {
		return nil, err
	}

	listingCounts, err := s.repo.CountListingsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	matchCounts, err := s.repo.CountMatchesByStatus(ctx)
	if err != nil {
		return nil, err
	}
	totals, err := s.repo.TransactionTotalsByCurrency(ctx)
	if err != nil {
		return nil, err
	}

	var total float64
	for code, amount := range totals {
		converted, err := s.converter.Convert(ctx, amount, code, displayCurrency)
		if err != nil {
			return nil, err
		}
		total += converted
	}

	formatted, err := s.converter.Format(total, displayCurrency, locale)
	if err != nil {
		return nil, err
	}

	return &DashboardSummary{
		ListingsByStatus: listingCounts,
		MatchesByStatus:  matchCounts,
		VolumeByCurrency: totals,
		TotalVolume:      total,
		DisplayCurrency:  displayCurrency,
		FormattedVolume:  formatted,
		GeneratedAt:      time.Now(),
	}, nil
}

// =====================================================
// Currency operations
// =====================================================

// SupportedCurrencies lists the catalog in registration order.
func (s *Service) SupportedCurrencies() []currency.Currency {
	return s.converter.Catalog().List()
}

// ConvertAmount converts an amount between two supported currencies.
func (s *Service) ConvertAmount(ctx context.Context, amount float64, from, to string) (Money, error) {
	converted, err := s.converter.Convert(ctx, amount, from, to)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: converted, Currency: to}, nil
}

// FormatAmount renders an amount with its currency symbol for the given
// locale.
func (s *Service) FormatAmount(amount float64, code, locale string) (string, error) {
	return s.converter.Format(amount, code, locale)
}
