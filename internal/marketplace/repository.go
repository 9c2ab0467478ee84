package marketplace

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines the persistence boundary of the marketplace. The core
// logic never touches storage directly; any store satisfying this interface
// can back it.
type Repository interface {
	// Listings
	CreateListing(ctx context.Context, listing *Listing) error
	GetListing(ctx context.Context, id uuid.UUID) (*Listing, error)
	UpdateListing(ctx context.Context, listing *Listing) error
	ListListings(ctx context.Context, filter *ListingFilter) ([]*Listing, int, error)

	// Buyer profiles
	UpsertBuyerProfile(ctx context.Context, profile *BuyerProfile) error
	GetBuyerProfile(ctx context.Context, buyerID uuid.UUID) (*BuyerProfile, error)

	// Matches
	CreateMatch(ctx context.Context, match *Match) error
	GetMatch(ctx context.Context, id uuid.UUID) (*Match, error)
	UpdateMatch(ctx context.Context, match *Match) error
	ListMatches(ctx context.Context, filter *MatchFilter) ([]*Match, int, error)

	// Transactions
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetTransactionByMatch(ctx context.Context, matchID uuid.UUID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction) error

	// Dashboard aggregates
	CountListingsByStatus(ctx context.Context) (map[ListingStatus]int, error)
	CountMatchesByStatus(ctx context.Context) (map[MatchStatus]int, error)
	TransactionTotalsByCurrency(ctx context.Context) (map[string]float64, error)
}

// ListingFilter narrows listing queries.
type ListingFilter struct {
	FarmerID *uuid.UUID
	Status   *ListingStatus
	CropType *string
	Page     int
	PageSize int
}

// MatchFilter narrows match queries.
type MatchFilter struct {
	BuyerID   *uuid.UUID
	ListingID *uuid.UUID
	Status    *MatchStatus
	Page      int
	PageSize  int
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository.
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// =====================================================
// Listings
// =====================================================

const listingColumns = `id, farmer_id, crop_type, variety, quantity, unit, quality_grade,
	price_per_unit, currency, available_from, available_until, status, created_at, updated_at`

func (r *PostgresRepository) CreateListing(ctx context.Context, listing *Listing) error {
	query := `
		INSERT INTO listings (` + listingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		listing.ID, listing.FarmerID, listing.CropType, listing.Variety,
		listing.Quantity, listing.Unit, listing.QualityGrade, listing.PricePerUnit,
		listing.Currency, listing.AvailableFrom, listing.AvailableUntil,
		listing.Status, listing.CreatedAt, listing.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}

	return nil
}

func scanListing(row *sql.Row) (*Listing, error) {
	var listing Listing
	err := row.Scan(
		&listing.ID, &listing.FarmerID, &listing.CropType, &listing.Variety,
		&listing.Quantity, &listing.Unit, &listing.QualityGrade, &listing.PricePerUnit,
		&listing.Currency, &listing.AvailableFrom, &listing.AvailableUntil,
		&listing.Status, &listing.CreatedAt, &listing.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("listing %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return &listing, nil
}

func (r *PostgresRepository) GetListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings WHERE id = $1`
	return scanListing(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) UpdateListing(ctx context.Context, listing *Listing) error {
	query := `
		UPDATE listings SET
			crop_type = $2, variety = $3, quantity = $4, unit = $5, quality_grade = $6,
			price_per_unit = $7, currency = $8, available_from = $9, available_until = $10,
			status = $11, updated_at = $12
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		listing.ID, listing.CropType, listing.Variety, listing.Quantity, listing.Unit,
		listing.QualityGrade, listing.PricePerUnit, listing.Currency,
		listing.AvailableFrom, listing.AvailableUntil, listing.Status, listing.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("listing %w", ErrNotFound)
	}

	return nil
}

func (r *PostgresRepository) ListListings(ctx context.Context, filter *ListingFilter) ([]*Listing, int, error) {
	var conditions []string
	var args []interface{}
	argCount := 0

	if filter.FarmerID != nil {
		argCount++
		conditions = append(conditions, fmt.Sprintf("farmer_id = $%d", argCount))
		args = append(args, *filter.FarmerID)
	}

	if filter.Status != nil {
		argCount++
		conditions = append(conditions, fmt.Sprintf("status = $%d", argCount))
		args = append(args, *filter.Status)
	}

	if filter.CropType != nil {
		argCount++
		conditions = append(conditions, fmt.Sprintf("crop_type = $%d", argCount))
		args = append(args, *filter.CropType)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var totalCount int
	countQuery := `SELECT COUNT(*) FROM listings` + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	offset := (filter.Page - 1) * filter.PageSize
	if filter.Page < 1 {
		offset = 0
	}

	argCount++
	limitArg := argCount
	argCount++
	offsetArg := argCount

	query := `SELECT ` + listingColumns + ` FROM listings` + whereClause +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", limitArg, offsetArg)
	args = append(args, filter.PageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list listings: %w", err)
	}
	defer rows.Close()

	var listings []*Listing
	for rows.Next() {
		var listing Listing
		err := rows.Scan(
			&listing.ID, &listing.FarmerID, &listing.CropType, &listing.Variety,
			&listing.Quantity, &listing.Unit, &listing.QualityGrade, &listing.PricePerUnit,
			&listing.Currency, &listing.AvailableFrom, &listing.AvailableUntil,
			&listing.Status, &listing.CreatedAt, &listing.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, &listing)
	}

	return listings, totalCount, nil
}

// =====================================================
// Buyer profiles
// =====================================================

func (r *PostgresRepository) UpsertBuyerProfile(ctx context.Context, profile *BuyerProfile) error {
	query := `
		INSERT INTO buyer_profiles (
			buyer_id, seeking_crops, volume_required, quality_standards,
			preferred_currency, needed_from, needed_until
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (buyer_id) DO UPDATE SET
			seeking_crops = EXCLUDED.seeking_crops,
			volume_required = EXCLUDED.volume_required,
			quality_standards = EXCLUDED.quality_standards,
			preferred_currency = EXCLUDED.preferred_currency,
			needed_from = EXCLUDED.needed_from,
			needed_until = EXCLUDED.needed_until
	`

	_, err := r.db.ExecContext(ctx, query,
		profile.BuyerID, profile.SeekingCrops, profile.VolumeRequired,
		profile.QualityStandards, profile.PreferredCurrency,
		profile.NeededFrom, profile.NeededUntil,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert buyer profile: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetBuyerProfile(ctx context.Context, buyerID uuid.UUID) (*BuyerProfile, error) {
	query := `
		SELECT buyer_id, seeking_crops, volume_required, quality_standards,
			   preferred_currency, needed_from, needed_until
		FROM buyer_profiles
		WHERE buyer_id = $1
	`

	var profile BuyerProfile
	err := r.db.QueryRowContext(ctx, query, buyerID).Scan(
		&profile.BuyerID, &profile.SeekingCrops, &profile.VolumeRequired,
		&profile.QualityStandards, &profile.PreferredCurrency,
		&profile.NeededFrom, &profile.NeededUntil,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("buyer profile %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get buyer profile: %w", err)
	}

	return &profile, nil
}

// =====================================================
// Matches
// =====================================================

const matchColumns = `id, listing_id, farmer_id, buyer_id, compatibility_score, estimated_value,
	value_currency, status, transaction_id, contacted_at, negotiating_at, contract_signed_at,
	completed_at, cancelled_at, created_at, updated_at`

func (r *PostgresRepository) CreateMatch(ctx context.Context, match *Match) error {
	query := `
		INSERT INTO matches (` + matchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.ExecContext(ctx, query,
		match.ID, match.ListingID, match.FarmerID, match.BuyerID,
		match.CompatibilityScore, match.EstimatedValue, match.ValueCurrency,
		match.Status, match.TransactionID, match.ContactedAt, match.NegotiatingAt,
		match.ContractSignedAt, match.CompletedAt, match.CancelledAt,
		match.CreatedAt, match.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetMatch(ctx context.Context, id uuid.UUID) (*Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	var match Match
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&match.ID, &match.ListingID, &match.FarmerID, &match.BuyerID,
		&match.CompatibilityScore, &match.EstimatedValue, &match.ValueCurrency,
		&match.Status, &match.TransactionID, &match.ContactedAt, &match.NegotiatingAt,
		&match.ContractSignedAt, &match.CompletedAt, &match.CancelledAt,
		&match.CreatedAt, &match.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("match %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	return &match, nil
}

func (r *PostgresRepository) UpdateMatch(ctx context.Context, match *Match) error {
	query := `
		UPDATE matches SET
			compatibility_score = $2, estimated_value = $3, value_currency = $4,
			status = $5, transaction_id = $6, contacted_at = $7, negotiating_at = $8,
			contract_signed_at = $9, completed_at = $10, cancelled_at = $11, updated_at = $12
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		match.ID, match.CompatibilityScore, match.EstimatedValue, match.ValueCurrency,
		match.Status, match.TransactionID, match.ContactedAt, match.NegotiatingAt,
		match.ContractSignedAt, match.CompletedAt, match.CancelledAt, match.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("match %w", ErrNotFound)
	}

	return nil
}

func (r *PostgresRepository) ListMatches(ctx context.Context, filter *MatchFilter) ([]*Match, int, error) {
	var conditions []string
	var args []interface{}
	argCount := 0

	if filter.BuyerID != nil {
		argCount++
		conditions = append(conditions, fmt.Sprintf("buyer_id = $%d", argCount))
		args = append(args, *filter.BuyerID)
	}

	if filter.ListingID != nil {
		argCount++
		conditions = append(conditions, fmt.Sprintf("listing_id = $%d", argCount))
		args = append(args, *filter.ListingID)
	}

	if filter.Status != nil {
		argCount++
		conditions = append(conditions, fmt.Sprintf("status = $%d", argCount))
		args = append(args, *filter.Status)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var totalCount int
	countQuery := `SELECT COUNT(*) FROM matches` + whereClause
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count matches: %w", err)
	}

	offset := (filter.Page - 1) * filter.PageSize
	if filter.Page < 1 {
		offset = 0
	}

	argCount++
	limitArg := argCount
	argCount++
	offsetArg := argCount

	query := `SELECT ` + matchColumns + ` FROM matches` + whereClause +
		fmt.Sprintf(" ORDER BY compatibility_score DESC, created_at DESC LIMIT $%d OFFSET $%d", limitArg, offsetArg)
	args = append(args, filter.PageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []*Match
	for rows.Next() {
		var match Match
		err := rows.Scan(
			&match.ID, &match.ListingID, &match.FarmerID, &match.BuyerID,
			&match.CompatibilityScore, &match.EstimatedValue, &match.ValueCurrency,
			&match.Status, &match.TransactionID, &match.ContactedAt, &match.NegotiatingAt,
			&match.ContractSignedAt, &match.CompletedAt, &match.CancelledAt,
			&match.CreatedAt, &match.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, &match)
	}

	return matches, totalCount, nil
}

// =====================================================
// Transactions
// =====================================================

const transactionColumns = `id, match_id, buyer_id, export_company_id, quantity, unit,
	agreed_price, total_value, currency, payment_status, shipment_status, created_at, updated_at`

func (r *PostgresRepository) CreateTransaction(ctx context.Context, tx *Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.MatchID, tx.BuyerID, tx.ExportCompanyID, tx.Quantity, tx.Unit,
		tx.AgreedPrice, tx.TotalValue, tx.Currency, tx.PaymentStatus,
		tx.ShipmentStatus, tx.CreatedAt, tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

func (r *PostgresRepository) getTransaction(ctx context.Context, where string, arg interface{}) (*Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + where

	var tx Transaction
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&tx.ID, &tx.MatchID, &tx.BuyerID, &tx.ExportCompanyID, &tx.Quantity, &tx.Unit,
		&tx.AgreedPrice, &tx.TotalValue, &tx.Currency, &tx.PaymentStatus,
		&tx.ShipmentStatus, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("transaction %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &tx, nil
}

func (r *PostgresRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return r.getTransaction(ctx, "id = $1", id)
}

func (r *PostgresRepository) GetTransactionByMatch(ctx context.Context, matchID uuid.UUID) (*Transaction, error) {
	return r.getTransaction(ctx, "match_id = $1", matchID)
}

func (r *PostgresRepository) UpdateTransaction(ctx context.Context, tx *Transaction) error {
	query := `
		UPDATE transactions SET
			export_company_id = $2, payment_status = $3, shipment_status = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.ExportCompanyID, tx.PaymentStatus, tx.ShipmentStatus, tx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("transaction %w", ErrNotFound)
	}

	return nil
}

// =====================================================
// Dashboard aggregates
// =====================================================

func (r *PostgresRepository) CountListingsByStatus(ctx context.Context) (map[ListingStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM listings GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count listings by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[ListingStatus]int)
	for rows.Next() {
		var status ListingStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan listing count: %w", err)
		}
		counts[status] = count
	}

	return counts, nil
}

func (r *PostgresRepository) CountMatchesByStatus(ctx context.Context) (map[MatchStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM matches GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count matches by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[MatchStatus]int)
	for rows.Next() {
		var status MatchStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan match count: %w", err)
		}
		counts[status] = count
	}

	return counts, nil
}

func (r *PostgresRepository) TransactionTotalsByCurrency(ctx context.Context) (map[string]float64, error) {
	query := `SELECT currency, COALESCE(SUM(total_value), 0) FROM transactions GROUP BY currency`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to total transactions: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]float64)
	for rows.Next() {
		var code string
		var total float64
		if err := rows.Scan(&code, &total); err != nil {
			return nil, fmt.Errorf("failed to scan transaction total: %w", err)
		}
		totals[code] = total
	}

	return totals, nil
}
