package marketplace

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"agrilink/marketplace-backend/pkg/currency"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateListing(ctx context.Context, listing *Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}

func (m *MockRepository) GetListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Listing), args.Error(1)
}

func (m *MockRepository) UpdateListing(ctx context.Context, listing *Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}

func (m *MockRepository) ListListings(ctx context.Context, filter *ListingFilter) ([]*Listing, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*Listing), args.Int(1), args.Error(2)
}

func (m *MockRepository) UpsertBuyerProfile(ctx context.Context, profile *BuyerProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockRepository) GetBuyerProfile(ctx context.Context, buyerID uuid.UUID) (*BuyerProfile, error) {
	args := m.Called(ctx, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*BuyerProfile), args.Error(1)
}

func (m *MockRepository) CreateMatch(ctx context.Context, match *Match) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockRepository) GetMatch(ctx context.Context, id uuid.UUID) (*Match, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Match), args.Error(1)
}

func (m *MockRepository) UpdateMatch(ctx context.Context, match *Match) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockRepository) ListMatches(ctx context.Context, filter *MatchFilter) ([]*Match, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*Match), args.Int(1), args.Error(2)
}

func (m *MockRepository) CreateTransaction(ctx context.Context, tx *Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

func (m *MockRepository) GetTransactionByMatch(ctx context.Context, matchID uuid.UUID) (*Transaction, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

func (m *MockRepository) UpdateTransaction(ctx context.Context, tx *Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockRepository) CountListingsByStatus(ctx context.Context) (map[ListingStatus]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[ListingStatus]int), args.Error(1)
}

func (m *MockRepository) CountMatchesByStatus(ctx context.Context) (map[MatchStatus]int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[MatchStatus]int), args.Error(1)
}

func (m *MockRepository) TransactionTotalsByCurrency(ctx context.Context) (map[string]float64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]float64), args.Error(1)
}

func newTestService(repo Repository) *Service {
	conv := currency.NewConverter(currency.DefaultCatalog(), currency.NewStaticProvider(currency.DefaultRateTable()))
	return NewService(repo, conv, zap.NewNop())
}

func TestServiceCreateListing(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("CreateListing", mock.Anything, mock.AnythingOfType("*marketplace.Listing")).Return(nil)

	listing, err := svc.CreateListing(context.Background(), &CreateListingInput{
		FarmerID:      uuid.New(),
		CropType:      "cocoa",
		Quantity:      500,
		Unit:          "kg",
		QualityGrade:  GradeA,
		PricePerUnit:  10,
		Currency:      "GHS",
		AvailableFrom: time.Now(),
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, listing.ID)
	assert.Equal(t, ListingStatusActive, listing.Status)
	repo.AssertExpectations(t)
}

func TestServiceCreateListingValidation(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	_, err := svc.CreateListing(context.Background(), &CreateListingInput{
		FarmerID:     uuid.New(),
		CropType:     "cocoa",
		Quantity:     -5,
		QualityGrade: GradeA,
		PricePerUnit: 10,
		Currency:     "GHS",
	})
	assert.ErrorIs(t, err, ErrInvalidEntity)

	_, err = svc.CreateListing(context.Background(), &CreateListingInput{
		FarmerID:     uuid.New(),
		CropType:     "cocoa",
		Quantity:     500,
		QualityGrade: GradeA,
		PricePerUnit: 10,
		Currency:     "XXX",
	})
	assert.ErrorIs(t, err, currency.ErrUnsupportedCurrency)

	repo.AssertNotCalled(t, "CreateListing")
}

func TestServiceCreateMatch(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	listing := testListing()
	buyer := testBuyer()

	repo.On("GetListing", mock.Anything, listing.ID).Return(listing, nil)
	repo.On("GetBuyerProfile", mock.Anything, buyer.BuyerID).Return(buyer, nil)
	repo.On("CreateMatch", mock.Anything, mock.AnythingOfType("*marketplace.Match")).Return(nil)

	match, err := svc.CreateMatch(context.Background(), listing.ID, buyer.BuyerID)
	require.NoError(t, err)

	assert.Equal(t, listing.ID, match.ListingID)
	assert.Equal(t, listing.FarmerID, match.FarmerID)
	assert.Equal(t, MatchStatusSuggested, match.Status)
	assert.Equal(t, 100.0, match.CompatibilityScore)
	assert.Equal(t, "GHS", match.ValueCurrency)
	assert.InDelta(t, 5000.0, match.EstimatedValue, 1e-9)
	repo.AssertExpectations(t)
}

func TestServiceCreateMatchIncompatibleCrop(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	listing := testListing()
	buyer := testBuyer()
	buyer.SeekingCrops = pq.StringArray{"maize"}

	repo.On("GetListing", mock.Anything, listing.ID).Return(listing, nil)
	repo.On("GetBuyerProfile", mock.Anything, buyer.BuyerID).Return(buyer, nil)

	_, err := svc.CreateMatch(context.Background(), listing.ID, buyer.BuyerID)
	assert.ErrorIs(t, err, ErrIncompatibleMatch)
	repo.AssertNotCalled(t, "CreateMatch")
}

func TestServiceAdvanceMatchSignsContract(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	listing := testListing()
	listing.Status = ListingStatusPending
	match := testMatch(listing)
	match.Status = MatchStatusNegotiating

	repo.On("GetMatch", mock.Anything, match.ID).Return(match, nil)
	repo.On("GetListing", mock.Anything, listing.ID).Return(listing, nil)
	repo.On("CreateTransaction", mock.Anything, mock.AnythingOfType("*marketplace.Transaction")).Return(nil)
	repo.On("UpdateMatch", mock.Anything, match).Return(nil)

	got, err := svc.AdvanceMatch(context.Background(), match.ID, MatchStatusContractSigned, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, MatchStatusContractSigned, got.Status)
	require.NotNil(t, got.TransactionID)
	repo.AssertExpectations(t)
	// Listing state did not change, so no listing write happened
	repo.AssertNotCalled(t, "UpdateListing")
}

func TestServiceAdvanceMatchPersistsListingLock(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	listing := testListing()
	match := testMatch(listing)
	match.Status = MatchStatusContacted

	repo.On("GetMatch", mock.Anything, match.ID).Return(match, nil)
	repo.On("GetListing", mock.Anything, listing.ID).Return(listing, nil)
	repo.On("UpdateMatch", mock.Anything, match).Return(nil)
	repo.On("UpdateListing", mock.Anything, listing).Return(nil)

	_, err := svc.AdvanceMatch(context.Background(), match.ID, MatchStatusNegotiating, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, ListingStatusPending, listing.Status)
	repo.AssertExpectations(t)
}

func TestServiceAdvanceMatchIllegalTransition(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	listing := testListing()
	match := testMatch(listing)

	repo.On("GetMatch", mock.Anything, match.ID).Return(match, nil)
	repo.On("GetListing", mock.Anything, listing.ID).Return(listing, nil)

	_, err := svc.AdvanceMatch(context.Background(), match.ID, MatchStatusCompleted, uuid.New())
	assert.ErrorIs(t, err, ErrIllegalTransition)
	repo.AssertNotCalled(t, "UpdateMatch")
}

func TestServiceRescoreMatchOnlyWhileSuggested(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	listing := testListing()
	match := testMatch(listing)
	match.Status = MatchStatusNegotiating

	repo.On("GetMatch", mock.Anything, match.ID).Return(match, nil)

	_, err := svc.RescoreMatch(context.Background(), match.ID)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestServiceRescoreMatch(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	listing := testListing()
	buyer := testBuyer()
	match := testMatch(listing)
	match.BuyerID = buyer.BuyerID
	match.CompatibilityScore = 10 // stale

	repo.On("GetMatch", mock.Anything, match.ID).Return(match, nil)
	repo.On("GetListing", mock.Anything, listing.ID).Return(listing, nil)
	repo.On("GetBuyerProfile", mock.Anything, buyer.BuyerID).Return(buyer, nil)
	repo.On("UpdateMatch", mock.Anything, match).Return(nil)

	got, err := svc.RescoreMatch(context.Background(), match.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.CompatibilityScore)
	repo.AssertExpectations(t)
}

func TestServiceSaveBuyerProfileValidation(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	err := svc.SaveBuyerProfile(context.Background(), &BuyerProfile{})
	assert.ErrorIs(t, err, ErrInvalidEntity)

	err = svc.SaveBuyerProfile(context.Background(), &BuyerProfile{
		BuyerID:           uuid.New(),
		PreferredCurrency: "XXX",
	})
	assert.ErrorIs(t, err, currency.ErrUnsupportedCurrency)

	err = svc.SaveBuyerProfile(context.Background(), &BuyerProfile{
		BuyerID:          uuid.New(),
		QualityStandards: GradeList{"GRADE_Z"},
	})
	assert.ErrorIs(t, err, ErrInvalidEntity)
}

func TestServiceRecordPaymentEvent(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	tx := &Transaction{
		ID:             uuid.New(),
		MatchID:        uuid.New(),
		PaymentStatus:  PaymentStatusPending,
		ShipmentStatus: ShipmentStatusPending,
	}

	repo.On("GetTransaction", mock.Anything, tx.ID).Return(tx, nil)
	repo.On("UpdateTransaction", mock.Anything, tx).Return(nil)

	got, err := svc.RecordPaymentEvent(context.Background(), tx.ID, PaymentStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, PaymentStatusPaid, got.PaymentStatus)
	repo.AssertExpectations(t)
}

func TestServiceDashboardSummary(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	repo.On("CountListingsByStatus", mock.Anything).Return(map[ListingStatus]int{
		ListingStatusActive: 3,
		ListingStatusSold:   1,
	}, nil)
	repo.On("CountMatchesByStatus", mock.Anything).Return(map[MatchStatus]int{
		MatchStatusSuggested: 2,
	}, nil)
	repo.On("TransactionTotalsByCurrency", mock.Anything).Return(map[string]float64{
		"GHS": 1000,
		"USD": 80, // 1000 GHS at the static rate
	}, nil)

	summary, err := svc.GetDashboardSummary(context.Background(), "GHS", "en")
	require.NoError(t, err)

	assert.Equal(t, 3, summary.ListingsByStatus[ListingStatusActive])
	assert.Equal(t, 2, summary.MatchesByStatus[MatchStatusSuggested])
	assert.InDelta(t, 2000.0, summary.TotalVolume, 1e-9)
	assert.Equal(t, "GHS", summary.DisplayCurrency)
	assert.Equal(t, "GH₵2,000.00", summary.FormattedVolume)
}

func TestServiceDashboardSummaryUnsupportedCurrency(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(repo)

	_, err := svc.GetDashboardSummary(context.Background(), "XXX", "en")
	assert.ErrorIs(t, err, currency.ErrUnsupportedCurrency)
	repo.AssertNotCalled(t, "CountListingsByStatus")
}
