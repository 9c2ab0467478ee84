package marketplace

import (
	"context"
	"math"

	"agrilink/marketplace-backend/pkg/currency"
)

// Scoring weights. The four terms sum to a maximum of 100.
const (
	cropWeight         = 40.0
	qualityWeight      = 30.0
	volumeWeight       = 20.0
	availabilityWeight = 10.0
)

// ScoreBreakdown itemizes how a compatibility score was reached, so the
// number shown on the dashboard can be explained.
type ScoreBreakdown struct {
	Crop         float64 `json:"crop"`
	Quality      float64 `json:"quality"`
	Volume       float64 `json:"volume"`
	Availability float64 `json:"availability"`
	Total        float64 `json:"total"`
}

// Scorer rates how well a listing fits a buyer's requirements and prices the
// prospective deal in the buyer's preferred currency.
type Scorer struct {
	converter *currency.Converter
}

// NewScorer creates a scorer using the given converter for value
// normalization.
func NewScorer(converter *currency.Converter) *Scorer {
	return &Scorer{converter: converter}
}

// Score returns a compatibility score in [0,100] and the listing's full value
// converted into the buyer's preferred currency (or left in the listing's
// currency when the buyer states no preference). A listing whose crop the
// buyer is not seeking scores zero on the crop term rather than failing; the
// caller decides whether such a match is worth keeping.
func (s *Scorer) Score(ctx context.Context, listing *Listing, buyer *BuyerProfile) (ScoreBreakdown, Money, error) {
	var bd ScoreBreakdown
	if buyer.Seeking(listing.CropType) {
		bd.Crop = cropWeight
	}
	bd.Quality = qualityScore(listing.QualityGrade, buyer.QualityStandards)
	bd.Volume = volumeScore(listing.Quantity, buyer.VolumeRequired)
	bd.Availability = availabilityScore(listing, buyer)
	bd.Total = math.Min(100, math.Max(0, bd.Crop+bd.Quality+bd.Volume+bd.Availability))

	target := buyer.PreferredCurrency
	if target == "" {
		target = listing.Currency
	}
	value, err := s.converter.Convert(ctx, listing.Quantity*listing.PricePerUnit, listing.Currency, target)
	if err != nil {
		return ScoreBreakdown{}, Money{}, err
	}
	return bd, Money{Amount: value, Currency: target}, nil
}

// qualityScore gives full credit when the grade meets or exceeds every
// accepted standard, nothing when it falls below all of them, and credit
// proportional to ordinal position in between. No standards means the buyer
// takes any grade.
func qualityScore(grade QualityGrade, standards GradeList) float64 {
	if len(standards) == 0 {
		return qualityWeight
	}
	ord, ok := gradeOrdinal[grade]
	if !ok {
		return 0
	}
	lo, hi := -1, -1
	for _, std := range standards {
		o, ok := gradeOrdinal[std]
		if !ok {
			continue
		}
		if lo == -1 || o < lo {
			lo = o
		}
		if o > hi {
			hi = o
		}
	}
	if lo == -1 {
		return qualityWeight
	}
	switch {
	case ord >= hi:
		return qualityWeight
	case ord < lo:
		return 0
	default:
		return qualityWeight * float64(ord-lo+1) / float64(hi-lo+1)
	}
}

func volumeScore(quantity, required float64) float64 {
	if required <= 0 {
		return volumeWeight
	}
	return volumeWeight * math.Min(1, quantity/required)
}

// availabilityScore gives credit when the listing's availability window
// overlaps the buyer's needed timeframe, or unconditionally when the buyer
// specifies none. Open-ended bounds overlap everything on that side.
func availabilityScore(listing *Listing, buyer *BuyerProfile) float64 {
	if buyer.NeededFrom == nil && buyer.NeededUntil == nil {
		return availabilityWeight
	}
	if buyer.NeededUntil != nil && listing.AvailableFrom.After(*buyer.NeededUntil) {
		return 0
	}
	if buyer.NeededFrom != nil && listing.AvailableUntil != nil && listing.AvailableUntil.Before(*buyer.NeededFrom) {
		return 0
	}
	return availabilityWeight
}
