package marketplace

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"agrilink/marketplace-backend/pkg/currency"
)

// Handler handles HTTP requests for marketplace operations
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new marketplace handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers marketplace routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	listings := router.Group("/listings")
	{
		listings.POST("", h.createListing)
		listings.GET("", h.listListings)
		listings.GET("/:id", h.getListing)
		listings.POST("/:id/status", h.advanceListing)
	}

	buyers := router.Group("/buyers")
	{
		buyers.PUT("/:id/profile", h.saveBuyerProfile)
		buyers.GET("/:id/profile", h.getBuyerProfile)
	}

	matches := router.Group("/matches")
	{
		matches.POST("", h.createMatch)
		matches.GET("", h.listMatches)
		matches.GET("/:id", h.getMatch)
		matches.POST("/:id/rescore", h.rescoreMatch)
		matches.POST("/:id/status", h.advanceMatch)
	}

	transactions := router.Group("/transactions")
	{
		transactions.GET("/:id", h.getTransaction)
		transactions.POST("/:id/export-company", h.assignExportCompany)
		transactions.POST("/:id/payment", h.recordPayment)
		transactions.POST("/:id/shipment", h.recordShipment)
	}

	currencies := router.Group("/currencies")
	{
		currencies.GET("", h.listCurrencies)
		currencies.GET("/convert", h.convertAmount)
		currencies.GET("/format", h.formatAmount)
	}

	router.GET("/dashboard/summary", h.getDashboardSummary)
}

// respondError maps domain errors to HTTP status codes.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrIllegalTransition), errors.Is(err, ErrDuplicateTransaction):
		status = http.StatusConflict
	case errors.Is(err, ErrInvalidEntity), errors.Is(err, ErrIncompatibleMatch),
		errors.Is(err, currency.ErrUnsupportedCurrency):
		status = http.StatusBadRequest
	case errors.Is(err, currency.ErrRateUnavailable):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *Handler) getFloatQuery(c *gin.Context, key string) (float64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// =====================================================
// Listing Endpoints
// =====================================================

// createListing handles POST /api/v1/listings
func (h *Handler) createListing(c *gin.Context) {
	var req CreateListingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listing, err := h.service.CreateListing(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, listing)
}

// listListings handles GET /api/v1/listings
func (h *Handler) listListings(c *gin.Context) {
	filter := &ListingFilter{
		Page:     h.getIntParam(c, "page", 1),
		PageSize: h.getIntParam(c, "page_size", 20),
	}

	if farmerID := c.Query("farmer_id"); farmerID != "" {
		id, err := uuid.Parse(farmerID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid farmer ID"})
			return
		}
		filter.FarmerID = &id
	}
	if status := c.Query("status"); status != "" {
		st := ListingStatus(status)
		filter.Status = &st
	}
	if crop := c.Query("crop_type"); crop != "" {
		filter.CropType = &crop
	}

	listings, total, err := h.service.ListListings(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"listings":    listings,
		"total_count": total,
		"page":        filter.Page,
		"page_size":   filter.PageSize,
	})
}

// getListing handles GET /api/v1/listings/:id
func (h *Handler) getListing(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing ID"})
		return
	}

	listing, err := h.service.GetListing(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

// advanceListing handles POST /api/v1/listings/:id/status
func (h *Handler) advanceListing(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing ID"})
		return
	}

	var req struct {
		Status ListingStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	listing, err := h.service.AdvanceListing(c.Request.Context(), id, req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

// =====================================================
// Buyer Profile Endpoints
// =====================================================

// saveBuyerProfile handles PUT /api/v1/buyers/:id/profile
func (h *Handler) saveBuyerProfile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid buyer ID"})
		return
	}

	var profile BuyerProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	profile.BuyerID = id

	if err := h.service.SaveBuyerProfile(c.Request.Context(), &profile); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// getBuyerProfile handles GET /api/v1/buyers/:id/profile
func (h *Handler) getBuyerProfile(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid buyer ID"})
		return
	}

	profile, err := h.service.GetBuyerProfile(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}

// =====================================================
// Match Endpoints
// =====================================================

// createMatch handles POST /api/v1/matches
func (h *Handler) createMatch(c *gin.Context) {
	var req struct {
		ListingID uuid.UUID `json:"listing_id" binding:"required"`
		BuyerID   uuid.UUID `json:"buyer_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	match, err := h.service.CreateMatch(c.Request.Context(), req.ListingID, req.BuyerID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, match)
}

// listMatches handles GET /api/v1/matches
func (h *Handler) listMatches(c *gin.Context) {
	filter := &MatchFilter{
		Page:     h.getIntParam(c, "page", 1),
		PageSize: h.getIntParam(c, "page_size", 20),
	}

	if buyerID := c.Query("buyer_id"); buyerID != "" {
		id, err := uuid.Parse(buyerID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid buyer ID"})
			return
		}
		filter.BuyerID = &id
	}
	if listingID := c.Query("listing_id"); listingID != "" {
		id, err := uuid.Parse(listingID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing ID"})
			return
		}
		filter.ListingID = &id
	}
	if status := c.Query("status"); status != "" {
		st := MatchStatus(status)
		filter.Status = &st
	}

	matches, total, err := h.service.ListMatches(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"matches":     matches,
		"total_count": total,
		"page":        filter.Page,
		"page_size":   filter.PageSize,
	})
}

// getMatch handles GET /api/v1/matches/:id
func (h *Handler) getMatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match ID"})
		return
	}

	match, err := h.service.GetMatch(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, match)
}

// rescoreMatch handles POST /api/v1/matches/:id/rescore
func (h *Handler) rescoreMatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match ID"})
		return
	}

	match, err := h.service.RescoreMatch(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, match)
}

// advanceMatch handles POST /api/v1/matches/:id/status
func (h *Handler) advanceMatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match ID"})
		return
	}

	var req struct {
		Status MatchStatus `json:"status" binding:"required"`
		Actor  uuid.UUID   `json:"actor"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	match, err := h.service.AdvanceMatch(c.Request.Context(), id, req.Status, req.Actor)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, match)
}

// =====================================================
// Transaction Endpoints
// =====================================================

// getTransaction handles GET /api/v1/transactions/:id
func (h *Handler) getTransaction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	tx, err := h.service.GetTransaction(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

// assignExportCompany handles POST /api/v1/transactions/:id/export-company
func (h *Handler) assignExportCompany(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	var req struct {
		ExportCompanyID uuid.UUID `json:"export_company_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.service.AssignExportCompany(c.Request.Context(), id, req.ExportCompanyID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

// recordPayment handles POST /api/v1/transactions/:id/payment
func (h *Handler) recordPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	var req struct {
		Status PaymentStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.service.RecordPaymentEvent(c.Request.Context(), id, req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

// recordShipment handles POST /api/v1/transactions/:id/shipment
func (h *Handler) recordShipment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	var req struct {
		Status ShipmentStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.service.RecordShipmentEvent(c.Request.Context(), id, req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

// =====================================================
// Currency Endpoints
// =====================================================

// listCurrencies handles GET /api/v1/currencies
func (h *Handler) listCurrencies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"currencies": h.service.SupportedCurrencies()})
}

// convertAmount handles GET /api/v1/currencies/convert
func (h *Handler) convertAmount(c *gin.Context) {
	amount, ok := h.getFloatQuery(c, "amount")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to are required"})
		return
	}

	result, err := h.service.ConvertAmount(c.Request.Context(), amount, from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// formatAmount handles GET /api/v1/currencies/format
func (h *Handler) formatAmount(c *gin.Context) {
	amount, ok := h.getFloatQuery(c, "amount")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	code := c.Query("currency")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "currency is required"})
		return
	}
	locale := c.DefaultQuery("locale", "en")

	formatted, err := h.service.FormatAmount(amount, code, locale)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"formatted": formatted, "currency": code, "locale": locale})
}

// =====================================================
// Dashboard Endpoints
// =====================================================

// getDashboardSummary handles GET /api/v1/dashboard/summary
func (h *Handler) getDashboardSummary(c *gin.Context) {
	displayCurrency := c.DefaultQuery("currency", "GHS")
	locale := c.DefaultQuery("locale", "en")

	summary, err := h.service.GetDashboardSummary(c.Request.Context(), displayCurrency, locale)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// getIntParam extracts an integer query parameter with a default
func (h *Handler) getIntParam(c *gin.Context, key string, defaultValue int) int {
	if value := c.Query(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
