package handler

import (
	"context"

	"github.com/coopelec/backend/internal/application/analytics"
	"github.com/coopelec/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// AnalyticsService is the part of analytics.Service served over HTTP
type AnalyticsService interface {
	ProrateBimestralSale(ctx context.Context, req analytics.ProrateRequest) (*analytics.ProrateResponse, error)
	GetBalance(ctx context.Context, q analytics.BalanceQuery) ([]analytics.BalanceEntryResponse, error)
	GetPurchaseBalance(ctx context.Context, q analytics.BalanceQuery) (*analytics.PurchaseBalanceResponse, error)
	GetSaleBalance(ctx context.Context, q analytics.BalanceQuery) (*analytics.SaleBalanceResponse, error)
	GetLossAnalysis(ctx context.Context, q analytics.BalanceQuery) (*analytics.LossAnalysisResponse, error)
	GetPeriodSummary(ctx context.Context, month string) (*analytics.PeriodSummaryResponse, error)
	GetTopLosses(ctx context.Context, month string, limit int) ([]analytics.TopLossResponse, error)
	GenerateAlerts(ctx context.Context, month string) (*analytics.AlertsResponse, error)
	GetHierarchy(ctx context.Context, purchasePointID int64) (*analytics.HierarchyResponse, error)
	GetAllHierarchySummaries(ctx context.Context) (*analytics.HierarchySummaryListResponse, error)
}

// TopLossesQuery bounds the ranking size. An absent limit means the default.
type TopLossesQuery struct {
	Limit *int `form:"limit" binding:"omitempty,min=1,max=100" example:"10"`
}

// AnalyticsHandler serves /analytics
type AnalyticsHandler struct {
	BaseHandler
	service AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(service AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// Routes returns the analytics route group
func (h *AnalyticsHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("analytics", "/analytics")
	g.POST("/prorate", h.Prorate)
	g.GET("/balance", h.GetBalance)
	g.GET("/balance/purchases", h.GetPurchaseBalance)
	g.GET("/balance/sales", h.GetSaleBalance)
	g.GET("/loss-analysis", h.GetLossAnalysis)
	g.GET("/summary/:period", h.GetPeriodSummary)
	g.GET("/top-losses/:period", h.GetTopLosses)
	g.POST("/alerts/:period", h.GenerateAlerts)

	hierarchy := g.Group("hierarchy", "/hierarchy")
	hierarchy.GET("/purchase-points", h.ListHierarchies)
	hierarchy.GET("/purchase-points/:id", h.GetHierarchy)
	return g
}

// Prorate splits a bimestral sale into its two months
//
// POST /analytics/prorate
func (h *AnalyticsHandler) Prorate(c *gin.Context) {
	var req analytics.ProrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindError(c, err)
		return
	}

	resp, err := h.service.ProrateBimestralSale(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetBalance reconciles purchases and sales per point and month
//
// GET /analytics/balance?purchase_point_id=&period_from=&period_to=
func (h *AnalyticsHandler) GetBalance(c *gin.Context) {
	q, ok := h.bindWindow(c)
	if !ok {
		return
	}

	entries, err := h.service.GetBalance(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, entries, len(entries))
}

// GetPurchaseBalance lists purchases with totals
//
// GET /analytics/balance/purchases
func (h *AnalyticsHandler) GetPurchaseBalance(c *gin.Context) {
	q, ok := h.bindWindow(c)
	if !ok {
		return
	}

	resp, err := h.service.GetPurchaseBalance(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, resp, resp.TotalRecords)
}

// GetSaleBalance lists sales with totals
//
// GET /analytics/balance/sales
func (h *AnalyticsHandler) GetSaleBalance(c *gin.Context) {
	q, ok := h.bindWindow(c)
	if !ok {
		return
	}

	resp, err := h.service.GetSaleBalance(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, resp, resp.TotalRecords)
}

// GetLossAnalysis returns balances with customer context and statistics
//
// GET /analytics/loss-analysis
func (h *AnalyticsHandler) GetLossAnalysis(c *gin.Context) {
	q, ok := h.bindWindow(c)
	if !ok {
		return
	}

	resp, err := h.service.GetLossAnalysis(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, resp, len(resp.Entries))
}

// GetPeriodSummary aggregates one month
//
// GET /analytics/summary/:period
func (h *AnalyticsHandler) GetPeriodSummary(c *gin.Context) {
	resp, err := h.service.GetPeriodSummary(c.Request.Context(), c.Param("period"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetTopLosses ranks the points of a month by loss percentage
//
// GET /analytics/top-losses/:period?limit=
func (h *AnalyticsHandler) GetTopLosses(c *gin.Context) {
	var q TopLossesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.HandleBindError(c, err)
		return
	}

	limit := 0
	if q.Limit != nil {
		limit = *q.Limit
	}

	ranking, err := h.service.GetTopLosses(c.Request.Context(), c.Param("period"), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, ranking, len(ranking))
}

// GenerateAlerts scans a month for loss alerts
//
// POST /analytics/alerts/:period
func (h *AnalyticsHandler) GenerateAlerts(c *gin.Context) {
	resp, err := h.service.GenerateAlerts(c.Request.Context(), c.Param("period"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, resp, resp.Stats.Total)
}

// ListHierarchies lists every purchase point with its counts
//
// GET /analytics/hierarchy/purchase-points
func (h *AnalyticsHandler) ListHierarchies(c *gin.Context) {
	resp, err := h.service.GetAllHierarchySummaries(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, resp, resp.TotalPurchasePoints)
}

// GetHierarchy returns the tree under one purchase point
//
// GET /analytics/hierarchy/purchase-points/:id
func (h *AnalyticsHandler) GetHierarchy(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		h.BadRequest(c, "purchase point id must be a positive integer")
		return
	}

	resp, err := h.service.GetHierarchy(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *AnalyticsHandler) bindWindow(c *gin.Context) (analytics.BalanceQuery, bool) {
	var q analytics.BalanceQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.HandleBindError(c, err)
		return q, false
	}
	return q, true
}
