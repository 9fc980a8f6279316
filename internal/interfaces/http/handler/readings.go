package handler

import (
	"context"

	"github.com/coopelec/backend/internal/application/ingest"
	"github.com/coopelec/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// IngestService stores readings delivered by the ETL
type IngestService interface {
	UpsertPurchases(ctx context.Context, req ingest.PurchaseBatchRequest) (*ingest.IngestResponse, error)
	InsertSales(ctx context.Context, req ingest.SaleBatchRequest) (*ingest.IngestResponse, error)
}

// ReadingsHandler serves /readings
type ReadingsHandler struct {
	BaseHandler
	service IngestService
}

// NewReadingsHandler creates a new ReadingsHandler
func NewReadingsHandler(service IngestService) *ReadingsHandler {
	return &ReadingsHandler{service: service}
}

// Routes returns the readings route group
func (h *ReadingsHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("readings", "/readings")
	g.PUT("/purchases", h.UpsertPurchases)
	g.POST("/sales", h.InsertSales)
	return g
}

// UpsertPurchases stores purchase readings, replacing an existing reading
// of the same point and month
//
// PUT /readings/purchases
func (h *ReadingsHandler) UpsertPurchases(c *gin.Context) {
	var req ingest.PurchaseBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindError(c, err)
		return
	}

	resp, err := h.service.UpsertPurchases(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// InsertSales stores monthly and bimestral sale readings
//
// POST /readings/sales
func (h *ReadingsHandler) InsertSales(c *gin.Context) {
	var req ingest.SaleBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleBindError(c, err)
		return
	}

	resp, err := h.service.InsertSales(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}
