package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"bottleworks/internal/core/apperror"
	"bottleworks/internal/core/id"
	"bottleworks/internal/domain/production"
	"bottleworks/internal/infrastructure/http/v1/dto"
	"bottleworks/internal/infrastructure/metrics"
)

// ProductionHandler serves the batch lifecycle endpoints.
type ProductionHandler struct {
	*BaseHandler
	service *production.Service
}

// NewProductionHandler creates a new production handler.
func NewProductionHandler(service *production.Service) *ProductionHandler {
	return &ProductionHandler{
		BaseHandler: NewBaseHandler(),
		service:     service,
	}
}

// Plan handles POST /batches.
func (h *ProductionHandler) Plan(c *gin.Context) {
	var req dto.PlanBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id").WithDetail("field", "productId"))
		return
	}

	items := make([]production.PlannedItem, 0, len(req.Items))
	for i, item := range req.Items {
		bottleTypeID, err := id.Parse(item.BottleTypeID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid bottle type id").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1))
			return
		}
		items = append(items, production.PlannedItem{
			BottleTypeID: bottleTypeID,
			Quantity:     item.Quantity,
		})
	}

	batch, err := h.service.Plan(c.Request.Context(), productID, items)
	if err != nil {
		h.Error(c, err)
		return
	}

	metrics.BatchesPlannedTotal.Inc()
	h.Created(c, dto.FromBatch(batch))
}

// Start handles POST /batches/:id/start.
func (h *ProductionHandler) Start(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	batch, err := h.service.Start(c.Request.Context(), batchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBatch(batch))
}

// Complete handles POST /batches/:id/complete.
func (h *ProductionHandler) Complete(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.CompleteBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	items := make([]production.ActualItem, 0, len(req.Items))
	for i, item := range req.Items {
		bottleTypeID, err := id.Parse(item.BottleTypeID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid bottle type id").
				WithDetail("field", "items").
				WithDetail("lineNo", i+1))
			return
		}
		items = append(items, production.ActualItem{
			BottleTypeID: bottleTypeID,
			Quantity:     item.Quantity,
			Defects:      item.Defects,
		})
	}

	materials := make([]production.MaterialUsage, 0, len(req.Materials))
	for i, usage := range req.Materials {
		materialID, err := id.Parse(usage.MaterialID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid material id").
				WithDetail("field", "materials").
				WithDetail("lineNo", i+1))
			return
		}
		materials = append(materials, production.MaterialUsage{
			MaterialID:   materialID,
			QuantityUsed: usage.QuantityUsed,
		})
	}

	quality := production.Quality{Grade: req.Quality.Grade, Notes: req.Quality.Notes}

	start := time.Now()
	batch, err := h.service.Complete(c.Request.Context(), batchID, items, materials, quality)
	if err != nil {
		h.recordRejection(err)
		h.Error(c, err)
		return
	}

	metrics.BatchCompletionLatency.Observe(time.Since(start).Seconds())
	metrics.BatchesCompletedTotal.Inc()
	h.OK(c, dto.FromBatch(batch))
}

// Cancel handles POST /batches/:id/cancel.
func (h *ProductionHandler) Cancel(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.CancelBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}

	batch, err := h.service.Cancel(c.Request.Context(), batchID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}

	metrics.BatchesCancelledTotal.Inc()
	h.OK(c, dto.FromBatch(batch))
}

// Get handles GET /batches/:id.
func (h *ProductionHandler) Get(c *gin.Context) {
	batchID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	batch, err := h.service.Get(c.Request.Context(), batchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBatch(batch))
}

// List handles GET /batches.
func (h *ProductionHandler) List(c *gin.Context) {
	var query dto.ListBatchesQuery
	if !h.BindQuery(c, &query) {
		return
	}

	filter := production.ListFilter{
		Limit:  query.Limit,
		Offset: query.Offset,
	}

	if query.Status != "" {
		status := production.Status(query.Status)
		switch status {
		case production.StatusPlanned, production.StatusInProgress,
			production.StatusCompleted, production.StatusCancelled:
			filter.Status = &status
		default:
			h.Error(c, apperror.NewValidation("unknown batch status").WithDetail("status", query.Status))
			return
		}
	}

	if query.ProductID != "" {
		productID, err := id.Parse(query.ProductID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid product id").WithDetail("field", "productId"))
			return
		}
		filter.ProductID = &productID
	}

	batches, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := dto.FromBatches(batches)
	h.RespondList(c, items, len(items))
}
