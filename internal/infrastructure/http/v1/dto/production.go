package dto

import (
	"time"

	"bottleworks/internal/core/types"
	"bottleworks/internal/domain/production"
)

// --- Requests ---

// PlanBatchRequest plans a new production batch.
type PlanBatchRequest struct {
	ProductID string             `json:"productId" binding:"required"`
	Items     []PlannedItemInput `json:"items" binding:"required"`
}

// PlannedItemInput is one target line of a batch plan.
type PlannedItemInput struct {
	BottleTypeID string         `json:"bottleTypeId" binding:"required"`
	Quantity     types.Quantity `json:"quantity" binding:"required"`
}

// CompleteBatchRequest reports actual production results.
type CompleteBatchRequest struct {
	Items     []ActualItemInput    `json:"items" binding:"required"`
	Materials []MaterialUsageInput `json:"materials"`
	Quality   QualityInput         `json:"quality"`
}

// ActualItemInput is one produced line.
type ActualItemInput struct {
	BottleTypeID string         `json:"bottleTypeId" binding:"required"`
	Quantity     types.Quantity `json:"quantity" binding:"required"`
	Defects      types.Quantity `json:"defects"`
}

// MaterialUsageInput is one raw-material consumption line.
type MaterialUsageInput struct {
	MaterialID   string         `json:"materialId" binding:"required"`
	QuantityUsed types.Quantity `json:"quantityUsed" binding:"required"`
}

// QualityInput carries the completion quality fields.
type QualityInput struct {
	Grade string `json:"grade"`
	Notes string `json:"notes"`
}

// CancelBatchRequest cancels a batch with a reason.
type CancelBatchRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ListBatchesQuery filters the batch listing.
type ListBatchesQuery struct {
	Status    string `form:"status"`
	ProductID string `form:"productId"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}

// --- Responses ---

// BatchResponse mirrors a production batch with its lines.
type BatchResponse struct {
	ID        string `json:"id"`
	HumanID   string `json:"humanId"`
	ProductID string `json:"productId"`
	Status    string `json:"status"`

	PlannedItems    []PlannedItemResponse   `json:"plannedItems"`
	ActualItems     []ActualItemResponse    `json:"actualItems,omitempty"`
	ActualMaterials []MaterialUsageResponse `json:"actualMaterials,omitempty"`

	Quality *QualityResponse `json:"quality,omitempty"`

	PlannedAt time.Time `json:"plannedAt"`
	PlannedBy string    `json:"plannedBy,omitempty"`

	StartedAt *time.Time `json:"startedAt,omitempty"`
	StartedBy string     `json:"startedBy,omitempty"`

	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CompletedBy string     `json:"completedBy,omitempty"`

	CancelledAt  *time.Time `json:"cancelledAt,omitempty"`
	CancelledBy  string     `json:"cancelledBy,omitempty"`
	CancelReason string     `json:"cancelReason,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PlannedItemResponse is one target line.
type PlannedItemResponse struct {
	BottleTypeID string         `json:"bottleTypeId"`
	Quantity     types.Quantity `json:"quantity"`
}

// ActualItemResponse is one produced line.
type ActualItemResponse struct {
	BottleTypeID string         `json:"bottleTypeId"`
	Quantity     types.Quantity `json:"quantity"`
	Defects      types.Quantity `json:"defects"`
}

// MaterialUsageResponse is one consumption line.
type MaterialUsageResponse struct {
	MaterialID   string         `json:"materialId"`
	QuantityUsed types.Quantity `json:"quantityUsed"`
}

// QualityResponse carries quality fields.
type QualityResponse struct {
	Grade string `json:"grade,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// FromBatch creates BatchResponse from the domain model.
func FromBatch(b *production.Batch) BatchResponse {
	resp := BatchResponse{
		ID:           b.ID.String(),
		HumanID:      b.HumanID,
		ProductID:    b.ProductID.String(),
		Status:       string(b.Status),
		PlannedAt:    b.PlannedAt,
		PlannedBy:    b.PlannedBy,
		StartedAt:    b.StartedAt,
		StartedBy:    b.StartedBy,
		CompletedAt:  b.CompletedAt,
		CompletedBy:  b.CompletedBy,
		CancelledAt:  b.CancelledAt,
		CancelledBy:  b.CancelledBy,
		CancelReason: b.CancelReason,
		Version:      b.Version,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}

	resp.PlannedItems = make([]PlannedItemResponse, 0, len(b.PlannedItems))
	for _, item := range b.PlannedItems {
		resp.PlannedItems = append(resp.PlannedItems, PlannedItemResponse{
			BottleTypeID: item.BottleTypeID.String(),
			Quantity:     item.Quantity,
		})
	}

	for _, item := range b.ActualItems {
		resp.ActualItems = append(resp.ActualItems, ActualItemResponse{
			BottleTypeID: item.BottleTypeID.String(),
			Quantity:     item.Quantity,
			Defects:      item.Defects,
		})
	}

	for _, usage := range b.ActualMaterials {
		resp.ActualMaterials = append(resp.ActualMaterials, MaterialUsageResponse{
			MaterialID:   usage.MaterialID.String(),
			QuantityUsed: usage.QuantityUsed,
		})
	}

	if b.Quality.Grade != "" || b.Quality.Notes != "" {
		resp.Quality = &QualityResponse{Grade: b.Quality.Grade, Notes: b.Quality.Notes}
	}

	return resp
}

// FromBatches maps a slice of batches.
func FromBatches(batches []*production.Batch) []BatchResponse {
	out := make([]BatchResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, FromBatch(b))
	}
	return out
}
