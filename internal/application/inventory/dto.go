package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/pos/backend/internal/domain/inventory"
)

// AdjustStockRequest applies a signed delta to one variant-store cell
type AdjustStockRequest struct {
	VariantID uuid.UUID               `json:"variant_id" binding:"required"`
	StoreID   uuid.UUID               `json:"store_id" binding:"required"`
	Delta     int                     `json:"delta" binding:"required"`
	Reason    inventory.HistoryReason `json:"reason" binding:"required"`
	Note      string                  `json:"note" binding:"max=500"`
}

// SetStockRequest sets a cell to an exact counted quantity
type SetStockRequest struct {
	VariantID uuid.UUID `json:"variant_id" binding:"required"`
	StoreID   uuid.UUID `json:"store_id" binding:"required"`
	NewTotal  int       `json:"new_total" binding:"min=0"`
	Note      string    `json:"note" binding:"max=500"`
}

// TransferStockRequest moves quantity between two stores
type TransferStockRequest struct {
	VariantID     uuid.UUID `json:"variant_id" binding:"required"`
	SourceStoreID uuid.UUID `json:"source_store_id" binding:"required"`
	DestStoreID   uuid.UUID `json:"dest_store_id" binding:"required"`
	Quantity      int       `json:"quantity" binding:"required,min=1"`
}

// StockCellResponse is the read model for one variant-store cell
type StockCellResponse struct {
	ID        uuid.UUID `json:"id"`
	VariantID uuid.UUID `json:"variant_id"`
	StoreID   uuid.UUID `json:"store_id"`
	Quantity  int       `json:"quantity"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToStockCellResponse converts a stock cell to its response DTO
func ToStockCellResponse(cell *inventory.StockCell) StockCellResponse {
	return StockCellResponse{
		ID:        cell.ID,
		VariantID: cell.VariantID,
		StoreID:   cell.StoreID,
		Quantity:  cell.Quantity,
		Version:   cell.GetVersion(),
		UpdatedAt: cell.UpdatedAt,
	}
}

// AdjustStockResponse reports the outcome of an adjustment
type AdjustStockResponse struct {
	Cell    StockCellResponse    `json:"cell"`
	Applied int                  `json:"applied"`
	Entry   StockHistoryResponse `json:"entry"`
}

// StockHistoryResponse is the read model for one ledger entry
type StockHistoryResponse struct {
	ID         uuid.UUID               `json:"id"`
	VariantID  uuid.UUID               `json:"variant_id"`
	StoreID    uuid.UUID               `json:"store_id"`
	Change     int                     `json:"change"`
	Resulting  int                     `json:"resulting"`
	Reason     inventory.HistoryReason `json:"reason"`
	ActorID    uuid.UUID               `json:"actor_id"`
	Note       string                  `json:"note,omitempty"`
	RecordedAt time.Time               `json:"recorded_at"`
}

// ToStockHistoryResponse converts a ledger entry to its response DTO
func ToStockHistoryResponse(entry *inventory.StockHistoryEntry) StockHistoryResponse {
	return StockHistoryResponse{
		ID:         entry.ID,
		VariantID:  entry.VariantID,
		StoreID:    entry.StoreID,
		Change:     entry.Change,
		Resulting:  entry.Resulting,
		Reason:     entry.Reason,
		ActorID:    entry.ActorID,
		Note:       entry.Note,
		RecordedAt: entry.RecordedAt,
	}
}

// TransferStockResponse reports both sides of a completed transfer
type TransferStockResponse struct {
	Source StockCellResponse `json:"source"`
	Dest   StockCellResponse `json:"dest"`
}
