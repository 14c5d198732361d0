package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pos/backend/internal/domain/shared"
)

func newTestCell(t *testing.T, qty int) *StockCell {
	t.Helper()
	cell, err := NewStockCell(uuid.New(), uuid.New(), uuid.New())
	require.NoError(t, err)
	cell.Quantity = qty
	return cell
}

func TestNewStockCell(t *testing.T) {
	t.Run("creates empty cell", func(t *testing.T) {
		cell, err := NewStockCell(uuid.New(), uuid.New(), uuid.New())
		require.NoError(t, err)
		assert.Equal(t, 0, cell.Quantity)
		assert.Equal(t, 1, cell.Version)
	})

	t.Run("rejects nil variant", func(t *testing.T) {
		_, err := NewStockCell(uuid.New(), uuid.Nil, uuid.New())
		assert.Error(t, err)
	})

	t.Run("rejects nil store", func(t *testing.T) {
		_, err := NewStockCell(uuid.New(), uuid.New(), uuid.Nil)
		assert.Error(t, err)
	})
}

func TestStockCell_Adjust(t *testing.T) {
	actor := uuid.New()

	t.Run("positive delta increases stock and records entry", func(t *testing.T) {
		cell := newTestCell(t, 5)

		entry, err := cell.Adjust(3, ReasonRestock, actor, "delivery", ClampToZero)
		require.NoError(t, err)
		assert.Equal(t, 8, cell.Quantity)
		assert.Equal(t, 3, entry.Change)
		assert.Equal(t, 8, entry.Resulting)
		assert.Equal(t, ReasonRestock, entry.Reason)
		assert.Equal(t, "delivery", entry.Note)
	})

	t.Run("negative delta within stock deducts fully", func(t *testing.T) {
		cell := newTestCell(t, 5)

		entry, err := cell.Adjust(-2, ReasonSale, actor, "", ClampToZero)
		require.NoError(t, err)
		assert.Equal(t, 3, cell.Quantity)
		assert.Equal(t, -2, entry.Change)
	})

	t.Run("clamps over-deduction at zero and notes the shortfall", func(t *testing.T) {
		cell := newTestCell(t, 2)

		entry, err := cell.Adjust(-5, ReasonSale, actor, "", ClampToZero)
		require.NoError(t, err)
		assert.Equal(t, 0, cell.Quantity)
		assert.Equal(t, -2, entry.Change, "only the available stock is deducted")
		assert.Equal(t, 0, entry.Resulting)
		assert.Contains(t, entry.Note, "clamped at zero, short by 3")
	})

	t.Run("strict policy rejects over-deduction without mutation", func(t *testing.T) {
		cell := newTestCell(t, 2)
		versionBefore := cell.Version

		_, err := cell.Adjust(-5, ReasonSale, actor, "", RejectBelowZero)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.Equal(t, 2, cell.Quantity)
		assert.Equal(t, versionBefore, cell.Version)
	})

	t.Run("rejects zero delta", func(t *testing.T) {
		cell := newTestCell(t, 2)

		_, err := cell.Adjust(0, ReasonSale, actor, "", ClampToZero)
		assert.Error(t, err)
	})

	t.Run("bumps version for optimistic locking", func(t *testing.T) {
		cell := newTestCell(t, 5)
		before := cell.Version

		_, err := cell.Adjust(-1, ReasonSale, actor, "", ClampToZero)
		require.NoError(t, err)
		assert.Equal(t, before+1, cell.Version)
	})

	t.Run("emits adjusted event", func(t *testing.T) {
		cell := newTestCell(t, 5)

		_, err := cell.Adjust(-1, ReasonSale, actor, "", ClampToZero)
		require.NoError(t, err)

		events := cell.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeStockAdjusted, events[0].EventType())
	})
}

func TestStockCell_SetAbsolute(t *testing.T) {
	actor := uuid.New()

	t.Run("sets counted quantity and returns delta", func(t *testing.T) {
		cell := newTestCell(t, 10)

		entry, delta, err := cell.SetAbsolute(7, ReasonManualCorrection, actor, "cycle count")
		require.NoError(t, err)
		assert.Equal(t, 7, cell.Quantity)
		assert.Equal(t, -3, delta)
		assert.Equal(t, -3, entry.Change)
		assert.Equal(t, 7, entry.Resulting)
	})

	t.Run("rejects negative absolute quantity", func(t *testing.T) {
		cell := newTestCell(t, 10)

		_, _, err := cell.SetAbsolute(-1, ReasonManualCorrection, actor, "")
		assert.Error(t, err)
		assert.Equal(t, 10, cell.Quantity)
	})
}

func TestStockCell_Transfer(t *testing.T) {
	actor := uuid.New()
	dest := uuid.New()

	t.Run("transfer out deducts and records destination", func(t *testing.T) {
		cell := newTestCell(t, 10)

		entry, err := cell.TransferOut(4, actor, dest)
		require.NoError(t, err)
		assert.Equal(t, 6, cell.Quantity)
		assert.Equal(t, -4, entry.Change)
		assert.Equal(t, ReasonTransfer, entry.Reason)
		assert.Contains(t, entry.Note, dest.String())
	})

	t.Run("transfer out never clamps", func(t *testing.T) {
		cell := newTestCell(t, 3)

		_, err := cell.TransferOut(4, actor, dest)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.Equal(t, 3, cell.Quantity, "failed transfer must not mutate")
	})

	t.Run("transfer in adds stock", func(t *testing.T) {
		cell := newTestCell(t, 3)
		source := uuid.New()

		entry, err := cell.TransferIn(4, actor, source)
		require.NoError(t, err)
		assert.Equal(t, 7, cell.Quantity)
		assert.Equal(t, 4, entry.Change)
		assert.Contains(t, entry.Note, source.String())
	})

	t.Run("rejects non-positive quantities", func(t *testing.T) {
		cell := newTestCell(t, 3)

		_, err := cell.TransferOut(0, actor, dest)
		assert.Error(t, err)
		_, err = cell.TransferIn(-1, actor, dest)
		assert.Error(t, err)
	})
}

func TestStockHistoryEntry_Validation(t *testing.T) {
	t.Run("rejects negative resulting stock", func(t *testing.T) {
		_, err := NewStockHistoryEntry(uuid.New(), uuid.New(), uuid.New(), uuid.New(), -5, -1, ReasonSale, uuid.New(), "")
		assert.Error(t, err)
	})

	t.Run("rejects unknown reason", func(t *testing.T) {
		_, err := NewStockHistoryEntry(uuid.New(), uuid.New(), uuid.New(), uuid.New(), 1, 1, HistoryReason("BOGUS"), uuid.New(), "")
		assert.Error(t, err)
	})

	t.Run("rejects missing actor", func(t *testing.T) {
		_, err := NewStockHistoryEntry(uuid.New(), uuid.New(), uuid.New(), uuid.New(), 1, 1, ReasonRestock, uuid.Nil, "")
		assert.Error(t, err)
	})
}

func TestHistoryReason_IsValid(t *testing.T) {
	for _, r := range []HistoryReason{ReasonSale, ReasonReturn, ReasonRestock, ReasonTransfer, ReasonManualCorrection} {
		assert.True(t, r.IsValid(), r.String())
	}
	assert.False(t, HistoryReason("UNKNOWN").IsValid())
}
