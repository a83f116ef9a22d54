package inventory

import (
	"context"

	"github.com/jhoicas/stockflow/internal/application/dto"
	"github.com/jhoicas/stockflow/internal/domain/entity"
)

// TransferFromRequest adapta el request HTTP al caso de uso Transfer(ctx, actor, TransferInput).
func (uc *TransferUseCase) TransferFromRequest(ctx context.Context, actor entity.Actor, in dto.TransferRequest) (*dto.MovementResponse, error) {
	mov, err := uc.Transfer(ctx, actor, TransferInput{
		StockItemID:  in.StockItemID,
		FromHolderID: in.FromHolderID,
		ToHolderID:   in.ToHolderID,
		Quantity:     in.Quantity,
		Notes:        in.Notes,
	})
	if err != nil {
		return nil, err
	}
	return ToMovementResponse(mov), nil
}

// ToMovementResponse convierte un movimiento a su DTO.
func ToMovementResponse(m *entity.Movement) *dto.MovementResponse {
	if m == nil {
		return nil
	}
	return &dto.MovementResponse{
		ID:           m.ID,
		StockItemID:  m.StockItemID,
		FromHolderID: dto.HolderRef(m.FromHolderID),
		ToHolderID:   dto.HolderRef(m.ToHolderID),
		Quantity:     m.Quantity,
		MovedBy:      m.MovedBy,
		MovedAt:      m.MovedAt,
		Notes:        m.Notes,
	}
}

// ToStockItemResponse convierte un ítem a su DTO.
func ToStockItemResponse(i *entity.StockItem) *dto.StockItemResponse {
	if i == nil {
		return nil
	}
	return &dto.StockItemResponse{
		ID:           i.ID,
		Name:         i.Name,
		CategoryID:   i.CategoryID,
		SpecialtyID:  i.SpecialtyID,
		Price:        i.Price,
		Expiry:       i.Expiry,
		UniqueNumber: i.UniqueNumber,
		Notes:        i.Notes,
		Quantity:     i.Quantity,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	}
}

// ToStockItem convierte el body de alta a entidad.
func ToStockItem(in dto.CreateStockItemRequest) *entity.StockItem {
	return &entity.StockItem{
		Name:         in.Name,
		CategoryID:   in.CategoryID,
		SpecialtyID:  in.SpecialtyID,
		Price:        in.Price,
		Expiry:       in.Expiry,
		UniqueNumber: in.UniqueNumber,
		Notes:        in.Notes,
		Quantity:     in.Quantity,
	}
}

// ToAllocationResponses convierte asignaciones a su DTO.
func ToAllocationResponses(allocs []*entity.Allocation) []dto.AllocationResponse {
	out := make([]dto.AllocationResponse, 0, len(allocs))
	for _, a := range allocs {
		out = append(out, dto.AllocationResponse{
			StockItemID: a.StockItemID,
			HolderID:    dto.HolderRef(a.HolderID),
			Quantity:    a.Quantity,
			UpdatedAt:   a.UpdatedAt,
		})
	}
	return out
}
