package workflow

import (
	"github.com/jhoicas/stockflow/internal/application/dto"
	"github.com/jhoicas/stockflow/internal/domain/entity"
)

// FromCreateRequest convierte el body HTTP a la entrada del caso de uso.
func FromCreateRequest(in dto.CreateRequestRequest) CreateRequestInput {
	items := make([]entity.RequestItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, entity.RequestItem{
			StockItemID: it.StockItemID,
			ItemName:    it.ItemName,
			Quantity:    it.Quantity,
			Notes:       it.Notes,
		})
	}
	return CreateRequestInput{
		Type:          entity.RequestType(in.Type),
		Title:         in.Title,
		Description:   in.Description,
		Items:         items,
		AssignedTo:    in.AssignedTo,
		FinalAssignee: in.FinalAssignee,
	}
}

// ToRequestResponse convierte una solicitud a su DTO.
func ToRequestResponse(r *entity.Request) *dto.RequestResponse {
	if r == nil {
		return nil
	}
	out := &dto.RequestResponse{
		ID:                   r.ID,
		Type:                 string(r.Type),
		Title:                r.Title,
		Description:          r.Description,
		CreatedBy:            r.CreatedBy,
		Status:               string(r.Status),
		AssignedTo:           r.AssignedTo,
		FinalAssignee:        r.FinalAssignee,
		IntermediateApprover: r.IntermediateApprover,
		DecisionNotes:        r.DecisionNotes,
		CreatedAt:            r.CreatedAt,
		DecidedAt:            r.DecidedAt,
		Items:                make([]dto.CreateRequestItem, 0, len(r.Items)),
	}
	for _, it := range r.Items {
		out.Items = append(out.Items, dto.CreateRequestItem{
			StockItemID: it.StockItemID,
			ItemName:    it.ItemName,
			Quantity:    it.Quantity,
			Notes:       it.Notes,
		})
	}
	for _, t := range r.History {
		out.History = append(out.History, dto.RequestTransitionResponse{
			From:  string(t.From),
			To:    string(t.To),
			Actor: t.Actor,
			Notes: t.Notes,
			At:    t.At,
		})
	}
	return out
}
