package dto

import "time"

// CreateRequestItem línea de una solicitud: stock_item_id o item_name.
type CreateRequestItem struct {
	StockItemID string `json:"stock_item_id,omitempty"`
	ItemName    string `json:"item_name,omitempty"`
	Quantity    int64  `json:"quantity"`
	Notes       string `json:"notes,omitempty"`
}

// CreateRequestRequest body para POST /api/requests.
type CreateRequestRequest struct {
	Type          string              `json:"type"`
	Title         string              `json:"title"`
	Description   string              `json:"description,omitempty"`
	Items         []CreateRequestItem `json:"items"`
	AssignedTo    string              `json:"assigned_to,omitempty"`
	FinalAssignee string              `json:"final_assignee,omitempty"`
}

// DecisionRequest body para aprobar o rechazar.
type DecisionRequest struct {
	Notes string `json:"notes,omitempty"`
}

// RequestTransitionResponse entrada del historial.
type RequestTransitionResponse struct {
	From  string    `json:"from"`
	To    string    `json:"to"`
	Actor string    `json:"actor"`
	Notes string    `json:"notes,omitempty"`
	At    time.Time `json:"at"`
}

// RequestResponse salida de una solicitud.
type RequestResponse struct {
	ID                   string                      `json:"id"`
	Type                 string                      `json:"type"`
	Title                string                      `json:"title"`
	Description          string                      `json:"description,omitempty"`
	CreatedBy            string                      `json:"created_by"`
	Status               string                      `json:"status"`
	AssignedTo           string                      `json:"assigned_to"`
	FinalAssignee        string                      `json:"final_assignee,omitempty"`
	IntermediateApprover string                      `json:"intermediate_approver,omitempty"`
	DecisionNotes        string                      `json:"decision_notes,omitempty"`
	Items                []CreateRequestItem         `json:"items"`
	CreatedAt            time.Time                   `json:"created_at"`
	DecidedAt            *time.Time                  `json:"decided_at,omitempty"`
	History              []RequestTransitionResponse `json:"history,omitempty"`
}
