package dto

import (
	"time"

	"github.com/shopspring/decimal"

	pipelineapp "github.com/jhoicas/pipeline-api/internal/application/pipeline"
	"github.com/jhoicas/pipeline-api/internal/domain/entity"
	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
)

// StageResponse etapa del registro.
type StageResponse struct {
	Name       string `json:"name"`
	Color      string `json:"color"`
	Column     string `json:"column"`
	Production bool   `json:"production"`
	Position   int    `json:"position"`
}

// CustomerSummaryResponse datos del cliente en la tarjeta.
type CustomerSummaryResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	Postcode string `json:"postcode,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
}

// FinancialsResponse importes del trabajo (solo con canViewFinancials).
type FinancialsResponse struct {
	QuotePrice   decimal.Decimal `json:"quote_price"`
	AgreedPrice  decimal.Decimal `json:"agreed_price"`
	SoldPrice    decimal.Decimal `json:"sold_price"`
	Deposit1     decimal.Decimal `json:"deposit1"`
	Deposit1Paid bool            `json:"deposit1_paid"`
	Deposit2     decimal.Decimal `json:"deposit2"`
	Deposit2Paid bool            `json:"deposit2_paid"`
}

// AccessResponse decisión de permisos para el item.
type AccessResponse struct {
	IsVisible   bool `json:"is_visible"`
	IsEditable  bool `json:"is_editable"`
	CanDragDrop bool `json:"can_drag_drop"`
}

// ItemResponse tarjeta del pipeline.
type ItemResponse struct {
	ID           string                  `json:"id"`
	Kind         string                  `json:"kind"`
	EntityID     string                  `json:"entity_id"`
	Stage        string                  `json:"stage"`
	Column       string                  `json:"column"`
	DisplayName  string                  `json:"display_name"`
	Reference    string                  `json:"reference,omitempty"`
	Salesperson  string                  `json:"salesperson,omitempty"`
	JobType      string                  `json:"job_type,omitempty"`
	MeasureDate  *time.Time              `json:"measure_date,omitempty"`
	DeliveryDate *time.Time              `json:"delivery_date,omitempty"`
	Customer     CustomerSummaryResponse `json:"customer"`
	Financials   *FinancialsResponse     `json:"financials,omitempty"`
	Access       AccessResponse          `json:"access"`
}

// ColumnResponse columna del tablero.
type ColumnResponse struct {
	Stage StageResponse  `json:"stage"`
	Count int            `json:"count"`
	Items []ItemResponse `json:"items"`
}

// BoardResponse tablero completo.
type BoardResponse struct {
	Columns  []ColumnResponse `json:"columns"`
	Total    int              `json:"total"`
	LoadedAt time.Time        `json:"loaded_at"`
}

// ItemListResponse lista plana de items.
type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
	Total int            `json:"total"`
}

// FacetsResponse valores distintos para los filtros.
type FacetsResponse struct {
	Salespeople []string `json:"salespeople"`
	JobTypes    []string `json:"job_types"`
	Stages      []string `json:"stages"`
}

// MoveRequest un movimiento dentro de un lote de arrastre.
type MoveRequest struct {
	ItemID       string `json:"item_id"`
	TargetColumn string `json:"target_column"`
}

// MoveBatchRequest cuerpo de POST /api/pipeline/moves.
type MoveBatchRequest struct {
	Moves []MoveRequest `json:"moves"`
}

// ManualTransitionRequest cuerpo de POST /api/pipeline/items/:id/transition.
type ManualTransitionRequest struct {
	TargetColumn string `json:"target_column"`
	Reason       string `json:"reason"`
}

// MovedItemResponse item confirmado en un lote.
type MovedItemResponse struct {
	ItemID    string `json:"item_id"`
	FromStage string `json:"from_stage"`
	ToStage   string `json:"to_stage"`
}

// TransitionResponse resultado de un lote.
type TransitionResponse struct {
	BatchID string              `json:"batch_id"`
	State   string              `json:"state"`
	Moved   []MovedItemResponse `json:"moved"`
	Skipped []string            `json:"skipped"`
}

// BatchErrorResponse error de un lote revertido.
type BatchErrorResponse struct {
	ErrorResponse
	BatchID string   `json:"batch_id"`
	Failed  []string `json:"failed_items"`
}

// SendQuoteRequest cuerpo de POST /api/pipeline/items/:id/quotes.
type SendQuoteRequest struct {
	TemplateID string `json:"template_id"`
}

// SendQuoteResponse confirmación de envío.
type SendQuoteResponse struct {
	ItemID     string    `json:"item_id"`
	JobID      string    `json:"job_id"`
	TemplateID string    `json:"template_id"`
	SentAt     time.Time `json:"sent_at"`
}

// AuditListResponse registro de la sesión, más reciente primero.
type AuditListResponse struct {
	Entries []entity.AuditEntry `json:"entries"`
}

// JournalListResponse filas del diario de transiciones.
type JournalListResponse struct {
	Records []entity.TransitionRecord `json:"records"`
}

// NewStageResponse mapea la información de etapa.
func NewStageResponse(info pipeline.StageInfo) StageResponse {
	return StageResponse{
		Name:       string(info.Stage),
		Color:      info.Color,
		Column:     info.Column,
		Production: info.Production,
		Position:   info.Position,
	}
}

// NewItemResponse mapea un item visible. Los importes solo se incluyen si el item los trae.
func NewItemResponse(v pipelineapp.ItemView) ItemResponse {
	it := v.Item
	out := ItemResponse{
		ID:           it.ID,
		Kind:         string(it.Kind),
		EntityID:     it.EntityID,
		Stage:        string(it.Stage),
		Column:       pipeline.ColumnID(it.Stage),
		DisplayName:  it.DisplayName,
		Reference:    it.Reference,
		Salesperson:  it.Salesperson,
		JobType:      it.JobType,
		MeasureDate:  it.MeasureDate,
		DeliveryDate: it.DeliveryDate,
		Customer: CustomerSummaryResponse{
			ID:       it.Customer.ID,
			Name:     it.Customer.Name,
			Address:  it.Customer.Address,
			Postcode: it.Customer.Postcode,
			Phone:    it.Customer.Phone,
			Email:    it.Customer.Email,
		},
		Access: AccessResponse{
			IsVisible:   v.Access.IsVisible,
			IsEditable:  v.Access.IsEditable,
			CanDragDrop: v.Access.CanDragDrop && v.Access.IsEditable,
		},
	}
	if f := it.Financials; f != nil && v.Access.CanViewFinancials {
		out.Financials = &FinancialsResponse{
			QuotePrice:   f.QuotePrice,
			AgreedPrice:  f.AgreedPrice,
			SoldPrice:    f.SoldPrice,
			Deposit1:     f.Deposit1,
			Deposit1Paid: f.Deposit1Paid,
			Deposit2:     f.Deposit2,
			Deposit2Paid: f.Deposit2Paid,
		}
	}
	return out
}

// NewItemListResponse mapea una lista de items.
func NewItemListResponse(views []pipelineapp.ItemView) ItemListResponse {
	items := make([]ItemResponse, len(views))
	for i, v := range views {
		items[i] = NewItemResponse(v)
	}
	return ItemListResponse{Items: items, Total: len(items)}
}

// NewBoardResponse mapea el tablero.
func NewBoardResponse(b *pipelineapp.Board) BoardResponse {
	out := BoardResponse{Columns: make([]ColumnResponse, len(b.Columns)), Total: b.Total, LoadedAt: b.LoadedAt}
	for i, col := range b.Columns {
		items := make([]ItemResponse, len(col.Items))
		for j, v := range col.Items {
			items[j] = NewItemResponse(v)
		}
		out.Columns[i] = ColumnResponse{Stage: NewStageResponse(col.Info), Count: len(items), Items: items}
	}
	return out
}

// NewFacetsResponse mapea las facetas.
func NewFacetsResponse(f pipeline.FacetSet) FacetsResponse {
	stages := make([]string, len(f.Stages))
	for i, s := range f.Stages {
		stages[i] = string(s)
	}
	return FacetsResponse{
		Salespeople: nonNil(f.Salespeople),
		JobTypes:    nonNil(f.JobTypes),
		Stages:      stages,
	}
}

// NewTransitionResponse mapea el resultado de un lote.
func NewTransitionResponse(r *pipelineapp.TransitionResult) TransitionResponse {
	out := TransitionResponse{
		BatchID: r.BatchID,
		State:   string(r.State),
		Moved:   make([]MovedItemResponse, len(r.Moved)),
		Skipped: nonNil(r.Skipped),
	}
	for i, m := range r.Moved {
		out.Moved[i] = MovedItemResponse{ItemID: m.Item.ID, FromStage: string(m.From), ToStage: string(m.To)}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
