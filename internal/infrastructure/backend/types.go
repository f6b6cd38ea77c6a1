package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/pipeline-api/internal/domain/entity"
	"github.com/jhoicas/pipeline-api/internal/domain/pipeline"
)

// ── Tipos del protocolo REST del backend ─────────────────────────────────────

// flexID acepta ids numéricos o de texto.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id inválido %s: %w", b, err)
	}
	*f = flexID(n.String())
	return nil
}

// flexTime acepta RFC3339, fecha sola (2006-01-02), cadena vacía o null.
type flexTime struct {
	t *time.Time
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func (f *flexTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		f.t = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("fecha inválida %s: %w", b, err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		f.t = nil
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			f.t = &t
			return nil
		}
	}
	return fmt.Errorf("fecha inválida %q", s)
}

func (f flexTime) MarshalJSON() ([]byte, error) {
	if f.t == nil {
		return []byte("null"), nil
	}
	return json.Marshal(f.t.Format(time.RFC3339))
}

func timeOf(f flexTime) *time.Time { return f.t }

func flexOf(t *time.Time) flexTime { return flexTime{t: t} }

// flexInt acepta números o números en texto.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("entero inválido %s: %w", b, err)
	}
	*f = flexInt(n)
	return nil
}

func decimalOf(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

type customerWire struct {
	ID                     flexID   `json:"id"`
	Name                   string   `json:"name"`
	Address                string   `json:"address"`
	Postcode               string   `json:"postcode"`
	Phone                  string   `json:"phone"`
	Email                  string   `json:"email"`
	PreferredContactMethod string   `json:"preferredContactMethod"`
	MarketingOptIn         bool     `json:"marketingOptIn"`
	MeasureDate            flexTime `json:"measureDate"`
	Stage                  string   `json:"stage"`
	Notes                  string   `json:"notes"`
	Salesperson            string   `json:"salesperson"`
	CreatedBy              string   `json:"createdBy"`
	CreatedAt              flexTime `json:"createdAt"`
	UpdatedBy              string   `json:"updatedBy"`
	UpdatedAt              flexTime `json:"updatedAt"`
}

func (w customerWire) toEntity() entity.Customer {
	c := entity.Customer{
		ID:                     string(w.ID),
		Name:                   w.Name,
		Address:                w.Address,
		Postcode:               w.Postcode,
		Phone:                  w.Phone,
		Email:                  w.Email,
		PreferredContactMethod: w.PreferredContactMethod,
		MarketingOptIn:         w.MarketingOptIn,
		MeasureDate:            timeOf(w.MeasureDate),
		Stage:                  w.Stage,
		Notes:                  w.Notes,
		Salesperson:            w.Salesperson,
		CreatedBy:              w.CreatedBy,
		UpdatedBy:              w.UpdatedBy,
	}
	if t := timeOf(w.CreatedAt); t != nil {
		c.CreatedAt = *t
	}
	if t := timeOf(w.UpdatedAt); t != nil {
		c.UpdatedAt = *t
	}
	return c
}

type jobWire struct {
	ID             flexID              `json:"id"`
	CustomerID     flexID              `json:"customerId"`
	Reference      string              `json:"reference"`
	Type           string              `json:"jobType"`
	Stage          string              `json:"stage"`
	QuotePrice     decimal.NullDecimal `json:"quotePrice"`
	AgreedPrice    decimal.NullDecimal `json:"agreedPrice"`
	SoldPrice      decimal.NullDecimal `json:"soldPrice"`
	Deposit1       decimal.NullDecimal `json:"deposit1"`
	Deposit1Paid   bool                `json:"deposit1Paid"`
	Deposit2       decimal.NullDecimal `json:"deposit2"`
	Deposit2Paid   bool                `json:"deposit2Paid"`
	MeasureDate    flexTime            `json:"measureDate"`
	DeliveryDate   flexTime            `json:"deliveryDate"`
	CompletionDate flexTime            `json:"completionDate"`
	Salesperson    string              `json:"salesperson"`
	CreatedBy      string              `json:"createdBy"`
}

func (w jobWire) toEntity() entity.Job {
	return entity.Job{
		ID:         string(w.ID),
		CustomerID: string(w.CustomerID),
		Reference:  w.Reference,
		Type:       w.Type,
		Stage:      w.Stage,
		Financials: entity.JobFinancials{
			QuotePrice:   decimalOf(w.QuotePrice),
			AgreedPrice:  decimalOf(w.AgreedPrice),
			SoldPrice:    decimalOf(w.SoldPrice),
			Deposit1:     decimalOf(w.Deposit1),
			Deposit1Paid: w.Deposit1Paid,
			Deposit2:     decimalOf(w.Deposit2),
			Deposit2Paid: w.Deposit2Paid,
		},
		MeasureDate:    timeOf(w.MeasureDate),
		DeliveryDate:   timeOf(w.DeliveryDate),
		CompletionDate: timeOf(w.CompletionDate),
		Salesperson:    w.Salesperson,
		CreatedBy:      w.CreatedBy,
	}
}

type projectWire struct {
	ID          flexID   `json:"id"`
	CustomerID  flexID   `json:"customerId"`
	Name        string   `json:"name"`
	Type        string   `json:"projectType"`
	Stage       string   `json:"stage"`
	MeasureDate flexTime `json:"measureDate"`
	Notes       string   `json:"notes"`
	FormCount   flexInt  `json:"formCount"`
	Salesperson string   `json:"salesperson"`
	CreatedBy   string   `json:"createdBy"`
}

func decodeProject(raw json.RawMessage) (entity.Project, error) {
	var w projectWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return entity.Project{}, err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(raw, &all); err != nil {
		return entity.Project{}, err
	}
	return entity.Project{
		ID:          string(w.ID),
		CustomerID:  string(w.CustomerID),
		Name:        w.Name,
		Type:        w.Type,
		Stage:       w.Stage,
		MeasureDate: timeOf(w.MeasureDate),
		Notes:       w.Notes,
		FormCount:   int(w.FormCount),
		Salesperson: w.Salesperson,
		CreatedBy:   w.CreatedBy,
		Raw:         all,
	}, nil
}

// encodeProject cuerpo completo del PUT. Si el proyecto viene del backend se reenvía su
// objeto original con solo "stage" sustituido; los tipos y formatos de cada clave no cambian.
func encodeProject(p entity.Project) ([]byte, error) {
	stage, err := json.Marshal(p.Stage)
	if err != nil {
		return nil, err
	}
	if p.Raw != nil {
		body := make(map[string]json.RawMessage, len(p.Raw)+1)
		for k, v := range p.Raw {
			body[k] = v
		}
		body["stage"] = stage
		return json.Marshal(body)
	}
	return json.Marshal(map[string]any{
		"id":          p.ID,
		"customerId":  p.CustomerID,
		"name":        p.Name,
		"projectType": p.Type,
		"stage":       p.Stage,
		"measureDate": flexOf(p.MeasureDate),
		"notes":       p.Notes,
		"formCount":   p.FormCount,
		"salesperson": p.Salesperson,
		"createdBy":   p.CreatedBy,
	})
}

// feedEntryWire registro del feed combinado. El tipo llega en "type" o "kind".
type feedEntryWire struct {
	Type     string          `json:"type"`
	Kind     string          `json:"kind"`
	Customer *customerWire   `json:"customer"`
	Job      *jobWire        `json:"job"`
	Project  json.RawMessage `json:"project"`
}

func (w feedEntryWire) toEntry() (pipeline.FeedEntry, error) {
	var e pipeline.FeedEntry
	kind := strings.ToLower(strings.TrimSpace(w.Type))
	if kind == "" {
		kind = strings.ToLower(strings.TrimSpace(w.Kind))
	}
	e.Kind = pipeline.Kind(kind)
	if !e.Kind.Valid() {
		e.Kind = ""
	}
	if w.Customer != nil {
		c := w.Customer.toEntity()
		e.Customer = &c
	}
	if w.Job != nil {
		j := w.Job.toEntity()
		e.Job = &j
	}
	if len(w.Project) > 0 && string(w.Project) != "null" {
		p, err := decodeProject(w.Project)
		if err != nil {
			return e, fmt.Errorf("proyecto: %w", err)
		}
		e.Project = &p
	}
	return e, nil
}

type stagePatchWire struct {
	Stage     string `json:"stage"`
	Reason    string `json:"reason"`
	UpdatedBy string `json:"updatedBy"`
}

type invoiceWire struct {
	JobID      string `json:"jobId"`
	TemplateID string `json:"templateId"`
}

type quoteWire struct {
	TemplateID string `json:"templateId"`
}

// decodeList acepta un array JSON o un objeto envoltorio {"data": [...]} / {"items": [...]}.
func decodeList(body []byte) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	var list []json.RawMessage
	if body[0] == '[' {
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	var env struct {
		Data  []json.RawMessage `json:"data"`
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	if env.Data != nil {
		return env.Data, nil
	}
	return env.Items, nil
}
