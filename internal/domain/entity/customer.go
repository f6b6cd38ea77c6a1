package entity

import "time"

// Métodos de contacto preferidos del cliente.
const (
	ContactPhone = "phone"
	ContactEmail = "email"
	ContactSMS   = "sms"
)

// Customer representa un lead o cliente del contratista.
// Stage solo se usa cuando el cliente no tiene trabajos ni proyectos asociados.
type Customer struct {
	ID                     string
	Name                   string
	Address                string
	Postcode               string
	Phone                  string
	Email                  string
	PreferredContactMethod string
	MarketingOptIn         bool
	MeasureDate            *time.Time
	Stage                  string
	Notes                  string
	Salesperson            string // nombre o email libre; se usa para la propiedad del registro
	CreatedBy              string
	CreatedAt              time.Time
	UpdatedBy              string
	UpdatedAt              time.Time
}
