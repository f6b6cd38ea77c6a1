package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// Pipeline: taxonomía de errores de transición.
	ErrReasonRequired    = errors.New("se requiere un motivo para la transición manual")
	ErrUnknownColumn     = errors.New("columna de destino desconocida")
	ErrUnknownEntityKind = errors.New("tipo de entidad desconocido")
	ErrBackend           = errors.New("fallo al comunicarse con el backend")
)
