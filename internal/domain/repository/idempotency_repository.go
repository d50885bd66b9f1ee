package repository

import "context"

// IdempotencyRecord respuesta guardada para una llave de idempotencia.
// Pending indica que la primera solicitud aún no termina.
type IdempotencyRecord struct {
	Pending     bool   `json:"pending"`
	RequestHash string `json:"request_hash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// IdempotencyRepository reserva llaves y guarda la respuesta de la primera solicitud.
type IdempotencyRepository interface {
	// Reserve marca la llave como en curso. Si ya existía devuelve (registro, false, nil).
	Reserve(ctx context.Context, scope, key, requestHash string) (*IdempotencyRecord, bool, error)
	// Complete guarda la respuesta final de la llave reservada.
	Complete(ctx context.Context, scope, key string, record IdempotencyRecord) error
	// Release libera la llave para que un reintento pueda ejecutarse.
	Release(ctx context.Context, scope, key string) error
}
