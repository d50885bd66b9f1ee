package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeSerializationFail   = "40001"
	codeNumericOutOfRange   = "22003"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool { return pgCode(err) == codeUniqueViolation }

// isForeignKeyViolation el producto referenciado no existe (o es de otra empresa).
func isForeignKeyViolation(err error) bool { return pgCode(err) == codeForeignKeyViolation }

// isSerializationFailure la transacción perdió una carrera y puede reintentarse.
func isSerializationFailure(err error) bool { return pgCode(err) == codeSerializationFail }

// isNumericOutOfRange el valor no cabe en la columna NUMERIC.
func isNumericOutOfRange(err error) bool { return pgCode(err) == codeNumericOutOfRange }
