package logger

import (
	"time"

	"go.uber.org/zap"
)

// Standard field names used across the pipeline.
const (
	FieldQueryID    = "query_id"
	FieldQueryKind  = "query_kind"
	FieldRunID      = "run_id"
	FieldWorker     = "worker"
	FieldPath       = "path"
	FieldModule     = "module"
	FieldError      = "error"
	FieldErrorCode  = "error_code"
	FieldCount      = "count"
	FieldNodes      = "nodes"
	FieldEdges      = "edges"
	FieldDurationMS = "duration_ms"
	FieldAddress    = "address"
)

func QueryID(id string) zap.Field { return zap.String(FieldQueryID, id) }

func Worker(i int) zap.Field { return zap.Int(FieldWorker, i) }

func Path(p string) zap.Field { return zap.String(FieldPath, p) }

func Err(err error) zap.Field { return zap.NamedError(FieldError, err) }

func Duration(d time.Duration) zap.Field {
	return zap.Int64(FieldDurationMS, d.Milliseconds())
}
