package store

import (
	engineerrors "github.com/codeintel/engine/internal/errors"
)

// StoreOpenError wraps a failure to open or connect to the database file.
func StoreOpenError(message string, cause error) *engineerrors.EngineError {
	return engineerrors.StoreError(message, cause)
}

// SchemaMigrationError wraps a failure applying or reading schema DDL.
// Per spec.md §4.A this is fatal: the store cannot be trusted to serve
// reads or writes once schema application has failed.
func SchemaMigrationError(message string, cause error) *engineerrors.EngineError {
	return engineerrors.New(engineerrors.ErrCodeSchemaMigration, message, cause)
}

// SerializeEmbeddingError wraps a failure encoding or decoding a vector to
// its on-disk representation.
func SerializeEmbeddingError(message string, cause error) *engineerrors.EngineError {
	return engineerrors.New(engineerrors.ErrCodeSerializeEmbedding, message, cause)
}

// FtsQuerySyntaxError wraps a malformed FTS5 MATCH query. Per spec.md §4.A
// this is non-fatal: callers should treat it as an empty result set with a
// flag, not abort the surrounding operation.
func FtsQuerySyntaxError(message string, cause error) *engineerrors.EngineError {
	return engineerrors.New(engineerrors.ErrCodeFtsQuerySyntax, message, cause)
}
