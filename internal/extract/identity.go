package extract

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/codeintel/engine/internal/store"
)

// hash16 truncates a sha256 digest of the joined inputs to its first 8
// bytes (16 hex characters), matching the identity invariant's
// /^[a-f0-9]{16}$/ contract.
func hash16(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}

// SymbolID computes a symbol's canonical id from its qualified name,
// signature, and language. Two symbols with identical inputs — including
// across branches — produce the same id; this is the deduplication key.
func SymbolID(qualifiedName, signature, language string) string {
	return hash16(qualifiedName, signature, language)
}

// ContentHash computes the content-addressed hash used to detect whether a
// symbol's body changed between extractions.
func ContentHash(content string) string {
	return hash16(content)
}

// EdgeID computes an AST-inferred edge's id. The source doesn't fully
// specify this; hashing the endpoints, type, and origin keeps the id
// deterministic and collision-resistant for the same edge discovered twice.
func EdgeID(sourceID, targetID string, typ store.EdgeType, origin store.EdgeOrigin) string {
	return hash16(sourceID, targetID, string(typ), string(origin))
}
