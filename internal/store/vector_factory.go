package store

import "fmt"

// VectorBackend selects the VectorRepo implementation.
type VectorBackend string

const (
	// VectorBackendHNSW uses an in-memory github.com/coder/hnsw graph
	// (default, approximate nearest neighbor, persisted to a sidecar file).
	VectorBackendHNSW VectorBackend = "hnsw"

	// VectorBackendScan uses a pure cosine-scan over the vectors table
	// (exact, linear-time fallback for when no native index is wanted).
	VectorBackendScan VectorBackend = "scan"
)

// NewVectorRepo builds a VectorRepo for backend. hnswPath, if non-empty, is
// where the HNSW backend persists its graph and ID mappings (ignored by the
// scan backend, which has no separate on-disk representation beyond the
// vectors table itself).
func NewVectorRepo(s *Store, backend VectorBackend, dimensions int, hnswPath string) (VectorRepo, error) {
	switch backend {
	case VectorBackendHNSW, "":
		repo := NewHNSWVectorRepo(s, dimensions, hnswPath)
		if err := repo.Load(); err != nil {
			return nil, err
		}
		return repo, nil
	case VectorBackendScan:
		return NewScanVectorRepo(s, dimensions), nil
	default:
		return nil, fmt.Errorf("unknown vector backend: %s (valid options: hnsw, scan)", backend)
	}
}
