package retrieve

import (
	"context"

	"github.com/staffdex/staffdex/internal/domain"
)

// Embedder vectorizes query text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// VectorSearcher is the nearest-neighbor search contract over the index.
type VectorSearcher interface {
	Search(vector []float32, k int) ([]domain.VectorHit, error)
	Ready() bool
}

// MetadataResolver resolves index rows to employee records.
type MetadataResolver interface {
	EmployeeByRow(rowID int) (domain.EmployeeRecord, error)
	Ready() bool
}

// QueryParser extracts structured signals from the raw query. The matching
// strategy behind it (substring, tokenized, fuzzy) is swappable without
// touching scoring.
type QueryParser interface {
	Parse(query string) domain.ParsedQuery
}
