package catalog

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Product is one catalog row. Rows are read-only inside the concierge core.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID        string    `bun:"id,pk" json:"id"`
	Name      string    `bun:"name" json:"name"`
	Brand     string    `bun:"brand" json:"brand,omitempty"`
	Category  string    `bun:"category" json:"category,omitempty"`
	Colors    []string  `bun:"colors,array" json:"colors,omitempty"`
	Sizes     []string  `bun:"sizes,array" json:"sizes,omitempty"`
	Price     float64   `bun:"price" json:"price"`
	Rating    float64   `bun:"rating" json:"rating"`
	CreatedAt time.Time `bun:"created_at,nullzero" json:"created_at,omitempty"`
}

// Store is the catalog lookup contract. Implementations may fail or time out;
// callers treat failures as "catalog unavailable", never as inconsistency.
type Store interface {
	// TopRated returns up to limit products ordered by rating then recency.
	TopRated(ctx context.Context, limit int) ([]Product, error)
	// ByIDs resolves products for a set of ids; missing ids are skipped.
	ByIDs(ctx context.Context, ids []string) ([]Product, error)
}
