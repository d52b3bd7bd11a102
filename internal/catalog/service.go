// internal/catalog/service.go
package catalog

import (
	"context"
)

// Provider supplies the ordered, read-only catalog.
type Provider interface {
	Items(ctx context.Context) ([]Item, error)
}
