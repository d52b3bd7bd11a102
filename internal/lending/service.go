package lending

import (
	"context"
)

// Service defines the interface for the lending status engine.
type Service interface {
	RequestIssue(ctx context.Context, item string)
	RequestReturn(ctx context.Context, item string) error
	Status(item string) Display
	Lookup(item string) Status
	Snapshot() map[string]Status
	Subscribe(fn func(Change)) (cancel func())
	Close()
}
