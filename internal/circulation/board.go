package circulation

import (
	"context"
	"fmt"
	"strings"

	"libralend/internal/catalog"
	"libralend/internal/lending"
)

// Board composes the catalog with the lending engine for the renderer.
type Board struct {
	catalog   catalog.Provider
	lending   lending.Service
	imageBase string
}

// NewBoard creates a board. imageBase is prefixed to item image references.
func NewBoard(provider catalog.Provider, svc lending.Service, imageBase string) *Board {
	return &Board{
		catalog:   provider,
		lending:   svc,
		imageBase: strings.TrimRight(imageBase, "/"),
	}
}

// View renders every catalog item in catalog order.
func (b *Board) View(ctx context.Context) (*View, error) {
	items, err := b.catalog.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	if len(items) == 0 {
		return &View{Items: []Card{}, Empty: true, Message: EmptyCatalogMessage}, nil
	}

	cards := make([]Card, 0, len(items))
	for _, item := range items {
		state := b.lending.Status(item.ID)
		cards = append(cards, Card{
			ID:          item.ID,
			Description: item.Description,
			Author:      item.Author,
			ImageURL:    b.imageURL(item.Image),
			State:       state,
			Action:      ActionFor(state),
		})
	}

	return &View{Items: cards}, nil
}

// Status reports one item. Identities are not checked against the catalog.
func (b *Board) Status(item string) StatusResponse {
	status := b.lending.Lookup(item)
	return StatusResponse{
		ID:      item,
		Status:  status,
		Display: status.Display(),
		Action:  ActionFor(status.Display()),
	}
}

func (b *Board) imageURL(image string) string {
	if image == "" {
		return ""
	}
	if strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		return image
	}
	return b.imageBase + "/" + strings.TrimLeft(image, "/")
}
