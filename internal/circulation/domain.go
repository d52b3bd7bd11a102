// internal/circulation/domain.go
package circulation

import (
	"libralend/internal/lending"
)

// EmptyCatalogMessage is shown when the catalog has no items.
const EmptyCatalogMessage = "No book found"

// Commands a card can forward to the engine.
const (
	CommandIssue  = "issue"
	CommandReturn = "return"
)

// Action is the affordance drawn for an item.
type Action struct {
	Label   string `json:"label"`
	Command string `json:"command,omitempty"`
	Enabled bool   `json:"enabled"`
}

// Card is one catalog item with its current lending state.
type Card struct {
	ID          string          `json:"bookName"`
	Description string          `json:"description"`
	Author      string          `json:"author"`
	ImageURL    string          `json:"imageUrl"`
	State       lending.Display `json:"state"`
	Action      Action          `json:"action"`
}

// View is everything a renderer needs to draw the catalog.
type View struct {
	Items   []Card `json:"items"`
	Empty   bool   `json:"empty"`
	Message string `json:"message,omitempty"`
}

// StatusResponse reports one item's lending state.
type StatusResponse struct {
	ID      string          `json:"id"`
	Status  lending.Status  `json:"status"`
	Display lending.Display `json:"display"`
	Action  Action          `json:"action"`
}

// ActionFor maps a display state to the affordance the renderer draws.
func ActionFor(d lending.Display) Action {
	switch d {
	case lending.DisplayReturned:
		return Action{Label: "Returned"}
	case lending.DisplayReturnable:
		return Action{Label: "Return", Command: CommandReturn, Enabled: true}
	case lending.DisplayPendingApproval:
		return Action{Label: "Approval Pending", Command: CommandIssue}
	default:
		return Action{Label: "Issue", Command: CommandIssue, Enabled: true}
	}
}
