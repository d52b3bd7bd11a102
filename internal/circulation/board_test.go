package circulation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libralend/internal/catalog"
	"libralend/internal/lending"
	"libralend/internal/schedule"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type failingProvider struct{}

func (failingProvider) Items(context.Context) ([]catalog.Item, error) {
	return nil, errors.New("backend down")
}

func newTestBoard(t *testing.T, items []catalog.Item, opts ...lending.Option) (*Board, lending.Service, *schedule.Manual) {
	t.Helper()
	provider, err := catalog.NewStatic(items)
	require.NoError(t, err)

	clock := schedule.NewManual(epoch)
	opts = append([]lending.Option{lending.WithScheduler(clock)}, opts...)
	svc := lending.NewEngine(opts...)
	t.Cleanup(svc.Close)

	return NewBoard(provider, svc, "http://localhost:1205/api/v1/"), svc, clock
}

func TestBoardEmptyCatalog(t *testing.T) {
	board, _, _ := newTestBoard(t, nil)

	view, err := board.View(context.Background())
	require.NoError(t, err)
	assert.True(t, view.Empty)
	assert.Equal(t, EmptyCatalogMessage, view.Message)
	assert.Empty(t, view.Items)
}

func TestBoardViewFollowsLifecycle(t *testing.T) {
	ctx := context.Background()
	board, svc, clock := newTestBoard(t, []catalog.Item{
		{ID: "Dune", Author: "Frank Herbert", Image: "images/dune.jpg"},
		{ID: "Emma", Author: "Jane Austen"},
	})

	view, err := board.View(ctx)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.False(t, view.Empty)
	assert.Equal(t, "Dune", view.Items[0].ID)
	assert.Equal(t, "http://localhost:1205/api/v1/images/dune.jpg", view.Items[0].ImageURL)
	assert.Equal(t, "", view.Items[1].ImageURL)
	assert.Equal(t, Action{Label: "Issue", Command: CommandIssue, Enabled: true}, view.Items[0].Action)

	svc.RequestIssue(ctx, "Dune")
	view, err = board.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, lending.DisplayPendingApproval, view.Items[0].State)
	assert.Equal(t, Action{Label: "Approval Pending", Command: CommandIssue}, view.Items[0].Action)
	assert.Equal(t, lending.DisplayIssueAvailable, view.Items[1].State)

	clock.Advance(lending.DefaultApprovalDelay + lending.DefaultIssueDelay)
	view, err = board.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, Action{Label: "Return", Command: CommandReturn, Enabled: true}, view.Items[0].Action)

	require.NoError(t, svc.RequestReturn(ctx, "Dune"))
	view, err = board.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, lending.DisplayReturned, view.Items[0].State)
	assert.Equal(t, Action{Label: "Returned"}, view.Items[0].Action)
}

func TestBoardCatalogError(t *testing.T) {
	svc := lending.NewEngine(lending.WithScheduler(schedule.NewManual(epoch)))
	defer svc.Close()
	board := NewBoard(failingProvider{}, svc, "")

	_, err := board.View(context.Background())
	assert.Error(t, err)
}

func TestImageURL(t *testing.T) {
	board := &Board{imageBase: "http://img"}

	assert.Equal(t, "http://img/a.jpg", board.imageURL("/a.jpg"))
	assert.Equal(t, "https://cdn/a.jpg", board.imageURL("https://cdn/a.jpg"))
	assert.Equal(t, "", board.imageURL(""))
}
