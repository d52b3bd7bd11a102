package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libralend/internal/catalog"
)

func TestCatalogClientItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/books", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"bookName":"Dune","description":"Desert planet","author":"Frank Herbert","image":"images/dune.jpg"},
			{"bookName":"Emma","author":"Jane Austen"}
		]`))
	}))
	defer srv.Close()

	items, err := NewCatalogClient(srv.URL + "/api/v1/").Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, catalog.Item{ID: "Dune", Description: "Desert planet", Author: "Frank Herbert", Image: "images/dune.jpg"}, items[0])
	assert.Equal(t, "Emma", items[1].ID)
}

func TestCatalogClientEmptyCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	}))
	defer srv.Close()

	items, err := NewCatalogClient(srv.URL).Items(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestCatalogClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `oops`},
		{name: "bad json", status: http.StatusOK, body: `{`},
		{name: "duplicate", status: http.StatusOK, body: `[{"bookName":"Dune"},{"bookName":"Dune"}]`, wantErr: catalog.ErrDuplicateItem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewCatalogClient(srv.URL).Items(context.Background())
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestCatalogClientBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewCatalogClient(srv.URL)
	for i := 0; i < breakerThreshold; i++ {
		_, err := client.Items(context.Background())
		require.Error(t, err)
	}

	_, err := client.Items(context.Background())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(breakerThreshold), calls.Load())
}

var _ catalog.Provider = (*CatalogClient)(nil)
