package scopes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	permkit "github.com/permkit/permkit-go"
)

func testServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := permkit.DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.APIKey = "test-key"
	cfg.MaxRetries = 0
	client, err := permkit.NewClient(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewClient(client)
}

func TestCreate(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/scopes", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "documents.management", body["identifier"])
		assert.Equal(t, "Document Management", body["display_name"])
		assert.Equal(t, "Managing documents", body["description"])

		_, _ = w.Write([]byte(`{
			"id": 7,
			"identifier": "documents.management",
			"display_name": "Document Management",
			"description": "Managing documents",
			"created_at": "2026-08-30T12:00:00Z",
			"updated_at": "2026-08-30T12:00:00Z"
		}`))
	})

	scope, err := client.Create(context.Background(), "documents.management",
		WithDisplayName("Document Management"), WithDescription("Managing documents"))
	require.NoError(t, err)
	assert.Equal(t, 7, scope.ID)
	assert.Equal(t, "documents.management", scope.Identifier)
}

func TestCreateRejectsBadIdentifier(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request should not reach the server")
	})

	_, err := client.Create(context.Background(), "Documents Management")
	require.Error(t, err)
	assert.True(t, errors.Is(err, permkit.ErrValidation))
}

func TestRead(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/scopes/documents.management", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"id": 7,
			"identifier": "documents.management",
			"created_at": "2026-08-30T12:00:00Z",
			"updated_at": "2026-08-30T12:00:00Z"
		}`))
	})

	scope, err := client.Read(context.Background(), "documents.management")
	require.NoError(t, err)
	assert.Equal(t, 7, scope.ID)
}

func TestList(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/scopes", r.URL.Path)
		assert.Equal(t, "document", r.URL.Query().Get("search"))

		_, _ = w.Write([]byte(`{
			"total": 1,
			"limit": 100,
			"offset": 0,
			"scopes": [
				{"id": 7, "identifier": "documents.management", "created_at": "2026-08-30T12:00:00Z", "updated_at": "2026-08-30T12:00:00Z"}
			]
		}`))
	})

	page, err := client.List(context.Background(), WithSearch("document"))
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "documents.management", page.Items[0].Identifier)
}

func TestDelete(t *testing.T) {
	client := testServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/scopes/documents.management", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	deleted, err := client.Delete(context.Background(), "documents.management")
	require.NoError(t, err)
	assert.True(t, deleted)
}
