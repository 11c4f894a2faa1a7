package ipfs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-roundflow/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPinataStoreSave(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pinning/pinJSONToIPFS", r.URL.Path)
		auth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"IpfsHash":"bafabcdef","PinSize":12,"Timestamp":"2026-01-01T00:00:00Z"}`))
	}))
	defer srv.Close()

	store := NewPinataStore(srv.URL, "secret-jwt", time.Second)
	cid, err := store.Save(context.Background(), "round-metadata", domain.ProgramMetadata{Name: "Gitcoin"})
	require.NoError(t, err)

	assert.Equal(t, "bafabcdef", cid)
	assert.Equal(t, "Bearer secret-jwt", auth)
	assert.Equal(t, map[string]any{"name": "round-metadata"}, got["pinataMetadata"])
	assert.Equal(t, map[string]any{"name": "Gitcoin"}, got["pinataContent"])
}

func TestPinataStoreErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusBadGateway, `upstream down`, domain.ErrStoreUnavailable},
		{"unauthorized", http.StatusUnauthorized, `{"error":"invalid jwt"}`, domain.ErrStoreRejected},
		{"bad request", http.StatusBadRequest, `{"error":"too large"}`, domain.ErrStoreRejected},
		{"missing hash", http.StatusOK, `{}`, domain.ErrStoreUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewPinataStore(srv.URL, "", time.Second).Save(context.Background(), "x", map[string]int{"a": 1})
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, domain.CategoryStore, domain.CategoryOf(err))
		})
	}
}

func TestPinataStoreUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewPinataStore(url, "", time.Second).Save(context.Background(), "x", 1)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
