// Package ipfs pins JSON metadata through the Pinata pinning API.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go-roundflow/internal/domain"
)

const DefaultEndpoint = "https://api.pinata.cloud"

type pinRequest struct {
	PinataOptions  pinataOptions  `json:"pinataOptions"`
	PinataMetadata pinataMetadata `json:"pinataMetadata"`
	PinataContent  any            `json:"pinataContent"`
}

type pinataOptions struct {
	CIDVersion int `json:"cidVersion"`
}

type pinataMetadata struct {
	Name string `json:"name"`
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// PinataStore implements ports.ContentStore.
type PinataStore struct {
	endpoint string
	jwt      string
	http     *http.Client
}

func NewPinataStore(endpoint, jwt string, timeout time.Duration) *PinataStore {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PinataStore{
		endpoint: strings.TrimRight(endpoint, "/"),
		jwt:      jwt,
		http:     &http.Client{Timeout: timeout},
	}
}

// Save pins content as JSON and returns its CID. Transport failures and 5xx
// answers are ErrStoreUnavailable; any other non-2xx is ErrStoreRejected.
func (s *PinataStore) Save(ctx context.Context, name string, content any) (string, error) {
	payload, err := json.Marshal(pinRequest{
		PinataOptions:  pinataOptions{CIDVersion: 1},
		PinataMetadata: pinataMetadata{Name: name},
		PinataContent:  content,
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal %s: %v", domain.ErrStoreRejected, name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/pinning/pinJSONToIPFS", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.jwt != "" {
		req.Header.Set("Authorization", "Bearer "+s.jwt)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: pin %s: %v", domain.ErrStoreUnavailable, name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", domain.ErrStoreUnavailable, err)
	}
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return "", fmt.Errorf("%w: pin %s: status %d: %s", domain.ErrStoreUnavailable, name, resp.StatusCode, strings.TrimSpace(string(body)))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("%w: pin %s: status %d: %s", domain.ErrStoreRejected, name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed pinResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", domain.ErrStoreUnavailable, err)
	}
	if parsed.IpfsHash == "" {
		return "", fmt.Errorf("%w: pin %s: empty IpfsHash", domain.ErrStoreUnavailable, name)
	}
	return parsed.IpfsHash, nil
}
