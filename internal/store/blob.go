package store

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidBlobID is returned for empty or path-like blob identifiers.
var ErrInvalidBlobID = errors.New("invalid blob id")

// URLBlobStore resolves blob IDs against the public base URL of the media
// bucket that clients upload to.
type URLBlobStore struct {
	base *url.URL
}

// NewURLBlobStore parses baseURL, e.g. "https://media.example.com/files".
func NewURLBlobStore(baseURL string) (*URLBlobStore, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("blob base URL must be absolute")
	}
	return &URLBlobStore{base: u}, nil
}

// ResolveURL returns the retrievable URL for blobID.
func (s *URLBlobStore) ResolveURL(ctx context.Context, blobID string) (string, error) {
	blobID = strings.TrimSpace(blobID)
	if blobID == "" || strings.Contains(blobID, "/") || strings.Contains(blobID, "..") {
		return "", ErrInvalidBlobID
	}
	return s.base.JoinPath(blobID).String(), nil
}
