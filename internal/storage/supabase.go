package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SupabaseStore downloads uploaded greeting audio objects. Uploads belong to
// the portal; the core only ever reads, so the adapter stays a single
// authenticated GET.
type SupabaseStore struct {
	baseURL    string
	serviceKey string
	bucket     string

	http *http.Client
}

var ErrObjectNotFound = errors.New("storage: object not found")

func NewSupabaseStore(baseURL, serviceKey, bucket string) *SupabaseStore {
	return &SupabaseStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		bucket:     bucket,
		http:       &http.Client{Timeout: 15 * time.Second},
	}
}

// Download fetches an object by its tenant-scoped path and returns the bytes
// plus the reported content type.
func (s *SupabaseStore) Download(ctx context.Context, objectPath string) ([]byte, string, error) {
	objectPath = strings.TrimLeft(objectPath, "/")
	if objectPath == "" {
		return nil, "", ErrObjectNotFound
	}
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s",
		s.baseURL, url.PathEscape(s.bucket), escapePath(objectPath))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, "", ErrObjectNotFound
	}
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("storage: download failed %d", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "audio/mpeg"
	}
	return b, ct, nil
}

// escapePath escapes each segment but keeps the separators.
func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, seg := range parts {
		parts[i] = url.PathEscape(seg)
	}
	return strings.Join(parts, "/")
}
