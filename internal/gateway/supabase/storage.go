package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Storage is an object store backed by one Supabase Storage bucket.
type Storage struct {
	client *Client
	bucket string
}

func NewStorage(client *Client, bucket string) *Storage {
	return &Storage{client: client, bucket: strings.TrimSpace(bucket)}
}

type uploadResponse struct {
	Key string `json:"Key"`
}

func (s *Storage) objectPath(key string) string {
	return fmt.Sprintf("/storage/v1/object/%s/%s", url.PathEscape(s.bucket), escapeKey(key))
}

func (s *Storage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := request[uploadResponse](ctx, s.client, reqConfig{
		Method:      http.MethodPost,
		Path:        s.objectPath(key),
		Body:        data,
		ContentType: contentType,
		Headers:     map[string]string{"x-upsert": "false", "cache-control": "max-age=3600"},
	}, http.StatusOK, http.StatusCreated)
	if err != nil {
		return "", err
	}
	return s.PublicURL(key), nil
}

// PublicURL is the public bucket URL of key. It does not check existence.
func (s *Storage) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.client.BaseURL, url.PathEscape(s.bucket), escapeKey(key))
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	body, err := json.Marshal(map[string][]string{"prefixes": {key}})
	if err != nil {
		return err
	}
	_, err = s.client.do(ctx, reqConfig{
		Method: http.MethodDelete,
		Path:   fmt.Sprintf("/storage/v1/object/%s", url.PathEscape(s.bucket)),
		Body:   body,
	}, http.StatusOK, http.StatusNoContent)
	return err
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
