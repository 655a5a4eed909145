// Package storage archives analyzed recordings in a Supabase bucket.
package storage

import (
	"bytes"
	"fmt"

	storage_go "github.com/supabase-community/storage-go"
	"github.com/supabase-community/supabase-go"
)

// SupabaseConfig holds the project credentials and target bucket.
type SupabaseConfig struct {
	URL            string
	ServiceRoleKey string
	Bucket         string
}

// SupabaseStorage implements usecase.Storage on Supabase Storage.
type SupabaseStorage struct {
	client *supabase.Client
	bucket string
}

// NewSupabaseStorage constructs the archive client.
func NewSupabaseStorage(cfg SupabaseConfig) (*SupabaseStorage, error) {
	client, err := supabase.NewClient(cfg.URL, cfg.ServiceRoleKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("storage: create supabase client: %w", err)
	}
	return &SupabaseStorage{client: client, bucket: cfg.Bucket}, nil
}

// Upload stores one recording under objectKey.
func (s *SupabaseStorage) Upload(objectKey, contentType string, body []byte) error {
	opts := storage_go.FileOptions{ContentType: &contentType}
	_, err := s.client.Storage.UploadFile(s.bucket, objectKey, bytes.NewReader(body), opts)
	if err != nil {
		return fmt.Errorf("storage: upload to supabase: %w", err)
	}
	return nil
}
