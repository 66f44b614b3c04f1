package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
)

type cloudinaryStore struct {
	folder   string
	uploader *uploader.API
}

// NewCloudinary builds a Store from Cloudinary cloud name, API key, and secret.
func NewCloudinary(cloudName, apiKey, apiSecret, folder string) (Store, error) {
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &cloudinaryStore{folder: folder, uploader: up}, nil
}

// Put uploads with resource type auto so images, videos and PDFs share one path.
// The returned key is "<resource_type>:<public_id>", which Destroy needs.
func (c *cloudinaryStore) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) (*Object, error) {
	publicID := strings.TrimSuffix(key, path.Ext(key))
	result, err := c.uploader.Upload(ctx, r, uploader.UploadParams{
		Folder:       c.folder,
		PublicID:     publicID,
		ResourceType: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if result.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", result.Error.Message)
	}
	return &Object{
		Key: result.ResourceType + ":" + result.PublicID,
		URL: result.SecureURL,
	}, nil
}

func (c *cloudinaryStore) Delete(ctx context.Context, key string) error {
	resourceType, publicID, ok := strings.Cut(key, ":")
	if !ok {
		resourceType, publicID = "image", key
	}
	_, err := c.uploader.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	return nil
}
