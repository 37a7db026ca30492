package storage

import (
	"context"
	"fmt"
	"sync"

	config "github.com/anjiri1684/counsel_hub/configs"
	"github.com/anjiri1684/counsel_hub/logger"
)

// Uploader stores an object under key and returns a URL for it.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

var Default Uploader = NewMemoryUploader()

// Init selects the uploader named by STORAGE_PROVIDER.
func Init(ctx context.Context) error {
	folder := config.Config("STORAGE_FOLDER")
	switch provider := config.Config("STORAGE_PROVIDER"); provider {
	case "cloudinary":
		u, err := NewCloudinaryUploader(config.Config("CLOUDINARY_URL"), folder)
		if err != nil {
			return err
		}
		Default = u
	case "s3":
		u, err := NewS3Uploader(ctx, config.Config("S3_REGION"), config.Config("S3_BUCKET"), folder)
		if err != nil {
			return err
		}
		Default = u
	case "memory":
		if config.IsProduction() {
			return fmt.Errorf("memory storage is not allowed in production")
		}
		Default = NewMemoryUploader()
	default:
		return fmt.Errorf("unknown STORAGE_PROVIDER %q", provider)
	}
	logger.Log.Infow("✅ Storage initialized", "provider", config.Config("STORAGE_PROVIDER"))
	return nil
}

// MemoryUploader keeps objects in process memory for development and tests.
type MemoryUploader struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryUploader() *MemoryUploader {
	return &MemoryUploader{objects: make(map[string][]byte)}
}

func (m *MemoryUploader) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return "memory://" + key, nil
}

func (m *MemoryUploader) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[key]
	return b, ok
}

func (m *MemoryUploader) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
