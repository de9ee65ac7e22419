package blob

import (
	"context"
	"fmt"
	"os"

	fsstore "flowcore/internal/infra/blob/fs"
	memorystore "flowcore/internal/infra/blob/memory"
	s3store "flowcore/internal/infra/blob/s3"
)

// Open selects a blob.Store implementation using environment variables.
//
//	FLOWCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	FLOWCORE_BLOB_FS_ROOT: directory root when driver=fs (default ./attachments)
//	(S3 specific variables documented in the s3 driver package)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("FLOWCORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("FLOWCORE_BLOB_FS_ROOT"))
	case DriverS3:
		return s3store.OpenFromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewFilesystem returns a filesystem-backed store rooted at root.
func NewFilesystem(root string) (Store, error) { return fsstore.New(root) }

// NewMemory returns an in-memory blob.Store suitable for tests.
func NewMemory() Store { return memorystore.New() }

// S3Config re-exports the S3 driver configuration.
type S3Config = s3store.Config

// NewS3 constructs an S3-backed blob.Store from the provided configuration.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return s3store.New(ctx, cfg)
}

// NewMockS3ForTests exposes the in-memory S3 mock for cross-package tests.
func NewMockS3ForTests() Store { return s3store.NewMockForTests() }
