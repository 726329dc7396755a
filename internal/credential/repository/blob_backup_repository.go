package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/google/uuid"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	credentialDomain "github.com/allisson/credvault/internal/credential/domain"
	apperrors "github.com/allisson/credvault/internal/errors"

	// Register bucket drivers for BACKUP_BUCKET_URL
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

const backupExtension = ".json"

// BlobBackupRepository stores backup bundles as JSON objects named <prefix>/<id>.json in a
// gocloud.dev bucket (file://, mem://, s3://).
type BlobBackupRepository struct {
	bucket *blob.Bucket
	prefix string
}

// Save writes the bundle. An existing object with the same id is replaced.
func (b *BlobBackupRepository) Save(ctx context.Context, bundle *credentialDomain.BackupBundle) error {
	key, err := b.key(bundle.Metadata.ID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(bundle)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal backup")
	}

	if err := b.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: "application/json"}); err != nil {
		return apperrors.Wrap(err, "failed to write backup")
	}
	return nil
}

// Load reads a bundle without verifying it.
func (b *BlobBackupRepository) Load(ctx context.Context, id string) (*credentialDomain.BackupBundle, error) {
	key, err := b.key(id)
	if err != nil {
		return nil, err
	}

	data, err := b.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, credentialDomain.ErrBackupNotFound
		}
		return nil, apperrors.Wrap(err, "failed to read backup")
	}
	return credentialDomain.ParseBackupBundle(data)
}

// List returns the metadata of every bundle under the prefix, newest first.
func (b *BlobBackupRepository) List(ctx context.Context) ([]*credentialDomain.BackupMetadata, error) {
	iter := b.bucket.List(&blob.ListOptions{Prefix: b.prefix + "/"})

	backups := make([]*credentialDomain.BackupMetadata, 0)
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to list backups")
		}
		if obj.IsDir || !strings.HasSuffix(obj.Key, backupExtension) {
			continue
		}

		data, err := b.bucket.ReadAll(ctx, obj.Key)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to read backup")
		}
		bundle, err := credentialDomain.ParseBackupBundle(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", obj.Key, err)
		}
		metadata := bundle.Metadata
		backups = append(backups, &metadata)
	}

	slices.SortFunc(backups, func(x, y *credentialDomain.BackupMetadata) int {
		return y.CreatedAt.Compare(x.CreatedAt)
	})
	return backups, nil
}

// key maps a backup id to its object key. Only UUIDs are accepted so an id can never
// address an object outside the prefix.
func (b *BlobBackupRepository) key(id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("%w: backup id must be a UUID", credentialDomain.ErrInvalidBackup)
	}
	return path.Join(b.prefix, id+backupExtension), nil
}

// NewBlobBackupRepository creates a backup repository over bucket. The caller owns the
// bucket and closes it.
func NewBlobBackupRepository(bucket *blob.Bucket, prefix string) *BlobBackupRepository {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "backups"
	}
	return &BlobBackupRepository{bucket: bucket, prefix: prefix}
}
