package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/imgpress/imgpress/internal/model"
)

// Common errors for image repository operations.
var (
	ErrImageNotFound = errors.New("image not found")
)

// CreateImage inserts an image record, or returns the existing record when the
// owner already stored identical content. ON CONFLICT DO NOTHING plus the
// follow-up read gives atomic create-if-absent: two concurrent puts of the same
// bytes converge on a single record, first writer wins.
func (r *Repository) CreateImage(ctx context.Context, record *model.ImageRecord) (*model.ImageRecord, error) {
	query := `
		INSERT INTO images (id, owner_username, content_hash, storage_key, content_type, greyscale, transforms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (owner_username, content_hash) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query,
		record.ID,
		record.OwnerUsername,
		record.ContentHash,
		record.StorageKey,
		record.ContentType,
		record.Greyscale,
		pq.Array(record.Transforms),
		record.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create image record: %w", err)
	}

	if tag.RowsAffected() == 1 {
		return record, nil
	}

	// Conflict: another upload of the same content got there first.
	existing, err := r.GetImageByOwnerAndHash(ctx, record.OwnerUsername, record.ContentHash)
	if err != nil {
		return nil, fmt.Errorf("failed to read existing image record: %w", err)
	}
	return existing, nil
}

// GetImageByID retrieves an image record by its identifier.
func (r *Repository) GetImageByID(ctx context.Context, id string) (*model.ImageRecord, error) {
	query := `
		SELECT id, owner_username, content_hash, storage_key, content_type, greyscale, transforms, created_at
		FROM images
		WHERE id = $1
	`

	return r.scanImage(r.pool.QueryRow(ctx, query, id))
}

// GetImageByStorageKey retrieves an image record by its storage key.
func (r *Repository) GetImageByStorageKey(ctx context.Context, key string) (*model.ImageRecord, error) {
	query := `
		SELECT id, owner_username, content_hash, storage_key, content_type, greyscale, transforms, created_at
		FROM images
		WHERE storage_key = $1
	`

	return r.scanImage(r.pool.QueryRow(ctx, query, key))
}

// GetImageByOwnerAndHash retrieves the record an owner holds for given content.
func (r *Repository) GetImageByOwnerAndHash(ctx context.Context, owner, contentHash string) (*model.ImageRecord, error) {
	query := `
		SELECT id, owner_username, content_hash, storage_key, content_type, greyscale, transforms, created_at
		FROM images
		WHERE owner_username = $1 AND content_hash = $2
	`

	return r.scanImage(r.pool.QueryRow(ctx, query, owner, contentHash))
}

// ListImagesByOwner returns all image records for a user in insertion order.
// A user with no images gets an empty slice, never an error.
func (r *Repository) ListImagesByOwner(ctx context.Context, owner string) ([]*model.ImageRecord, error) {
	// ULIDs sort lexicographically by mint time, so ordering by id preserves
	// insertion order.
	query := `
		SELECT id, owner_username, content_hash, storage_key, content_type, greyscale, transforms, created_at
		FROM images
		WHERE owner_username = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	records := make([]*model.ImageRecord, 0)
	for rows.Next() {
		record, err := r.scanImageFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating image records: %w", err)
	}

	return records, nil
}

func (r *Repository) scanImage(row pgx.Row) (*model.ImageRecord, error) {
	var record model.ImageRecord
	err := row.Scan(
		&record.ID,
		&record.OwnerUsername,
		&record.ContentHash,
		&record.StorageKey,
		&record.ContentType,
		&record.Greyscale,
		pq.Array(&record.Transforms),
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *Repository) scanImageFromRows(rows pgx.Rows) (*model.ImageRecord, error) {
	var record model.ImageRecord
	err := rows.Scan(
		&record.ID,
		&record.OwnerUsername,
		&record.ContentHash,
		&record.StorageKey,
		&record.ContentType,
		&record.Greyscale,
		pq.Array(&record.Transforms),
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}
