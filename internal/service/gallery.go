package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/imgpress/imgpress/internal/blob"
	"github.com/imgpress/imgpress/internal/metrics"
	"github.com/imgpress/imgpress/internal/model"
	"github.com/imgpress/imgpress/internal/transform"
)

// Gallery service errors.
var (
	ErrEmptyFile = errors.New("uploaded file is empty")
	ErrForbidden = errors.New("token does not belong to the requested user")
)

// ImageRecordStore is the image metadata persistence the gallery depends on.
type ImageRecordStore interface {
	CreateImage(ctx context.Context, record *model.ImageRecord) (*model.ImageRecord, error)
	ListImagesByOwner(ctx context.Context, owner string) ([]*model.ImageRecord, error)
	GetImageByStorageKey(ctx context.Context, key string) (*model.ImageRecord, error)
}

// Transformer runs the image derivation pipeline.
type Transformer interface {
	Transform(ctx context.Context, data []byte, opts transform.Options) (*transform.Result, error)
}

// ImageRef is one gallery entry: a fetchable URL plus the stored filename.
type ImageRef struct {
	URL  string
	Name string
}

// GalleryService orchestrates the transform engine, blob store and image
// records to answer the gallery operations. It owns no state of its own.
type GalleryService struct {
	records          ImageRecordStore
	blobs            blob.Store
	engine           Transformer
	transformTimeout time.Duration
	metrics          metrics.Recorder
}

// NewGalleryService creates a new GalleryService.
func NewGalleryService(records ImageRecordStore, blobs blob.Store, engine Transformer, transformTimeout time.Duration, recorder metrics.Recorder) *GalleryService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &GalleryService{
		records:          records,
		blobs:            blobs,
		engine:           engine,
		transformTimeout: transformTimeout,
		metrics:          recorder,
	}
}

// ListImages returns the user's gallery in insertion order.
// A user with no images gets an empty slice, never an error.
func (s *GalleryService) ListImages(ctx context.Context, username string) ([]ImageRef, error) {
	records, err := s.records.ListImagesByOwner(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	refs := make([]ImageRef, 0, len(records))
	for _, record := range records {
		url, err := s.blobs.URL(ctx, record.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("build image url: %w", err)
		}
		refs = append(refs, ImageRef{URL: url, Name: record.StorageKey})
	}

	return refs, nil
}

// UploadAndCompress runs the pipeline on the uploaded bytes and persists the
// derived image for the user. Nothing is stored unless the transform succeeds,
// and the blob is written before its record so a record never references
// missing bytes. Re-uploads of identical derived content converge on the
// existing record.
func (s *GalleryService) UploadAndCompress(ctx context.Context, username string, data []byte, greyscale bool) (*model.ImageRecord, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	transformCtx, cancel := context.WithTimeout(ctx, s.transformTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.engine.Transform(transformCtx, data, transform.Options{Greyscale: greyscale})
	if err != nil {
		s.recordTransformFailure(err)
		return nil, err
	}
	s.metrics.ObserveTransformDuration(time.Since(start))

	sum := sha256.Sum256(result.Bytes)
	contentHash := hex.EncodeToString(sum[:])
	storageKey := contentHash + ".jpg"

	if err := s.blobs.Put(ctx, storageKey, result.Bytes, result.ContentType); err != nil {
		return nil, fmt.Errorf("store image bytes: %w", err)
	}

	record := &model.ImageRecord{
		ID:            ulid.Make().String(),
		OwnerUsername: username,
		ContentHash:   contentHash,
		StorageKey:    storageKey,
		ContentType:   result.ContentType,
		Greyscale:     greyscale,
		Transforms:    result.Steps,
		CreatedAt:     time.Now().UTC(),
	}

	stored, err := s.records.CreateImage(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("store image record: %w", err)
	}

	if stored.ID == record.ID {
		s.metrics.IncImageUploaded()
	} else {
		s.metrics.IncImageDeduplicated()
	}

	return stored, nil
}

// FetchImage returns the stored bytes and content type for a storage key.
// Used by the fetch endpoint when the filesystem backend serves blobs.
func (s *GalleryService) FetchImage(ctx context.Context, storageKey string) ([]byte, string, error) {
	record, err := s.records.GetImageByStorageKey(ctx, storageKey)
	if err != nil {
		return nil, "", err
	}

	data, err := s.blobs.Get(ctx, record.StorageKey)
	if err != nil {
		return nil, "", err
	}

	return data, record.ContentType, nil
}

func (s *GalleryService) recordTransformFailure(err error) {
	switch {
	case errors.Is(err, transform.ErrUnsupportedFormat):
		s.metrics.IncTransformFailure("unsupported")
	case errors.Is(err, transform.ErrDecode):
		s.metrics.IncTransformFailure("decode")
	case errors.Is(err, transform.ErrTimeout):
		s.metrics.IncTransformFailure("timeout")
	case errors.Is(err, transform.ErrEmptyInput):
		s.metrics.IncTransformFailure("empty")
	}
}
