// Package service provides business-logic for the app
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/UnendingLoop/LostAndFound/internal/imageproc"
	"github.com/UnendingLoop/LostAndFound/internal/model"
	"github.com/UnendingLoop/LostAndFound/internal/mwlogger"
	"github.com/UnendingLoop/LostAndFound/internal/repository"
	"github.com/UnendingLoop/LostAndFound/internal/storage/fsstorage"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

const DefaultMaxUpload int64 = 10 << 20

type ItemService struct {
	repo      repository.ItemRepo
	publisher EventPublisher
	images    ImageStore
	maxUpload int64
	now       func() time.Time
}

func NewItemService(repo repository.ItemRepo, pub EventPublisher, images ImageStore, maxUpload int64) *ItemService {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &ItemService{
		repo:      repo,
		publisher: pub,
		images:    images,
		maxUpload: maxUpload,
		now:       time.Now,
	}
}

// EventPublisher - контракт для работы с очередью
type EventPublisher interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key []byte, v []byte) error
}

// ImageStore - контракт для работы с хранилищем картинок.
// Uploads for one id are never issued concurrently: each item owns exactly one id
// and only this service writes it.
type ImageStore interface {
	Ingest(ctx context.Context, r io.Reader, filename, id string) (string, error)
	Original(id string) (string, error)
	Rendition(id, label string) (string, error)
	Remove(ctx context.Context, id string) error
}

// Стратегия ретрая отправки в очередь
var retryStrategy = retry.Strategy{
	Attempts: 3,
	Delay:    500 * time.Millisecond,
	Backoff:  2,
}

func (c ItemService) Create(ctx context.Context, data *model.ItemCreateData) (*model.Item, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	newItem := &model.Item{}

	// валидируем поля формы
	if err := validateNormalizeItemInfo(data, newItem, c.now()); err != nil {
		return nil, err
	}

	// картинку проверяем целиком до записи на диск
	img, err := c.readUpload(data.Image)
	if err != nil {
		return nil, err
	}

	newItem.UID = uuid.New()
	id := newItem.UID.String()

	fileName, err := c.images.Ingest(ctx, bytes.NewReader(img), data.Image.Filename, id)
	if err != nil {
		return nil, ingestError(logger, id, err)
	}
	newItem.ImageFile = fileName

	now := c.now().UTC()
	newItem.CreatedAt = &now
	newItem.UpdatedAt = &now

	if err := c.repo.Create(ctx, newItem); err != nil {
		logger.Error().Err(err).Str("item_uid", id).Msg("Failed to create item in DB")
		if rmErr := c.images.Remove(ctx, id); rmErr != nil {
			logger.Error().Err(rmErr).Str("item_uid", id).Msg("Image asset orphaned after failed insert")
		}
		return nil, model.ErrCommon500
	}

	c.publish(ctx, model.EventItemCreated, id, fileName)
	return newItem, nil
}

// ReplaceImage swaps the photo of an existing item. The previous asset is
// discarded before the new one is written, so when ingest fails the item is
// left without an image rather than pointing at files that are gone.
func (c ItemService) ReplaceImage(ctx context.Context, id string, upload *model.ImageUpload) (*model.Item, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}

	item, err := c.getItem(ctx, id)
	if err != nil {
		return nil, err
	}

	img, err := c.readUpload(upload)
	if err != nil {
		return nil, err
	}

	fileName, ingestErr := c.images.Ingest(ctx, bytes.NewReader(img), upload.Filename, id)
	if ingestErr != nil {
		if item.HasImage() {
			if err := c.repo.UpdateImage(ctx, id, ""); err != nil {
				logger.Error().Err(err).Str("item_uid", id).Msg("Failed to clear image reference after failed re-upload")
				return nil, model.ErrStorageFault
			}
			c.publish(ctx, model.EventItemImageLost, id, "")
		}
		return nil, ingestError(logger, id, ingestErr)
	}

	if err := c.repo.UpdateImage(ctx, id, fileName); err != nil {
		logger.Error().Err(err).Str("item_uid", id).Msg("Failed to save new image reference in DB")
		return nil, model.ErrCommon500
	}

	now := c.now().UTC()
	item.ImageFile = fileName
	item.UpdatedAt = &now

	c.publish(ctx, model.EventItemImageReplaced, id, fileName)
	return item, nil
}

func (c ItemService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Item, error) {
	logger := mwlogger.LoggerFromContext(ctx)
	validateQueryParams(req)

	res, err := c.repo.GetList(ctx, req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch items list from DB")
		return nil, model.ErrCommon500
	}

	return res, nil
}

func (c ItemService) Get(ctx context.Context, id string) (*model.Item, error) {
	if err := uuid.Validate(id); err != nil {
		return nil, model.ErrIncorrectID
	}
	return c.getItem(ctx, id)
}

// LoadImage opens the original photo of an item.
func (c ItemService) LoadImage(ctx context.Context, id string) (io.ReadCloser, string, error) {
	if err := uuid.Validate(id); err != nil {
		return nil, "", model.ErrIncorrectID
	}
	item, err := c.getItem(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !item.HasImage() {
		return nil, "", model.ErrImageNotFound
	}

	path, err := c.images.Original(id)
	if err != nil {
		return nil, "", lookupError(ctx, id, err)
	}
	return openAsset(ctx, path)
}

// LoadThumbnail opens one rendition of an item photo.
func (c ItemService) LoadThumbnail(ctx context.Context, id, size string) (io.ReadCloser, string, error) {
	if err := uuid.Validate(id); err != nil {
		return nil, "", model.ErrIncorrectID
	}
	item, err := c.getItem(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !item.HasImage() {
		return nil, "", model.ErrImageNotFound
	}

	path, err := c.images.Rendition(id, size)
	if err != nil {
		return nil, "", lookupError(ctx, id, err)
	}
	return openAsset(ctx, path)
}

func (c ItemService) Delete(ctx context.Context, id string) error {
	logger := mwlogger.LoggerFromContext(ctx)
	if err := uuid.Validate(id); err != nil {
		return model.ErrIncorrectID
	}

	if _, err := c.getItem(ctx, id); err != nil {
		return err
	}

	// удаляем из базы
	if err := c.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, model.ErrItemNotFound) {
			return model.ErrItemNotFound
		}
		logger.Error().Err(err).Str("item_uid", id).Msg("Failed to delete item from DB")
		return model.ErrCommon500
	}

	// удаляем картинку с рендишнами
	if err := c.images.Remove(ctx, id); err != nil {
		return model.ErrStorageFault
	}

	c.publish(ctx, model.EventItemDeleted, id, "")
	return nil
}

func (c ItemService) getItem(ctx context.Context, id string) (*model.Item, error) {
	logger := mwlogger.LoggerFromContext(ctx)

	res, err := c.repo.Get(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrItemNotFound):
			return nil, model.ErrItemNotFound // 404
		default:
			logger.Error().Err(err).Msg(fmt.Sprintf("Failed to fetch item %q from DB", id))
			return nil, model.ErrCommon500
		}
	}
	return res, nil
}

// readUpload enforces the size ceiling and the decodability check; nothing is written yet.
func (c ItemService) readUpload(upload *model.ImageUpload) ([]byte, error) {
	if upload == nil || upload.File == nil {
		return nil, model.ErrImageRequired
	}
	if upload.Size > c.maxUpload {
		return nil, model.ErrImageTooLarge
	}
	if _, err := imageproc.ValidateFilename(upload.Filename); err != nil {
		return nil, model.ErrUnsupportedType
	}

	data, err := io.ReadAll(io.LimitReader(upload.File, c.maxUpload+1))
	if err != nil {
		return nil, model.ErrInvalidImage
	}
	if int64(len(data)) > c.maxUpload {
		return nil, model.ErrImageTooLarge
	}
	if err := imageproc.Validate(data); err != nil {
		return nil, model.ErrInvalidImage
	}
	return data, nil
}

func (c ItemService) publish(ctx context.Context, typ model.EventType, id, imageFile string) {
	logger := mwlogger.LoggerFromContext(ctx)

	payload, err := json.Marshal(model.ItemEvent{Type: typ, ItemUID: id, ImageFile: imageFile, At: c.now().UTC()})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to marshal item event")
		return
	}
	if err := c.publisher.SendWithRetry(ctx, retryStrategy, []byte(id), payload); err != nil {
		logger.Error().Err(err).Str("event", string(typ)).Msg(fmt.Sprintf("Failed to publish event for item %q", id))
	}
}

func ingestError(logger zlog.Zerolog, id string, err error) error {
	switch {
	case errors.Is(err, fsstorage.ErrCleanupFailed):
		logger.Error().Err(err).Str("item_uid", id).Msg("Image asset may be partially written: cleanup failed")
		return model.ErrStorageFault
	case errors.Is(err, imageproc.ErrUnsupportedExt):
		return model.ErrUnsupportedType
	default:
		logger.Error().Err(err).Str("item_uid", id).Msg("Failed to store item image")
		return model.ErrImageNotStored
	}
}

func lookupError(ctx context.Context, id string, err error) error {
	logger := mwlogger.LoggerFromContext(ctx)
	switch {
	case errors.Is(err, fsstorage.ErrUnknownSize):
		return model.ErrIncorrectSize
	case errors.Is(err, fsstorage.ErrAssetNotFound):
		logger.Warn().Str("item_uid", id).Msg("Item references an image that is missing on disk")
		return model.ErrImageNotFound
	default:
		logger.Error().Err(err).Str("item_uid", id).Msg("Failed to look up image asset")
		return model.ErrCommon500
	}
}

func openAsset(ctx context.Context, path string) (io.ReadCloser, string, error) {
	f, err := os.Open(path)
	if err != nil {
		logger := mwlogger.LoggerFromContext(ctx)
		logger.Error().Err(err).Str("path", path).Msg("Failed to open image asset")
		return nil, "", model.ErrCommon500
	}
	return f, model.ContentTypeFor(path), nil
}
