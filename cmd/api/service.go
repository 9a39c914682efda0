package main

import (
	"context"
	"io"

	"github.com/UnendingLoop/LostAndFound/internal/model"
	"github.com/wb-go/wbf/retry"
)

type ItemAPIService interface {
	Create(ctx context.Context, data *model.ItemCreateData) (*model.Item, error)
	ReplaceImage(ctx context.Context, id string, upload *model.ImageUpload) (*model.Item, error)
	Get(ctx context.Context, id string) (*model.Item, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Item, error)
	LoadImage(ctx context.Context, id string) (io.ReadCloser, string, error)
	LoadThumbnail(ctx context.Context, id, size string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, id string) error
}

// NoopPublisher - ЗАГЛУШКА, используется когда KAFKA_BROKER не задан
type NoopPublisher struct{}

func (NoopPublisher) SendWithRetry(ctx context.Context, strategy retry.Strategy, k []byte, v []byte) error {
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}
