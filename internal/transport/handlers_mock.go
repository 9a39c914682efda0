package transport

import (
	"context"
	"io"

	"github.com/UnendingLoop/LostAndFound/internal/model"
	"github.com/gin-gonic/gin"
)

type mockItemService struct {
	createFn        func(ctx context.Context, d *model.ItemCreateData) (*model.Item, error)
	replaceImageFn  func(ctx context.Context, id string, u *model.ImageUpload) (*model.Item, error)
	getFn           func(ctx context.Context, id string) (*model.Item, error)
	getListFn       func(ctx context.Context, req *model.ListRequest) ([]model.Item, error)
	loadImageFn     func(ctx context.Context, id string) (io.ReadCloser, string, error)
	loadThumbnailFn func(ctx context.Context, id, size string) (io.ReadCloser, string, error)
	deleteFn        func(ctx context.Context, id string) error
}

func (m *mockItemService) Create(ctx context.Context, d *model.ItemCreateData) (*model.Item, error) {
	return m.createFn(ctx, d)
}

func (m *mockItemService) ReplaceImage(ctx context.Context, id string, u *model.ImageUpload) (*model.Item, error) {
	return m.replaceImageFn(ctx, id, u)
}

func (m *mockItemService) Get(ctx context.Context, id string) (*model.Item, error) {
	return m.getFn(ctx, id)
}

func (m *mockItemService) GetList(ctx context.Context, req *model.ListRequest) ([]model.Item, error) {
	return m.getListFn(ctx, req)
}

func (m *mockItemService) LoadImage(ctx context.Context, id string) (io.ReadCloser, string, error) {
	return m.loadImageFn(ctx, id)
}

func (m *mockItemService) LoadThumbnail(ctx context.Context, id, size string) (io.ReadCloser, string, error) {
	return m.loadThumbnailFn(ctx, id, size)
}

func (m *mockItemService) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

func init() {
	gin.SetMode(gin.TestMode)
}
