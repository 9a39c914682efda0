// Package transport provides methods for processing requests from endpoints
package transport

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/UnendingLoop/LostAndFound/internal/model"
	"github.com/wb-go/wbf/ginext"
)

// formOverhead covers the text fields and multipart framing around the image.
const formOverhead int64 = 1 << 20

type ItemHandler struct {
	service ItemService
	maxBody int64
}

type ItemService interface {
	Create(ctx context.Context, data *model.ItemCreateData) (*model.Item, error)
	ReplaceImage(ctx context.Context, id string, upload *model.ImageUpload) (*model.Item, error)
	Get(ctx context.Context, id string) (*model.Item, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Item, error)
	LoadImage(ctx context.Context, id string) (io.ReadCloser, string, error)           // оригинал
	LoadThumbnail(ctx context.Context, id, size string) (io.ReadCloser, string, error) // превью нужного размера
	Delete(ctx context.Context, id string) error                                       // удалить и запись, и картинки
}

func NewItemHandler(svc ItemService, maxUpload int64) *ItemHandler {
	return &ItemHandler{
		service: svc,
		maxBody: maxUpload + formOverhead,
	}
}

func (h ItemHandler) SimplePinger(ctx *ginext.Context) {
	ctx.JSON(200, map[string]string{"message": "pong"})
}

func (h ItemHandler) Create(ctx *ginext.Context) {
	if !h.parseForm(ctx) {
		return
	}

	var newItemRaw model.ItemCreateData
	newItemRaw.Title = ctx.PostForm("title")
	newItemRaw.Description = ctx.PostForm("description")
	newItemRaw.DateFound = ctx.PostForm("date_found")
	newItemRaw.LocationFound = ctx.PostForm("location_found")

	// картинка обязательна, но это проверит сервис
	upload, closeFn := formImage(ctx)
	defer closeFn()
	newItemRaw.Image = upload

	res, err := h.service.Create(ctx.Request.Context(), &newItemRaw)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(201, res)
}

func (h ItemHandler) ReplaceImage(ctx *ginext.Context) {
	id := ctx.Param("id")
	if !h.parseForm(ctx) {
		return
	}

	upload, closeFn := formImage(ctx)
	defer closeFn()
	if upload == nil {
		ctx.JSON(400, map[string]string{"error": model.ErrImageRequired.Error()})
		return
	}

	res, err := h.service.ReplaceImage(ctx.Request.Context(), id, upload)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h ItemHandler) GetAllItems(ctx *ginext.Context) {
	var req model.ListRequest

	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(400, map[string]string{"error": model.ErrIncorrectQuery.Error()})
		return
	}

	res, err := h.service.GetList(ctx.Request.Context(), &req)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h ItemHandler) GetItem(ctx *ginext.Context) {
	res, err := h.service.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.JSON(200, res)
}

func (h ItemHandler) LoadImage(ctx *ginext.Context) {
	id := ctx.Param("id")

	res, cType, err := h.service.LoadImage(ctx.Request.Context(), id)
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}
	streamFile(ctx, id, res, cType)
}

func (h ItemHandler) LoadThumbnail(ctx *ginext.Context) {
	id := ctx.Param("id")

	res, cType, err := h.service.LoadThumbnail(ctx.Request.Context(), id, ctx.Param("size"))
	if err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}
	streamFile(ctx, id, res, cType)
}

func (h ItemHandler) Delete(ctx *ginext.Context) {
	id := ctx.Param("id")
	if err := h.service.Delete(ctx.Request.Context(), id); err != nil {
		ctx.JSON(errorCodeDefiner(err), map[string]string{"error": err.Error()})
		return
	}

	ctx.Status(204)
}

// parseForm reads the multipart body under the upload ceiling and writes the
// error response itself when that fails.
func (h ItemHandler) parseForm(ctx *ginext.Context) bool {
	if ctx.Request.ContentLength > h.maxBody {
		ctx.JSON(413, map[string]string{"error": model.ErrImageTooLarge.Error()})
		return false
	}
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, h.maxBody)

	err := ctx.Request.ParseMultipartForm(32 << 20)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		ctx.JSON(413, map[string]string{"error": model.ErrImageTooLarge.Error()})
		return false
	}
	ctx.JSON(400, map[string]string{"error": "failed to parse multipart form"})
	return false
}

func streamFile(ctx *ginext.Context, id string, res io.ReadCloser, cType string) {
	defer closeFileFlow(res)

	ctx.Writer.Header().Set("Content-Type", cType)
	ctx.Writer.WriteHeader(200)
	if n, err := io.Copy(ctx.Writer, res); err != nil {
		log.Printf("Failed to write response at byte %d for item id %q: %v", n, id, err)
	}
}
