package transport

import (
	"errors"
	"io"
	"log"

	"github.com/UnendingLoop/LostAndFound/internal/model"
	"github.com/wb-go/wbf/ginext"
)

func errorCodeDefiner(err error) int {
	switch {
	case errors.Is(err, model.ErrCommon500),
		errors.Is(err, model.ErrStorageFault),
		errors.Is(err, model.ErrImageNotStored):
		return 500
	case errors.Is(err, model.ErrItemNotFound),
		errors.Is(err, model.ErrImageNotFound):
		return 404
	case errors.Is(err, model.ErrImageTooLarge):
		return 413
	case errors.Is(err, model.ErrIncorrectQuery),
		errors.Is(err, model.ErrIncorrectID),
		errors.Is(err, model.ErrIncorrectSize),
		errors.Is(err, model.ErrEmptyTitle),
		errors.Is(err, model.ErrEmptyDesc),
		errors.Is(err, model.ErrEmptyLocation),
		errors.Is(err, model.ErrIncorrectDate),
		errors.Is(err, model.ErrImageRequired),
		errors.Is(err, model.ErrInvalidImage),
		errors.Is(err, model.ErrUnsupportedType):
		return 400
	default:
		return 500
	}
}

// formImage returns nil when the form carries no "image" part.
func formImage(ctx *ginext.Context) (*model.ImageUpload, func()) {
	file, header, err := ctx.Request.FormFile("image")
	if err != nil {
		return nil, func() {}
	}
	return &model.ImageUpload{
		File:     file,
		Filename: header.Filename,
		Size:     header.Size,
	}, func() { closeFileFlow(file) }
}

func closeFileFlow(res io.ReadCloser) {
	if res == nil {
		return
	}
	if err := res.Close(); err != nil {
		log.Println("Handler failed to close fileflow:", err)
	}
}
