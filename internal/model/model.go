// Package model provides data-structs for internal app-usage
package model

import (
	"errors"
	"mime/multipart"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// Item is a found item listed by a community member.
// ImageFile is empty when the item has no stored photo.
type Item struct {
	UID           uuid.UUID  `json:"uid"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	DateFound     time.Time  `json:"date_found"`
	LocationFound string     `json:"location_found"`
	ImageFile     string     `json:"image_file,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

func (i Item) HasImage() bool { return i.ImageFile != "" }

const (
	MaxTitleLen       = 140
	MaxDescriptionLen = 1000
	MaxLocationLen    = 140
	DateLayout        = "2006-01-02"
)

type ItemCreateData struct {
	Title         string
	Description   string
	DateFound     string
	LocationFound string
	Image         *ImageUpload
}

// ImageUpload is a photo as received from the client, before validation.
type ImageUpload struct {
	File     multipart.File
	Filename string
	Size     int64
}

//-------------------

type ListRequest struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Sort  string `form:"sort"`
	Order string `form:"order"`
}

const (
	ByCreated = "created"
	ByTitle   = "title"
	ByFound   = "found"
	OrderASC  = "ascend"
	OrderDESC = "descend"
)

//-------------------

type EventType string

const (
	EventItemCreated       EventType = "item.created"
	EventItemImageReplaced EventType = "item.image_replaced"
	EventItemImageLost     EventType = "item.image_lost"
	EventItemDeleted       EventType = "item.deleted"
)

// ItemEvent is published to the events topic after a committed change.
type ItemEvent struct {
	Type      EventType `json:"type"`
	ItemUID   string    `json:"item_uid"`
	ImageFile string    `json:"image_file,omitempty"`
	At        time.Time `json:"at"`
}

// ------------------

var (
	ErrCommon500       error = errors.New("something went wrong. Try again later")                          // 500
	ErrStorageFault    error = errors.New("image storage is in an inconsistent state. Contact an operator") // 500
	ErrImageNotStored  error = errors.New("failed to store the image. Try again later")                     // 500
	ErrIncorrectQuery  error = errors.New("incorrect query parameters")                                     // 400
	ErrIncorrectID     error = errors.New("incorrect item UUID")                                            // 400
	ErrItemNotFound    error = errors.New("specified item UUID doesn't exist")                              // 404
	ErrImageNotFound   error = errors.New("item has no image")                                              // 404
	ErrIncorrectSize   error = errors.New("unknown thumbnail size")                                         // 400
	ErrEmptyTitle      error = errors.New("title is required and must be at most 140 characters")           // 400
	ErrEmptyDesc       error = errors.New("description is required and must be at most 1000 characters")    // 400
	ErrEmptyLocation   error = errors.New("location is required and must be at most 140 characters")        // 400
	ErrIncorrectDate   error = errors.New("date found must be YYYY-MM-DD and not in the future")            // 400
	ErrImageRequired   error = errors.New("image is required")                                              // 400
	ErrInvalidImage    error = errors.New("invalid image file")                                             // 400
	ErrImageTooLarge   error = errors.New("image exceeds the upload size limit")                            // 413
	ErrUnsupportedType error = errors.New("unsupported image file type")                                    // 400
)

//--------------------

const (
	JPEG = "image/jpeg"
	PNG  = "image/png"
	GIF  = "image/gif"
	TIFF = "image/tiff"
	BMP  = "image/bmp"
)

var GetCType = map[imaging.Format]string{
	imaging.JPEG: JPEG,
	imaging.PNG:  PNG,
	imaging.GIF:  GIF,
	imaging.TIFF: TIFF,
	imaging.BMP:  BMP,
}

// ContentTypeFor maps a stored file name to its content type.
func ContentTypeFor(filename string) string {
	f, err := imaging.FormatFromFilename(filename)
	if err != nil {
		return "application/octet-stream"
	}
	if ct, ok := GetCType[f]; ok {
		return ct
	}
	return "application/octet-stream"
}
