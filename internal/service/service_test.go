package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/UnendingLoop/LostAndFound/internal/model"
	"github.com/UnendingLoop/LostAndFound/internal/storage/fsstorage"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"
)

var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newTestService(repo *mockRepo, images *mockImages, pub *mockPublisher) *ItemService {
	if pub == nil {
		pub = &mockPublisher{sendFn: func(context.Context, retry.Strategy, []byte, []byte) error { return nil }}
	}
	return &ItemService{
		repo:      repo,
		images:    images,
		publisher: pub,
		maxUpload: DefaultMaxUpload,
		now:       func() time.Time { return fixedNow },
	}
}

// хелпер для создания файла
func newFakeFile(content []byte) *fakeMultipartFile {
	return &fakeMultipartFile{Reader: bytes.NewReader(content)}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 32, 16))
	for x := 0; x < 32; x++ {
		img.Set(x, x%16, color.NRGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func upload(data []byte, name string) *model.ImageUpload {
	return &model.ImageUpload{File: newFakeFile(data), Filename: name, Size: int64(len(data))}
}

// хелпер для генерации корректного ItemCreateData
func validCreateData(t *testing.T) *model.ItemCreateData {
	return &model.ItemCreateData{
		Title:         "Black wallet",
		Description:   "Leather, no cards inside",
		DateFound:     "2026-10-14",
		LocationFound: "Library, 2nd floor",
		Image:         upload(pngBytes(t), "wallet.png"),
	}
}

// CREATE - SUCCESS
func TestItemService_Create_OK(t *testing.T) {
	var ingestedID string
	var events []model.ItemEvent

	repo := &mockRepo{
		createFn: func(ctx context.Context, item *model.Item) error {
			require.Equal(t, ingestedID, item.UID.String())
			require.Equal(t, "image.png", item.ImageFile)
			require.Equal(t, "Black wallet", item.Title)
			require.NotNil(t, item.CreatedAt)
			return nil
		},
	}
	images := &mockImages{
		ingestFn: func(ctx context.Context, r io.Reader, filename, id string) (string, error) {
			data, err := io.ReadAll(r)
			require.NoError(t, err)
			require.Equal(t, pngBytes(t), data)
			require.Equal(t, "wallet.png", filename)
			ingestedID = id
			return "image.png", nil
		},
	}
	pub := &mockPublisher{
		sendFn: func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
			var ev model.ItemEvent
			require.NoError(t, json.Unmarshal(v, &ev))
			require.Equal(t, string(key), ev.ItemUID)
			events = append(events, ev)
			return nil
		},
	}

	item, err := newTestService(repo, images, pub).Create(context.Background(), validCreateData(t))
	require.NoError(t, err)
	require.Equal(t, "image.png", item.ImageFile)
	require.Len(t, events, 1)
	require.Equal(t, model.EventItemCreated, events[0].Type)
}

// CREATE - VALIDATION FAIL: nothing reaches the image store
func TestItemService_Create_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(d *model.ItemCreateData)
		wantErr error
	}{
		{name: "empty title", mutate: func(d *model.ItemCreateData) { d.Title = "   " }, wantErr: model.ErrEmptyTitle},
		{name: "long title", mutate: func(d *model.ItemCreateData) { d.Title = string(bytes.Repeat([]byte("a"), 141)) }, wantErr: model.ErrEmptyTitle},
		{name: "empty description", mutate: func(d *model.ItemCreateData) { d.Description = "" }, wantErr: model.ErrEmptyDesc},
		{name: "bad date", mutate: func(d *model.ItemCreateData) { d.DateFound = "14.10.2026" }, wantErr: model.ErrIncorrectDate},
		{name: "future date", mutate: func(d *model.ItemCreateData) { d.DateFound = "2026-10-16" }, wantErr: model.ErrIncorrectDate},
		{name: "empty location", mutate: func(d *model.ItemCreateData) { d.LocationFound = "" }, wantErr: model.ErrEmptyLocation},
		{name: "no image", mutate: func(d *model.ItemCreateData) { d.Image = nil }, wantErr: model.ErrImageRequired},
		{name: "not an image", mutate: func(d *model.ItemCreateData) { d.Image = upload([]byte("hello"), "x.jpg") }, wantErr: model.ErrInvalidImage},
		{name: "zero byte image", mutate: func(d *model.ItemCreateData) { d.Image = upload([]byte{}, "x.jpg") }, wantErr: model.ErrInvalidImage},
		{name: "truncated image", mutate: func(d *model.ItemCreateData) {
			data := pngBytes(t)
			d.Image = upload(data[:len(data)/2], "x.png")
		}, wantErr: model.ErrInvalidImage},
		{name: "bad extension", mutate: func(d *model.ItemCreateData) { d.Image.Filename = "wallet.svg" }, wantErr: model.ErrUnsupportedType},
		{name: "declared too large", mutate: func(d *model.ItemCreateData) { d.Image.Size = DefaultMaxUpload + 1 }, wantErr: model.ErrImageTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			images := &mockImages{
				ingestFn: func(context.Context, io.Reader, string, string) (string, error) {
					t.Fatal("ingest must not be called for rejected input")
					return "", nil
				},
			}
			data := validCreateData(t)
			tt.mutate(data)

			_, err := newTestService(&mockRepo{}, images, nil).Create(context.Background(), data)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// CREATE - body larger than the ceiling even though the declared size lied
func TestItemService_Create_BodyTooLarge(t *testing.T) {
	svc := newTestService(&mockRepo{}, &mockImages{}, nil)
	svc.maxUpload = 16

	data := validCreateData(t)
	data.Image.Size = 10

	_, err := svc.Create(context.Background(), data)
	require.ErrorIs(t, err, model.ErrImageTooLarge)
}

// CREATE - INGEST FAIL: the record is never written
func TestItemService_Create_IngestErrors(t *testing.T) {
	tests := []struct {
		name      string
		ingestErr error
		wantErr   error
	}{
		{name: "transient", ingestErr: wrapIngestFailure(fsstorage.ErrIngestFailed), wantErr: model.ErrImageNotStored},
		{name: "cleanup failure", ingestErr: &fsstorage.CleanupError{Path: "/images/x", Err: os.ErrPermission}, wantErr: model.ErrStorageFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockRepo{
				createFn: func(context.Context, *model.Item) error {
					t.Fatal("record must not be created after failed ingest")
					return nil
				},
			}
			images := &mockImages{
				ingestFn: func(context.Context, io.Reader, string, string) (string, error) {
					return "", tt.ingestErr
				},
			}

			_, err := newTestService(repo, images, nil).Create(context.Background(), validCreateData(t))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// CREATE - DB FAIL: the stored asset is removed again
func TestItemService_Create_DBErrorRemovesAsset(t *testing.T) {
	var ingested, removed string
	repo := &mockRepo{
		createFn: func(context.Context, *model.Item) error { return errors.New("db down") },
	}
	images := &mockImages{
		ingestFn: func(_ context.Context, _ io.Reader, _ string, id string) (string, error) {
			ingested = id
			return "image.png", nil
		},
		removeFn: func(_ context.Context, id string) error {
			removed = id
			return nil
		},
	}

	_, err := newTestService(repo, images, nil).Create(context.Background(), validCreateData(t))
	require.ErrorIs(t, err, model.ErrCommon500)
	require.NotEmpty(t, ingested)
	require.Equal(t, ingested, removed)
}

// REPLACEIMAGE - SUCCESS
func TestItemService_ReplaceImage_OK(t *testing.T) {
	id := uuid.New().String()
	var saved string

	repo := &mockRepo{
		getFn: func(context.Context, string) (*model.Item, error) {
			return &model.Item{UID: uuid.MustParse(id), ImageFile: "image.jpg"}, nil
		},
		updateImageFn: func(_ context.Context, _ string, file string) error {
			saved = file
			return nil
		},
	}
	images := &mockImages{
		ingestFn: func(_ context.Context, _ io.Reader, filename, gotID string) (string, error) {
			require.Equal(t, id, gotID)
			return "image" + filepath.Ext(filename), nil
		},
	}

	item, err := newTestService(repo, images, nil).ReplaceImage(context.Background(), id, upload(pngBytes(t), "new.png"))
	require.NoError(t, err)
	require.Equal(t, "image.png", item.ImageFile)
	require.Equal(t, "image.png", saved)
}

// REPLACEIMAGE - INGEST FAIL: the item no longer references an image
func TestItemService_ReplaceImage_IngestFailClearsReference(t *testing.T) {
	id := uuid.New().String()
	cleared := false
	var events []model.EventType

	repo := &mockRepo{
		getFn: func(context.Context, string) (*model.Item, error) {
			return &model.Item{ImageFile: "image.jpg"}, nil
		},
		updateImageFn: func(_ context.Context, _ string, file string) error {
			require.Empty(t, file)
			cleared = true
			return nil
		},
	}
	images := &mockImages{
		ingestFn: func(context.Context, io.Reader, string, string) (string, error) {
			return "", wrapIngestFailure(fsstorage.ErrIngestFailed)
		},
	}
	pub := &mockPublisher{
		sendFn: func(_ context.Context, _ retry.Strategy, _ []byte, v []byte) error {
			var ev model.ItemEvent
			require.NoError(t, json.Unmarshal(v, &ev))
			events = append(events, ev.Type)
			return nil
		},
	}

	_, err := newTestService(repo, images, pub).ReplaceImage(context.Background(), id, upload(pngBytes(t), "new.png"))
	require.ErrorIs(t, err, model.ErrImageNotStored)
	require.True(t, cleared)
	require.Equal(t, []model.EventType{model.EventItemImageLost}, events)
}

// REPLACEIMAGE - FAIL - bad id / not found / invalid image
func TestItemService_ReplaceImage_Rejects(t *testing.T) {
	notFound := &mockRepo{getFn: func(context.Context, string) (*model.Item, error) { return nil, model.ErrItemNotFound }}
	found := &mockRepo{getFn: func(context.Context, string) (*model.Item, error) { return &model.Item{}, nil }}

	tests := []struct {
		name    string
		id      string
		repo    *mockRepo
		upload  *model.ImageUpload
		wantErr error
	}{
		{name: "bad id", id: "42", repo: found, upload: upload(pngBytes(t), "a.png"), wantErr: model.ErrIncorrectID},
		{name: "unknown item", id: uuid.New().String(), repo: notFound, upload: upload(pngBytes(t), "a.png"), wantErr: model.ErrItemNotFound},
		{name: "invalid image", id: uuid.New().String(), repo: found, upload: upload([]byte("nope"), "a.png"), wantErr: model.ErrInvalidImage},
		{name: "missing image", id: uuid.New().String(), repo: found, upload: nil, wantErr: model.ErrImageRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestService(tt.repo, &mockImages{}, nil).ReplaceImage(context.Background(), tt.id, tt.upload)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// GETLIST - SUCCESS
func TestItemService_GetList_OK(t *testing.T) {
	repo := &mockRepo{
		getListFn: func(ctx context.Context, req *model.ListRequest) ([]model.Item, error) {
			require.Equal(t, 1, req.Page)
			require.Equal(t, 30, req.Limit)
			require.Equal(t, "created_at", req.Sort)
			require.Equal(t, "DESC", req.Order)
			return []model.Item{{UID: uuid.New()}}, nil
		},
	}

	res, err := newTestService(repo, nil, nil).GetList(context.Background(), &model.ListRequest{})
	require.NoError(t, err)
	require.Len(t, res, 1)
}

// GETLIST - huge page is clamped so the offset stays positive
func TestItemService_GetList_PageClamped(t *testing.T) {
	repo := &mockRepo{
		getListFn: func(ctx context.Context, req *model.ListRequest) ([]model.Item, error) {
			require.Equal(t, maxPage, req.Page)
			require.Equal(t, 100, req.Limit)
			require.Positive(t, (req.Page-1)*req.Limit)
			return nil, nil
		},
	}

	req := &model.ListRequest{Page: math.MaxInt, Limit: 100}
	_, err := newTestService(repo, nil, nil).GetList(context.Background(), req)
	require.NoError(t, err)
}

// GET - FAIL
func TestItemService_Get_InvalidID(t *testing.T) {
	_, err := newTestService(&mockRepo{}, nil, nil).Get(context.Background(), "bad-id")
	require.ErrorIs(t, err, model.ErrIncorrectID)
}

func TestItemService_Get_DBError(t *testing.T) {
	repo := &mockRepo{getFn: func(context.Context, string) (*model.Item, error) { return nil, errors.New("db down") }}
	_, err := newTestService(repo, nil, nil).Get(context.Background(), uuid.New().String())
	require.ErrorIs(t, err, model.ErrCommon500)
}

// LOADIMAGE / LOADTHUMBNAIL
func TestItemService_LoadImage(t *testing.T) {
	dir := t.TempDir()
	orig := filepath.Join(dir, "image.png")
	require.NoError(t, os.WriteFile(orig, pngBytes(t), 0o644))

	withImage := &mockRepo{getFn: func(context.Context, string) (*model.Item, error) { return &model.Item{ImageFile: "image.png"}, nil }}
	noImage := &mockRepo{getFn: func(context.Context, string) (*model.Item, error) { return &model.Item{}, nil }}

	tests := []struct {
		name     string
		repo     *mockRepo
		original func(string) (string, error)
		wantErr  error
	}{
		{name: "ok", repo: withImage, original: func(string) (string, error) { return orig, nil }},
		{name: "no image on record", repo: noImage, wantErr: model.ErrImageNotFound},
		{name: "missing on disk", repo: withImage, original: func(string) (string, error) { return "", fsstorage.ErrAssetNotFound }, wantErr: model.ErrImageNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(tt.repo, &mockImages{originalFn: tt.original}, nil)
			rc, ct, err := svc.LoadImage(context.Background(), uuid.New().String())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer rc.Close()
			require.Equal(t, model.PNG, ct)
		})
	}
}

func TestItemService_LoadThumbnail(t *testing.T) {
	dir := t.TempDir()
	thumb := filepath.Join(dir, "thumb_small", "thumb.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(thumb), 0o755))
	require.NoError(t, os.WriteFile(thumb, []byte("jpeg-bytes"), 0o644))

	repo := &mockRepo{getFn: func(context.Context, string) (*model.Item, error) { return &model.Item{ImageFile: "image.png"}, nil }}
	images := &mockImages{
		renditionFn: func(_ string, label string) (string, error) {
			if label != "small" {
				return "", fsstorage.ErrUnknownSize
			}
			return thumb, nil
		},
	}
	svc := newTestService(repo, images, nil)

	rc, ct, err := svc.LoadThumbnail(context.Background(), uuid.New().String(), "small")
	require.NoError(t, err)
	defer rc.Close()
	require.Equal(t, model.JPEG, ct)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "jpeg-bytes", string(body))

	_, _, err = svc.LoadThumbnail(context.Background(), uuid.New().String(), "huge")
	require.ErrorIs(t, err, model.ErrIncorrectSize)
}

// DELETE - FAIL - NOT FOUND
func TestItemService_Delete_NotFound(t *testing.T) {
	repo := &mockRepo{
		getFn: func(ctx context.Context, id string) (*model.Item, error) {
			return nil, model.ErrItemNotFound
		},
	}

	err := newTestService(repo, nil, nil).Delete(context.Background(), uuid.New().String())
	require.ErrorIs(t, err, model.ErrItemNotFound)
}

// DELETE - SUCCESS and CLEANUP FAILURE
func TestItemService_Delete(t *testing.T) {
	tests := []struct {
		name      string
		removeErr error
		wantErr   error
		wantEvent bool
	}{
		{name: "ok", wantEvent: true},
		{name: "cleanup failure", removeErr: &fsstorage.CleanupError{Path: "/x", Err: os.ErrPermission}, wantErr: model.ErrStorageFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			published := false
			repo := &mockRepo{
				getFn:    func(context.Context, string) (*model.Item, error) { return &model.Item{}, nil },
				deleteFn: func(context.Context, string) error { return nil },
			}
			images := &mockImages{removeFn: func(context.Context, string) error { return tt.removeErr }}
			pub := &mockPublisher{sendFn: func(context.Context, retry.Strategy, []byte, []byte) error {
				published = true
				return nil
			}}

			err := newTestService(repo, images, pub).Delete(context.Background(), uuid.New().String())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.wantEvent, published)
		})
	}
}

// PUBLISH - failures never fail the committed operation
func TestItemService_PublishFailureIsLogged(t *testing.T) {
	repo := &mockRepo{createFn: func(context.Context, *model.Item) error { return nil }}
	images := &mockImages{ingestFn: func(context.Context, io.Reader, string, string) (string, error) { return "image.png", nil }}
	pub := &mockPublisher{sendFn: func(context.Context, retry.Strategy, []byte, []byte) error { return errors.New("kafka down") }}

	_, err := newTestService(repo, images, pub).Create(context.Background(), validCreateData(t))
	require.NoError(t, err)
}

func wrapIngestFailure(err error) error {
	return errors.Join(err, errors.New("rendition \"large\": encode failed"))
}
