package service

import (
	"bytes"
	"context"
	"io"

	"github.com/UnendingLoop/LostAndFound/internal/model"
	"github.com/wb-go/wbf/retry"
)

// MOCK REPOSITORY

type mockRepo struct {
	createFn      func(ctx context.Context, item *model.Item) error
	getFn         func(ctx context.Context, id string) (*model.Item, error)
	getListFn     func(ctx context.Context, req *model.ListRequest) ([]model.Item, error)
	updateImageFn func(ctx context.Context, id string, file string) error
	deleteFn      func(ctx context.Context, id string) error
}

func (m *mockRepo) Create(ctx context.Context, item *model.Item) error {
	return m.createFn(ctx, item)
}

func (m *mockRepo) Get(ctx context.Context, id string) (*model.Item, error) {
	return m.getFn(ctx, id)
}

func (m *mockRepo) GetList(ctx context.Context, req *model.ListRequest) ([]model.Item, error) {
	return m.getListFn(ctx, req)
}

func (m *mockRepo) UpdateImage(ctx context.Context, id string, file string) error {
	return m.updateImageFn(ctx, id, file)
}

func (m *mockRepo) Delete(ctx context.Context, id string) error {
	return m.deleteFn(ctx, id)
}

// MOCK IMAGE STORE

type mockImages struct {
	ingestFn    func(ctx context.Context, r io.Reader, filename, id string) (string, error)
	originalFn  func(id string) (string, error)
	renditionFn func(id, label string) (string, error)
	removeFn    func(ctx context.Context, id string) error
}

func (m *mockImages) Ingest(ctx context.Context, r io.Reader, filename, id string) (string, error) {
	return m.ingestFn(ctx, r, filename, id)
}

func (m *mockImages) Original(id string) (string, error) {
	return m.originalFn(id)
}

func (m *mockImages) Rendition(id, label string) (string, error) {
	return m.renditionFn(id, label)
}

func (m *mockImages) Remove(ctx context.Context, id string) error {
	return m.removeFn(ctx, id)
}

// MOCK PUBLISHER

type mockPublisher struct {
	sendFn func(ctx context.Context, s retry.Strategy, key []byte, v []byte) error
}

func (m *mockPublisher) SendWithRetry(ctx context.Context, s retry.Strategy, key []byte, v []byte) error {
	return m.sendFn(ctx, s, key, v)
}

// MOCK для multipart.File
type fakeMultipartFile struct {
	*bytes.Reader
}

func (f *fakeMultipartFile) Close() error {
	return nil
}
