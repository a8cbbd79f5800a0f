package handlers

import (
	"context"
	"io"
	"sync"

	"taproom-backend/storage"
)

type mockStorage struct {
	mu          sync.Mutex
	UploadFn    func(folder, filename, contentType string) (storage.Object, error)
	DeleteFn    func(path string) error
	DeleteCalls []string
	UploadCount int
	Folders     []string
}

func newMockStorage() *mockStorage {
	return &mockStorage{DeleteCalls: []string{}}
}

func (m *mockStorage) Upload(ctx context.Context, folder string, r io.Reader, filename, contentType string) (storage.Object, error) {
	m.mu.Lock()
	m.UploadCount++
	m.Folders = append(m.Folders, folder)
	m.mu.Unlock()

	io.Copy(io.Discard, r)
	if m.UploadFn != nil {
		return m.UploadFn(folder, filename, contentType)
	}
	path := folder + "/1700000000_abcd1234_" + filename
	return storage.Object{URL: "https://storage.googleapis.com/test-bucket/" + path, Path: path}, nil
}

func (m *mockStorage) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	m.DeleteCalls = append(m.DeleteCalls, path)
	m.mu.Unlock()
	if m.DeleteFn != nil {
		return m.DeleteFn(path)
	}
	return nil
}
