package photo

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qc-vision/backend/internal/imagepipe"
	"qc-vision/backend/internal/utils/platformerrors"
)

type mockRepo struct {
	photos    map[int64]Photo
	nextID    int64
	createErr error
	deleteErr map[int64]error
}

func newMockRepo() *mockRepo {
	return &mockRepo{photos: map[int64]Photo{}, deleteErr: map[int64]error{}}
}

func (m *mockRepo) Create(_ context.Context, p *Photo) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	p.ID = m.nextID
	m.photos[p.ID] = *p
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id int64) (*Photo, error) {
	p, ok := m.photos[id]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound, "photo not found", nil)
	}
	return &p, nil
}

func (m *mockRepo) ListByTest(_ context.Context, testID int64) ([]Photo, error) {
	var out []Photo
	for _, p := range m.photos {
		if p.TestID == testID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockRepo) Delete(_ context.Context, id int64) error {
	if err := m.deleteErr[id]; err != nil {
		return err
	}
	delete(m.photos, id)
	return nil
}

func (m *mockRepo) Gallery(_ context.Context, _ GalleryParams) ([]GalleryItem, int64, error) {
	return nil, 0, nil
}

type mockStorage struct {
	uploads   map[string][]byte
	uploadErr error
	deleteErr map[string]error
	deleted   []string
}

func newMockStorage() *mockStorage {
	return &mockStorage{uploads: map[string][]byte{}, deleteErr: map[string]error{}}
}

func (m *mockStorage) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	data, _ := io.ReadAll(body)
	m.uploads[key] = data
	return nil
}

func (m *mockStorage) Download(_ context.Context, key string) (io.ReadCloser, string, error) {
	data, ok := m.uploads[key]
	if !ok {
		return nil, "", errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), "image/jpeg", nil
}

func (m *mockStorage) Delete(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	if err := m.deleteErr[key]; err != nil {
		return err
	}
	delete(m.uploads, key)
	return nil
}

func (m *mockStorage) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://store.example/" + key, nil
}

type mockProcessor struct {
	err error
}

func (m *mockProcessor) Process(data []byte, _ string) (*imagepipe.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &imagepipe.Result{
		Bytes:        data,
		Width:        200,
		Height:       150,
		SourceFormat: "jpeg",
		ContentType:  "image/jpeg",
	}, nil
}

type mockTests struct {
	existing map[int64]bool
}

func (m *mockTests) TestExists(_ context.Context, id int64) (bool, error) {
	return m.existing[id], nil
}

func newTestService(repo *mockRepo, store *mockStorage, proc *mockProcessor, tests *mockTests) *Service {
	return NewService(repo, store, proc, tests, time.Hour, zerolog.Nop())
}

var keyPattern = regexp.MustCompile(`^photos/\d{8}/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.jpg$`)

func TestIngestStoresThenRecords(t *testing.T) {
	repo := newMockRepo()
	store := newMockStorage()
	svc := newTestService(repo, store, &mockProcessor{}, &mockTests{existing: map[int64]bool{7: true}})

	p, err := svc.Ingest(context.Background(), []byte("jpeg bytes"), "shot.jpg", 7)
	require.NoError(t, err)
	assert.Regexp(t, keyPattern, p.FilePath)
	assert.Equal(t, int64(7), p.TestID)
	assert.Contains(t, store.uploads, p.FilePath)
	assert.Len(t, repo.photos, 1)
}

func TestIngestUnknownTest(t *testing.T) {
	svc := newTestService(newMockRepo(), newMockStorage(), &mockProcessor{}, &mockTests{existing: map[int64]bool{}})

	_, err := svc.Ingest(context.Background(), []byte("jpeg bytes"), "shot.jpg", 99)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestIngestValidationFailure(t *testing.T) {
	proc := &mockProcessor{err: &imagepipe.ValidationError{
		Reason:  imagepipe.ReasonTooSmall,
		Message: "image too small: 3x3 (minimum 10x10)",
	}}
	repo := newMockRepo()
	svc := newTestService(repo, newMockStorage(), proc, &mockTests{existing: map[int64]bool{1: true}})

	_, err := svc.Ingest(context.Background(), []byte("tiny"), "tiny.jpg", 1)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
	assert.Contains(t, err.Error(), "small")
	assert.Empty(t, repo.photos)
}

func TestIngestStoreFailureLeavesNoRow(t *testing.T) {
	repo := newMockRepo()
	store := newMockStorage()
	store.uploadErr = errors.New("connection refused")
	svc := newTestService(repo, store, &mockProcessor{}, &mockTests{existing: map[int64]bool{1: true}})

	_, err := svc.Ingest(context.Background(), []byte("jpeg bytes"), "shot.jpg", 1)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeExternal))
	assert.Empty(t, repo.photos)
}

func TestDeleteRemovesRowDespiteStorageFailure(t *testing.T) {
	repo := newMockRepo()
	store := newMockStorage()
	svc := newTestService(repo, store, &mockProcessor{}, &mockTests{existing: map[int64]bool{1: true}})

	p, err := svc.Ingest(context.Background(), []byte("jpeg bytes"), "shot.jpg", 1)
	require.NoError(t, err)
	store.deleteErr[p.FilePath] = errors.New("storage down")

	require.NoError(t, svc.Delete(context.Background(), p.ID))
	assert.Empty(t, repo.photos)

	// Retrying once the row is gone reports not found.
	err = svc.Delete(context.Background(), p.ID)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestPurgeForTestAttemptsEveryObject(t *testing.T) {
	repo := newMockRepo()
	store := newMockStorage()
	svc := newTestService(repo, store, &mockProcessor{}, &mockTests{existing: map[int64]bool{1: true}})

	p1, err := svc.Ingest(context.Background(), []byte("one"), "a.jpg", 1)
	require.NoError(t, err)
	p2, err := svc.Ingest(context.Background(), []byte("two"), "b.jpg", 1)
	require.NoError(t, err)

	// First object's delete fails; the second must still be attempted and
	// both rows must go away.
	store.deleteErr[p1.FilePath] = errors.New("storage down")

	report, err := svc.PurgeForTest(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Deleted)
	assert.Equal(t, []string{p1.FilePath}, report.FailedKeys)
	assert.Len(t, store.deleted, 2)
	assert.Contains(t, store.deleted, p2.FilePath)
	assert.Empty(t, repo.photos)
}

func TestPresignURL(t *testing.T) {
	repo := newMockRepo()
	store := newMockStorage()
	svc := newTestService(repo, store, &mockProcessor{}, &mockTests{existing: map[int64]bool{1: true}})

	p, err := svc.Ingest(context.Background(), []byte("jpeg bytes"), "shot.jpg", 1)
	require.NoError(t, err)

	url, expiresIn, err := svc.PresignURL(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://store.example/"+p.FilePath, url)
	assert.Equal(t, 3600, expiresIn)
}
