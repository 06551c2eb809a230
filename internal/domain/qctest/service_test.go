package qctest

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qc-vision/backend/internal/domain/photo"
	"qc-vision/backend/internal/utils/optional"
	"qc-vision/backend/internal/utils/platformerrors"
)

type mockRepo struct {
	tests  map[int64]Test
	nextID int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{tests: map[int64]Test{}}
}

func (m *mockRepo) Create(_ context.Context, t *Test) error {
	m.nextID++
	t.ID = m.nextID
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	m.tests[t.ID] = *t
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id int64) (*Test, error) {
	t, ok := m.tests[id]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound, "test not found", nil)
	}
	return &t, nil
}

func (m *mockRepo) List(_ context.Context, params ListParams) ([]Test, int64, error) {
	var out []Test
	for _, t := range m.tests {
		if params.Status != "" && t.Status != params.Status {
			continue
		}
		out = append(out, t)
	}
	return out, int64(len(out)), nil
}

func (m *mockRepo) Update(_ context.Context, t *Test) error {
	m.tests[t.ID] = *t
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id int64) error {
	delete(m.tests, id)
	return nil
}

type mockPurger struct {
	calls   []int64
	reports map[int64]*photo.PurgeReport
}

func (m *mockPurger) PurgeForTest(_ context.Context, testID int64) (*photo.PurgeReport, error) {
	m.calls = append(m.calls, testID)
	if r, ok := m.reports[testID]; ok {
		return r, nil
	}
	return &photo.PurgeReport{}, nil
}

func newTestService(repo *mockRepo, purger *mockPurger) *Service {
	return NewService(repo, purger, zerolog.Nop())
}

func TestCreateDefaultsStatus(t *testing.T) {
	svc := newTestService(newMockRepo(), &mockPurger{})

	created, err := svc.Create(context.Background(), CreateParams{
		ProductID: 12,
		TestType:  "visual",
		Requester: "u0001",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultStatus, created.Status)
	assert.NotZero(t, created.ID)
}

func TestUpdateAppliesOnlySetFields(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockPurger{})

	desc := "initial"
	created, err := svc.Create(context.Background(), CreateParams{
		ProductID:   12,
		TestType:    "visual",
		Requester:   "u0001",
		Description: &desc,
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, Patch{
		Status: optional.Of("in_progress"),
	})
	require.NoError(t, err)
	assert.Equal(t, "in_progress", updated.Status)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "initial", *updated.Description)

	// Explicit null clears a nullable column.
	updated, err = svc.Update(context.Background(), created.ID, Patch{
		Description: optional.Of[*string](nil),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.Description)
}

func TestDeletePurgesPhotosFirst(t *testing.T) {
	repo := newMockRepo()
	purger := &mockPurger{reports: map[int64]*photo.PurgeReport{}}
	svc := newTestService(repo, purger)

	created, err := svc.Create(context.Background(), CreateParams{ProductID: 1, TestType: "visual", Requester: "u0001"})
	require.NoError(t, err)
	purger.reports[created.ID] = &photo.PurgeReport{Deleted: 2, FailedKeys: []string{"photos/20260829/a.jpg"}}

	report, err := svc.Delete(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{created.ID}, purger.calls)
	assert.Equal(t, 2, report.Deleted)
	assert.Len(t, report.FailedKeys, 1)
	assert.Empty(t, repo.tests)
}

func TestDeleteUnknownTest(t *testing.T) {
	purger := &mockPurger{}
	svc := newTestService(newMockRepo(), purger)

	_, err := svc.Delete(context.Background(), 404)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
	assert.Empty(t, purger.calls)
}

func TestReviewApprove(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockPurger{})

	created, err := svc.Create(context.Background(), CreateParams{ProductID: 1, TestType: "visual", Requester: "u0001"})
	require.NoError(t, err)

	comment := "looks good"
	outcome, err := svc.Review(context.Background(), created.ID, "approve", "r0001", &comment)
	require.NoError(t, err)
	assert.False(t, outcome.Deleted)
	require.NotNil(t, outcome.Test.ReviewStatus)
	assert.Equal(t, ReviewApproved, *outcome.Test.ReviewStatus)
	require.NotNil(t, outcome.Test.ReviewedBy)
	assert.Equal(t, "r0001", *outcome.Test.ReviewedBy)
}

func TestReviewRejectDeletes(t *testing.T) {
	repo := newMockRepo()
	purger := &mockPurger{}
	svc := newTestService(repo, purger)

	created, err := svc.Create(context.Background(), CreateParams{ProductID: 1, TestType: "visual", Requester: "u0001"})
	require.NoError(t, err)

	outcome, err := svc.Review(context.Background(), created.ID, "rejected", "r0001", nil)
	require.NoError(t, err)
	assert.True(t, outcome.Deleted)
	assert.Equal(t, []int64{created.ID}, purger.calls)
	assert.Empty(t, repo.tests)
}

func TestReviewInvalidDecision(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockPurger{})

	created, err := svc.Create(context.Background(), CreateParams{ProductID: 1, TestType: "visual", Requester: "u0001"})
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), created.ID, "maybe", "r0001", nil)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestPatchNarrowing(t *testing.T) {
	statusOnly := Patch{Status: optional.Of("done")}
	assert.True(t, statusOnly.OnlyStatus())

	assignee := "u0002"
	assignOnly := Patch{AssignedTo: optional.Of(&assignee)}
	only, cleared := assignOnly.OnlyAssignment()
	assert.True(t, only)
	assert.False(t, cleared)

	unassign := Patch{AssignedTo: optional.Of[*string](nil)}
	only, cleared = unassign.OnlyAssignment()
	assert.True(t, only)
	assert.True(t, cleared)

	mixed := Patch{Status: optional.Of("done"), TestType: optional.Of("visual")}
	assert.False(t, mixed.OnlyStatus())
}
