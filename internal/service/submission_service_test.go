package service

import (
	"bytes"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-review/internal/models"
)

type fakeSubmissionStore struct {
	nextID  int64
	records map[int64]*models.Submission
}

func newFakeSubmissionStore() *fakeSubmissionStore {
	return &fakeSubmissionStore{nextID: 1, records: map[int64]*models.Submission{}}
}

func (f *fakeSubmissionStore) Create(sub *models.Submission) error {
	sub.ID = f.nextID
	f.nextID++
	cp := *sub
	f.records[sub.ID] = &cp
	return nil
}

func (f *fakeSubmissionStore) GetByID(id int64) (*models.Submission, error) {
	sub, ok := f.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *sub
	return &cp, nil
}

func (f *fakeSubmissionStore) Update(sub *models.Submission) error {
	if _, ok := f.records[sub.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *sub
	f.records[sub.ID] = &cp
	return nil
}

func (f *fakeSubmissionStore) Delete(id int64) error {
	delete(f.records, id)
	return nil
}

type fakePriceSource struct {
	prices map[string]float64
	err    error
}

func (f *fakePriceSource) GetPrice(code string) (float64, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	p, ok := f.prices[code]
	return p, ok, nil
}

type fakeFileStore struct {
	deleted []string
	err     error
}

func (f *fakeFileStore) Delete(path string) error {
	f.deleted = append(f.deleted, path)
	return f.err
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	return log
}

func newTestService(t *testing.T, prices map[string]float64) (*SubmissionService, *fakeSubmissionStore, *fakeFileStore) {
	t.Helper()
	store := newFakeSubmissionStore()
	files := &fakeFileStore{}
	svc := NewSubmissionService(store, &fakePriceSource{prices: prices}, files, testLogger())
	return svc, store, files
}

func seedSubmission(t *testing.T, store *fakeSubmissionStore, userID int, status models.SubmissionStatus, items []models.ClassifiedItem) *models.Submission {
	t.Helper()
	sub := &models.Submission{
		UserID:   userID,
		Filename: "packing.xlsx",
		FilePath: sql.NullString{String: "uploads/packing.xlsx", Valid: true},
		Status:   status,
	}
	require.NoError(t, sub.SetItems(items))
	require.NoError(t, store.Create(sub))
	return sub
}

func classifiedFixture() []models.ClassifiedItem {
	return []models.ClassifiedItem{
		{
			ParsedItem:            validItem(1, "A001", 10, 100.50),
			PriceMatchStatus:      models.MatchStatusMatch,
			ExpectedPrice:         f64Ptr(100.50),
			PriceValidationErrors: []string{},
		},
		{
			ParsedItem:            validItem(2, "A002", 5, 151.25),
			PriceMatchStatus:      models.MatchStatusMismatch,
			ExpectedPrice:         f64Ptr(150.75),
			PriceValidationErrors: []string{"Price mismatch: Expected 150.75, got 151.25"},
		},
	}
}

var testPrices = map[string]float64{
	"A001": 100.50,
	"A002": 150.75,
	"B002": 120.00,
}

func TestProcessSuccess(t *testing.T) {
	svc, store, _ := newTestService(t, testPrices)

	wb := buildWorkbook(t, [][]interface{}{
		{"Item Code", "Quantity", "Price"},
		{"A001", 10, 100.50},
		{"B002", 5, 120.00},
	})

	sub, result, err := svc.Process(7, "packing.xlsx", "uploads/x.xlsx", wb)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, models.StatusSuccess, sub.Status)
	assert.Equal(t, 7, sub.UserID)
	assert.Equal(t, 2, result.ValidItems)

	stored, err := store.GetByID(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, stored.Status)
	items, err := stored.Items()
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestProcessMismatchGoesPending(t *testing.T) {
	svc, _, _ := newTestService(t, testPrices)

	wb := buildWorkbook(t, [][]interface{}{
		{"Item Code", "Quantity", "Price"},
		{"A001", 10, 100.50},
		{"A002", 5, 151.25},
	})

	sub, result, err := svc.Process(7, "packing.xlsx", "", wb)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, sub.Status)
	assert.True(t, result.RequiresReview)
	assert.Equal(t, []string{"Row 2: Price mismatch: Expected 150.75, got 151.25"}, result.ValidationErrors)
}

func TestProcessParseFailureStillRecorded(t *testing.T) {
	svc, store, _ := newTestService(t, testPrices)

	wb := buildWorkbook(t, [][]interface{}{
		{"Description", "Weight"},
		{"widget", 12},
	})

	sub, result, err := svc.Process(7, "bad.xlsx", "uploads/bad.xlsx", wb)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaNotFound)
	assert.Nil(t, result)

	require.NotNil(t, sub)
	assert.Equal(t, models.StatusFailed, sub.Status)
	stored, getErr := store.GetByID(sub.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.StatusFailed, stored.Status)
}

func TestProcessLookupErrorAborts(t *testing.T) {
	store := newFakeSubmissionStore()
	svc := NewSubmissionService(store, &fakePriceSource{err: errors.New("db gone")}, &fakeFileStore{}, testLogger())

	wb := buildWorkbook(t, [][]interface{}{
		{"Item Code", "Quantity", "Price"},
		{"A001", 10, 100.50},
	})

	sub, _, err := svc.Process(7, "packing.xlsx", "", wb)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price lookup failed")
	assert.Nil(t, sub)
	assert.Empty(t, store.records)
}

func TestReviewApprove(t *testing.T) {
	svc, store, _ := newTestService(t, testPrices)
	sub := seedSubmission(t, store, 7, models.StatusPending, classifiedFixture())

	frozen := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return frozen }
	defer func() { nowFunc = time.Now }()

	reviewed, err := svc.Review(models.Actor{UserID: 1, Admin: true}, sub.ID, models.ReviewRequest{Action: "approve"})
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, reviewed.Status)
	assert.Equal(t, int64(1), reviewed.ReviewedBy.Int64)
	assert.Equal(t, frozen, reviewed.ReviewedAt.Time)
	assert.False(t, reviewed.ReviewComment.Valid)
}

func TestReviewRejectRequiresComment(t *testing.T) {
	svc, store, _ := newTestService(t, testPrices)
	sub := seedSubmission(t, store, 7, models.StatusPending, classifiedFixture())

	admin := models.Actor{UserID: 1, Admin: true}

	_, err := svc.Review(admin, sub.ID, models.ReviewRequest{Action: "reject"})
	assert.ErrorIs(t, err, ErrCommentRequired)

	reviewed, err := svc.Review(admin, sub.ID, models.ReviewRequest{Action: "reject", Comment: "prices are off"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, reviewed.Status)
	assert.Equal(t, "prices are off", reviewed.ReviewComment.String)
}

func TestReviewValidation(t *testing.T) {
	svc, store, _ := newTestService(t, testPrices)
	sub := seedSubmission(t, store, 7, models.StatusPending, classifiedFixture())
	admin := models.Actor{UserID: 1, Admin: true}

	_, err := svc.Review(models.Actor{UserID: 7}, sub.ID, models.ReviewRequest{Action: "approve"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Review(admin, sub.ID, models.ReviewRequest{Action: "archive"})
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = svc.Review(admin, sub.ID, models.ReviewRequest{
		Action:  "reject",
		Comment: strings.Repeat("x", maxReviewCommentLen+1),
	})
	assert.ErrorIs(t, err, ErrCommentTooLong)

	_, err = svc.Review(admin, int64(999), models.ReviewRequest{Action: "approve"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestReviewOnlyPending(t *testing.T) {
	svc, store, _ := newTestService(t, testPrices)
	admin := models.Actor{UserID: 1, Admin: true}

	for _, status := range []models.SubmissionStatus{
		models.StatusApproved, models.StatusRejected, models.StatusSuccess, models.StatusFailed,
	} {
		sub := seedSubmission(t, store, 7, status, classifiedFixture())
		_, err := svc.Review(admin, sub.ID, models.ReviewRequest{Action: "approve"})
		assert.ErrorIs(t, err, ErrNotPending, "status %s", status)
	}
}

func TestEditItemFixesMismatch(t *testing.T) {
	svc, store, _ := newTestService(t, testPrices)
	sub := seedSubmission(t, store, 7, models.StatusPending, classifiedFixture())

	owner := models.Actor{UserID: 7}
	edited, result, err := svc.EditItem(owner, sub.ID, 2, models.ItemEdit{Price: f64Ptr(150.75)})
	require.NoError(t, err)

	assert.Equal(t, models.StatusSuccess, edited.Status)
	assert.Equal(t, 2, result.ValidItems)
	assert.Equal(t, models.MatchStatusMatch, result.Items[1].PriceMatchStatus)
}

func TestEditItemOverwritesReviewDecision(t *testing.T) {
	// An edit re-runs reconciliation and replaces the stored status with
	// the fresh result, even when a reviewer already decided.
	svc, store, _ := newTestService(t, testPrices)
	sub := seedSubmission(t, store, 7, models.StatusApproved, classifiedFixture())

	edited, _, err := svc.EditItem(models.Actor{UserID: 7}, sub.ID, 2, models.ItemEdit{Price: f64Ptr(150.75)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, edited.Status)
}

func TestEditItemBlockedOnSuccess(t *testing.T) {
	svc, store, _ := newTestService(t, testPrices)
	sub := seedSubmission(t, store, 7, models.StatusSuccess, classifiedFixture())

	_, _, err := svc.EditItem(models.Actor{UserID: 7}, sub.ID, 1, models.ItemEdit{Price: f64Ptr(99)})
	assert.ErrorIs(t, err, ErrLocked)
}

func TestEditItemOwnership(t *testing.T) {
	svc, store, _ := newTestService(t, testPrices)
	sub := seedSubmission(t, store, 7, models.StatusPending, classifiedFixture())

	_, _, err := svc.EditItem(models.Actor{UserID: 8}, sub.ID, 1, models.ItemEdit{})
	assert.ErrorIs(t, err, ErrForbidden)

	// Admins may edit any submission.
	_, _, err = svc.EditItem(models.Actor{UserID: 1, Admin: true}, sub.ID, 2, models.ItemEdit{Price: f64Ptr(150.75)})
	assert.NoError(t, err)
}

func TestEditItemUnknownRow(t *testing.T) {
	svc, store, _ := newTestService(t, testPrices)
	sub := seedSubmission(t, store, 7, models.StatusPending, classifiedFixture())

	_, _, err := svc.EditItem(models.Actor{UserID: 7}, sub.ID, 42, models.ItemEdit{})
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestEditItemCanIntroduceErrors(t *testing.T) {
	svc, store, _ := newTestService(t, testPrices)
	sub := seedSubmission(t, store, 7, models.StatusPending, classifiedFixture())

	empty := ""
	edited, result, err := svc.EditItem(models.Actor{UserID: 7}, sub.ID, 1, models.ItemEdit{ItemCode: &empty})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, edited.Status)
	assert.Equal(t, models.MatchStatusError, result.Items[0].PriceMatchStatus)
	assert.Contains(t, result.Items[0].ValidationErrors, "Missing item code")
}

func TestDelete(t *testing.T) {
	svc, store, files := newTestService(t, testPrices)
	sub := seedSubmission(t, store, 7, models.StatusPending, classifiedFixture())

	require.NoError(t, svc.Delete(models.Actor{UserID: 7}, sub.ID))
	_, err := store.GetByID(sub.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Equal(t, []string{"uploads/packing.xlsx"}, files.deleted)
}

func TestDeleteBlockedOnSuccess(t *testing.T) {
	svc, store, files := newTestService(t, testPrices)
	sub := seedSubmission(t, store, 7, models.StatusSuccess, classifiedFixture())

	err := svc.Delete(models.Actor{UserID: 7}, sub.ID)
	assert.ErrorIs(t, err, ErrLocked)
	assert.Empty(t, files.deleted)
}

func TestDeleteOwnership(t *testing.T) {
	svc, store, _ := newTestService(t, testPrices)
	sub := seedSubmission(t, store, 7, models.StatusPending, classifiedFixture())

	assert.ErrorIs(t, svc.Delete(models.Actor{UserID: 8}, sub.ID), ErrForbidden)
	assert.NoError(t, svc.Delete(models.Actor{UserID: 1, Admin: true}, sub.ID))
}

func TestDeleteSurvivesFileRemovalFailure(t *testing.T) {
	store := newFakeSubmissionStore()
	files := &fakeFileStore{err: errors.New("disk error")}
	svc := NewSubmissionService(store, &fakePriceSource{prices: testPrices}, files, testLogger())
	sub := seedSubmission(t, store, 7, models.StatusPending, classifiedFixture())

	assert.NoError(t, svc.Delete(models.Actor{UserID: 7}, sub.ID))
	_, err := store.GetByID(sub.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
