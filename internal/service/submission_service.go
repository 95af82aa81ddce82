package service

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"trade-review/internal/models"
)

const maxReviewCommentLen = 500

// nowFunc is swapped in tests.
var nowFunc = time.Now

var (
	ErrForbidden       = errors.New("not allowed to access this submission")
	ErrNotPending      = errors.New("submission is not in pending status")
	ErrLocked          = errors.New("submission has been finalized")
	ErrInvalidAction   = errors.New("action must be either \"approve\" or \"reject\"")
	ErrCommentRequired = errors.New("comment is required when rejecting")
	ErrCommentTooLong  = errors.New("comment must be less than 500 characters")
	ErrItemNotFound    = errors.New("item row not found in submission")
)

// SubmissionStore persists submission records.
type SubmissionStore interface {
	Create(sub *models.Submission) error
	GetByID(id int64) (*models.Submission, error)
	Update(sub *models.Submission) error
	Delete(id int64) error
}

// PriceSource is the authoritative price table collaborator.
type PriceSource interface {
	GetPrice(itemCode string) (float64, bool, error)
}

// FileStore removes stored original files when their submission goes away.
type FileStore interface {
	Delete(path string) error
}

// SubmissionService owns the submission lifecycle: ingestion, review
// actions and item edits. Status is only ever assigned here; all other
// layers treat it as read-only.
//
// Known quirk, kept on purpose: editing an item re-runs reconciliation and
// overwrites the status with the fresh success/pending result, which
// silently reverts an earlier approve/reject decision.
type SubmissionService struct {
	subs    SubmissionStore
	prices  PriceSource
	files   FileStore
	parser  *ExcelService
	matcher *PriceMatcher
	log     *logrus.Logger
}

func NewSubmissionService(subs SubmissionStore, prices PriceSource, files FileStore, log *logrus.Logger) *SubmissionService {
	return &SubmissionService{
		subs:    subs,
		prices:  prices,
		files:   files,
		parser:  NewExcelService(),
		matcher: NewPriceMatcher(),
		log:     log,
	}
}

// Process parses an uploaded packing list, reconciles it against the price
// list and persists the resulting submission. When the spreadsheet schema
// cannot be resolved the submission is still recorded with status failed,
// and ErrSchemaNotFound is returned alongside it.
func (s *SubmissionService) Process(userID int, filename, filePath string, r io.Reader) (*models.Submission, *models.ReconcileResult, error) {
	sub := &models.Submission{
		UserID:   userID,
		Filename: filename,
		FilePath: sql.NullString{String: filePath, Valid: filePath != ""},
	}

	// Any ingestion failure, schema or otherwise, still records the
	// submission so the user can see why it produced no items.
	items, parseErr := s.parser.ParsePackingList(r)
	if parseErr != nil {
		sub.Status = models.StatusFailed
		if err := sub.SetItems([]models.ClassifiedItem{}); err != nil {
			return nil, nil, err
		}
		if err := s.subs.Create(sub); err != nil {
			return nil, nil, err
		}
		s.log.WithFields(logrus.Fields{
			"submission_id": sub.ID,
			"user_id":       userID,
			"filename":      filename,
		}).Warn("packing list ingestion failed")
		return sub, nil, parseErr
	}

	result, err := s.reconcile(items)
	if err != nil {
		return nil, nil, err
	}

	sub.Status = result.Status
	if err := sub.SetItems(result.Items); err != nil {
		return nil, nil, err
	}
	if err := s.subs.Create(sub); err != nil {
		return nil, nil, err
	}

	s.log.WithFields(logrus.Fields{
		"submission_id": sub.ID,
		"user_id":       userID,
		"status":        sub.Status,
		"total_items":   result.TotalItems,
	}).Info("packing list processed")

	return sub, &result, nil
}

// Review applies an approve or reject decision. Only pending submissions
// can be reviewed, and only by an admin; rejecting requires a comment.
func (s *SubmissionService) Review(actor models.Actor, id int64, req models.ReviewRequest) (*models.Submission, error) {
	if !actor.Admin {
		return nil, ErrForbidden
	}
	if req.Action != "approve" && req.Action != "reject" {
		return nil, ErrInvalidAction
	}
	if req.Action == "reject" && req.Comment == "" {
		return nil, ErrCommentRequired
	}
	if len(req.Comment) > maxReviewCommentLen {
		return nil, ErrCommentTooLong
	}

	sub, err := s.subs.GetByID(id)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.StatusPending {
		return nil, ErrNotPending
	}

	if req.Action == "approve" {
		sub.Status = models.StatusApproved
	} else {
		sub.Status = models.StatusRejected
	}
	sub.ReviewComment = sql.NullString{String: req.Comment, Valid: req.Comment != ""}
	sub.ReviewedBy = sql.NullInt64{Int64: int64(actor.UserID), Valid: true}
	sub.ReviewedAt = sql.NullTime{Time: nowFunc(), Valid: true}

	if err := s.subs.Update(sub); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"submission_id": sub.ID,
		"reviewer_id":   actor.UserID,
		"action":        req.Action,
	}).Info("submission reviewed")

	return sub, nil
}

// EditItem changes the fields of a single item identified by row number,
// re-validates it and re-runs reconciliation over the full item set. The
// fresh success/pending result overwrites the stored status. Edits are
// blocked once a submission reached success.
func (s *SubmissionService) EditItem(actor models.Actor, id int64, row int, edit models.ItemEdit) (*models.Submission, *models.ReconcileResult, error) {
	sub, err := s.subs.GetByID(id)
	if err != nil {
		return nil, nil, err
	}
	if !actor.Admin && sub.UserID != actor.UserID {
		return nil, nil, ErrForbidden
	}
	if sub.Status == models.StatusSuccess {
		return nil, nil, ErrLocked
	}

	classified, err := sub.Items()
	if err != nil {
		return nil, nil, err
	}

	found := false
	parsed := make([]models.ParsedItem, len(classified))
	for i, item := range classified {
		parsed[i] = item.ParsedItem
		if item.Row != row {
			continue
		}
		found = true
		if edit.ItemCode != nil {
			parsed[i].ItemCode = parseCode(*edit.ItemCode)
		}
		if edit.Quantity != nil {
			parsed[i].Quantity = edit.Quantity
		}
		if edit.Price != nil {
			parsed[i].Price = edit.Price
		}
		parsed[i].ValidationErrors = validateItemFields(parsed[i])
	}
	if !found {
		return nil, nil, ErrItemNotFound
	}

	result, err := s.reconcile(parsed)
	if err != nil {
		return nil, nil, err
	}

	sub.Status = result.Status
	if err := sub.SetItems(result.Items); err != nil {
		return nil, nil, err
	}
	if err := s.subs.Update(sub); err != nil {
		return nil, nil, err
	}

	s.log.WithFields(logrus.Fields{
		"submission_id": sub.ID,
		"row":           row,
		"status":        sub.Status,
	}).Info("submission item edited")

	return sub, &result, nil
}

// Delete removes a submission and its stored original file. Successful
// submissions cannot be deleted.
func (s *SubmissionService) Delete(actor models.Actor, id int64) error {
	sub, err := s.subs.GetByID(id)
	if err != nil {
		return err
	}
	if !actor.Admin && sub.UserID != actor.UserID {
		return ErrForbidden
	}
	if sub.Status == models.StatusSuccess {
		return ErrLocked
	}

	if err := s.subs.Delete(id); err != nil {
		return err
	}

	if sub.FilePath.Valid && s.files != nil {
		if err := s.files.Delete(sub.FilePath.String); err != nil {
			s.log.WithError(err).WithField("path", sub.FilePath.String).Warn("failed to remove stored file")
		}
	}

	return nil
}

// Summarize regenerates the display report from classified items.
func (s *SubmissionService) Summarize(items []models.ClassifiedItem) models.ValidationSummary {
	return s.matcher.GetValidationSummary(items)
}

// reconcile runs the matcher with per-item lookups against the price
// source. Lookups read whatever the table holds at that moment; no
// snapshot isolation across items is attempted.
func (s *SubmissionService) reconcile(items []models.ParsedItem) (models.ReconcileResult, error) {
	var lookupErr error
	lookup := func(code string) (float64, bool) {
		price, ok, err := s.prices.GetPrice(code)
		if err != nil {
			lookupErr = err
			return 0, false
		}
		return price, ok
	}

	result := s.matcher.ValidateItems(items, lookup)
	if lookupErr != nil {
		return models.ReconcileResult{}, fmt.Errorf("price lookup failed: %w", lookupErr)
	}
	return result, nil
}
