package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// SubmissionStatus is the lifecycle state of an uploaded packing list.
// It is persisted as a closed enum; handlers and repositories never assign
// it directly, transitions go through the review service.
type SubmissionStatus string

const (
	StatusPending  SubmissionStatus = "pending"
	StatusApproved SubmissionStatus = "approved"
	StatusRejected SubmissionStatus = "rejected"
	StatusSuccess  SubmissionStatus = "success"
	StatusFailed   SubmissionStatus = "failed"
)

func (s SubmissionStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// Submission is one uploaded packing list together with its classified
// items and review state. Items are persisted as a JSON blob to keep row
// order stable across reloads.
type Submission struct {
	ID            int64            `db:"id" json:"id"`
	UserID        int              `db:"user_id" json:"user_id"`
	Username      string           `db:"username" json:"username,omitempty"`
	Filename      string           `db:"filename" json:"filename"`
	FilePath      sql.NullString   `db:"file_path" json:"-"`
	Status        SubmissionStatus `db:"status" json:"status"`
	ItemsJSON     sql.NullString   `db:"items" json:"-"`
	ReviewComment sql.NullString   `db:"review_comment" json:"review_comment,omitempty"`
	ReviewedBy    sql.NullInt64    `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt    sql.NullTime     `db:"reviewed_at" json:"reviewed_at,omitempty"`
	UploadTime    time.Time        `db:"created_at" json:"upload_time"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

func (s *Submission) SetItems(items []ClassifiedItem) error {
	if items == nil {
		s.ItemsJSON = sql.NullString{}
		return nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	s.ItemsJSON = sql.NullString{String: string(data), Valid: true}
	return nil
}

func (s *Submission) Items() ([]ClassifiedItem, error) {
	if !s.ItemsJSON.Valid || s.ItemsJSON.String == "" {
		return []ClassifiedItem{}, nil
	}
	var items []ClassifiedItem
	if err := json.Unmarshal([]byte(s.ItemsJSON.String), &items); err != nil {
		return nil, err
	}
	return items, nil
}

type ReviewRequest struct {
	Action  string `json:"action"`
	Comment string `json:"comment"`
}
