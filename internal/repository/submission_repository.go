package repository

import (
	"trade-review/internal/models"

	"github.com/jmoiron/sqlx"
)

type SubmissionRepository struct {
	db *sqlx.DB
}

func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (r *SubmissionRepository) Create(sub *models.Submission) error {
	query := `INSERT INTO submissions (user_id, filename, file_path, status, items)
	          VALUES (:user_id, :filename, :file_path, :status, :items)`
	result, err := r.db.NamedExec(query, sub)
	if err != nil {
		return err
	}
	sub.ID, _ = result.LastInsertId()
	return nil
}

func (r *SubmissionRepository) GetByID(id int64) (*models.Submission, error) {
	var sub models.Submission
	query := `SELECT id, user_id, '' AS username, filename, file_path, status, items,
	                 review_comment, reviewed_by, reviewed_at, created_at, updated_at
	          FROM submissions WHERE id = ? LIMIT 1`
	err := r.db.Get(&sub, query, id)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// List returns submissions newest first. userID of 0 means all users
// (admin view, with usernames joined in); an empty status means no status
// filter.
func (r *SubmissionRepository) List(limit, offset, userID int, status string) ([]models.Submission, int, error) {
	whereClause := "WHERE 1=1"
	args := []interface{}{}

	if userID > 0 {
		whereClause += " AND s.user_id = ?"
		args = append(args, userID)
	}
	if status != "" {
		whereClause += " AND s.status = ?"
		args = append(args, status)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM submissions s " + whereClause
	if err := r.db.Get(&total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT s.id, s.user_id, COALESCE(u.username, '') AS username, s.filename,
	                 s.file_path, s.status, s.items, s.review_comment, s.reviewed_by,
	                 s.reviewed_at, s.created_at, s.updated_at
	          FROM submissions s
	          LEFT JOIN users u ON u.id = s.user_id ` +
		whereClause + " ORDER BY s.created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var subs []models.Submission
	if err := r.db.Select(&subs, query, args...); err != nil {
		return nil, 0, err
	}

	return subs, total, nil
}

func (r *SubmissionRepository) Update(sub *models.Submission) error {
	query := `UPDATE submissions SET status = :status, items = :items,
	          review_comment = :review_comment, reviewed_by = :reviewed_by,
	          reviewed_at = :reviewed_at WHERE id = :id`
	_, err := r.db.NamedExec(query, sub)
	return err
}

func (r *SubmissionRepository) Delete(id int64) error {
	_, err := r.db.Exec("DELETE FROM submissions WHERE id = ?", id)
	return err
}

func (r *SubmissionRepository) CountByStatus(status models.SubmissionStatus) (int, error) {
	var total int
	err := r.db.Get(&total, "SELECT COUNT(*) FROM submissions WHERE status = ?", status)
	return total, err
}

func (r *SubmissionRepository) Count() (int, error) {
	var total int
	err := r.db.Get(&total, "SELECT COUNT(*) FROM submissions")
	return total, err
}
