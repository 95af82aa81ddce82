package repository

import (
	"database/sql"
	"errors"

	"trade-review/internal/models"

	"github.com/jmoiron/sqlx"
)

type DutyRepository struct {
	db *sqlx.DB
}

func NewDutyRepository(db *sqlx.DB) *DutyRepository {
	return &DutyRepository{db: db}
}

func (r *DutyRepository) GetRate(itemCode string) (float64, bool, error) {
	var rate float64
	err := r.db.Get(&rate, "SELECT rate FROM duty_rates WHERE item_code = ? LIMIT 1", itemCode)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rate, true, nil
}

func (r *DutyRepository) BulkUpsert(rates map[string]float64) (int, error) {
	if len(rates) == 0 {
		return 0, nil
	}

	records := make([]models.DutyRecord, 0, len(rates))
	for code, rate := range rates {
		records = append(records, models.DutyRecord{ItemCode: code, Rate: rate})
	}

	query := `INSERT INTO duty_rates (item_code, rate)
	          VALUES (:item_code, :rate)
	          ON DUPLICATE KEY UPDATE rate = VALUES(rate)`
	if _, err := r.db.NamedExec(query, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (r *DutyRepository) FindAll(limit, offset int) ([]models.DutyRecord, int, error) {
	var total int
	if err := r.db.Get(&total, "SELECT COUNT(*) FROM duty_rates"); err != nil {
		return nil, 0, err
	}

	var records []models.DutyRecord
	query := "SELECT * FROM duty_rates ORDER BY item_code LIMIT ? OFFSET ?"
	if err := r.db.Select(&records, query, limit, offset); err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (r *DutyRepository) Count() (int, error) {
	var total int
	err := r.db.Get(&total, "SELECT COUNT(*) FROM duty_rates")
	return total, err
}
