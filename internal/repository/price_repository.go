package repository

import (
	"database/sql"
	"errors"

	"trade-review/internal/models"

	"github.com/jmoiron/sqlx"
)

type PriceRepository struct {
	db *sqlx.DB
}

func NewPriceRepository(db *sqlx.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// GetPrice resolves the authoritative unit price for an item code. The
// second return is false when the code is not in the table.
func (r *PriceRepository) GetPrice(itemCode string) (float64, bool, error) {
	var price float64
	err := r.db.Get(&price, "SELECT unit_price FROM price_list WHERE item_code = ? LIMIT 1", itemCode)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return price, true, nil
}

// BulkUpsert applies an imported price map by item code and returns the
// number of rows written.
func (r *PriceRepository) BulkUpsert(prices map[string]float64) (int, error) {
	if len(prices) == 0 {
		return 0, nil
	}

	records := make([]models.PriceRecord, 0, len(prices))
	for code, price := range prices {
		records = append(records, models.PriceRecord{ItemCode: code, UnitPrice: price})
	}

	query := `INSERT INTO price_list (item_code, unit_price)
	          VALUES (:item_code, :unit_price)
	          ON DUPLICATE KEY UPDATE unit_price = VALUES(unit_price)`
	if _, err := r.db.NamedExec(query, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

func (r *PriceRepository) FindAll(limit, offset int) ([]models.PriceRecord, int, error) {
	var total int
	if err := r.db.Get(&total, "SELECT COUNT(*) FROM price_list"); err != nil {
		return nil, 0, err
	}

	var records []models.PriceRecord
	query := "SELECT * FROM price_list ORDER BY item_code LIMIT ? OFFSET ?"
	if err := r.db.Select(&records, query, limit, offset); err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (r *PriceRepository) Count() (int, error) {
	var total int
	err := r.db.Get(&total, "SELECT COUNT(*) FROM price_list")
	return total, err
}
