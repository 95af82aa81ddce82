package models

import "time"

type PriceRecord struct {
	ItemCode  string    `db:"item_code" json:"item_code"`
	UnitPrice float64   `db:"unit_price" json:"unit_price"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type DutyRecord struct {
	ItemCode  string    `db:"item_code" json:"item_code"`
	Rate      float64   `db:"rate" json:"rate"` // duty rate as percentage, zero is valid
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
