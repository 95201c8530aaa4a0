package models

import "time"

// Toner represents a toner cartridge stock record.
type Toner struct {
	ID uint64 `gorm:"primaryKey"`
	// Modelo is the cartridge model (e.g., "HP 85A").
	Modelo string `gorm:"size:100;not null"`
	// Impressora is the printer the cartridge belongs to.
	Impressora string `gorm:"size:150"`
	// Setor is the department holding the printer.
	Setor string `gorm:"size:100"`
	// Quantidade is the current stock amount.
	Quantidade int
	// Minimo is the stock level that triggers a reorder warning.
	Minimo    int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Toner model.
func (Toner) TableName() string {
	return "toners"
}

// BelowMinimum reports whether the stock dropped under the reorder level.
func (t *Toner) BelowMinimum() bool {
	return t.Quantidade < t.Minimo
}
