package models

import "time"

// GarantiaStatus is the lifecycle state of a warranty claim.
type GarantiaStatus string

const (
	// GarantiaAberta marks an open claim.
	GarantiaAberta GarantiaStatus = "aberta"
	// GarantiaEnviada marks a claim sent to the supplier.
	GarantiaEnviada GarantiaStatus = "enviada"
	// GarantiaConcluida marks a resolved claim.
	GarantiaConcluida GarantiaStatus = "concluida"
)

// Garantia represents a warranty claim for a defective product.
type Garantia struct {
	ID uint64 `gorm:"primaryKey"`
	// Produto is the defective product description.
	Produto string `gorm:"size:200;not null"`
	// NotaFiscal is the invoice number backing the claim.
	NotaFiscal string `gorm:"size:60"`
	// Fornecedor is the supplier the claim is raised against.
	Fornecedor string `gorm:"size:150"`
	// Defeito describes the reported defect.
	Defeito string `gorm:"type:text"`
	// Status is the claim lifecycle state.
	Status    GarantiaStatus `gorm:"type:varchar(20);default:'aberta'"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Garantia model.
func (Garantia) TableName() string {
	return "garantias"
}
