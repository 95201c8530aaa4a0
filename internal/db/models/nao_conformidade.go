package models

import "time"

// NCStatus is the lifecycle state of a non-conformity.
type NCStatus string

const (
	// NCAberta marks a registered, unreviewed non-conformity.
	NCAberta NCStatus = "aberta"
	// NCEmAnalise marks a non-conformity under analysis.
	NCEmAnalise NCStatus = "em-analise"
	// NCEncerrada marks a closed non-conformity.
	NCEncerrada NCStatus = "encerrada"
)

// NaoConformidade represents a registered non-conformity and its analysis.
// Registration and analysis are guarded by separate permissions.
type NaoConformidade struct {
	ID uint64 `gorm:"primaryKey"`
	// Descricao describes the detected non-conformity.
	Descricao string `gorm:"type:text;not null"`
	// Origem is where the non-conformity was detected (process, audit, client).
	Origem string `gorm:"size:100"`
	// Setor is the department involved.
	Setor string `gorm:"size:100"`
	// Gravidade classifies the severity (leve, moderada, grave).
	Gravidade string `gorm:"size:20"`
	// Analise holds the root-cause analysis, filled by a reviewer.
	Analise string `gorm:"type:text"`
	// AcaoCorretiva holds the agreed corrective action.
	AcaoCorretiva string `gorm:"type:text"`
	// Status is the non-conformity lifecycle state.
	Status NCStatus `gorm:"type:varchar(20);default:'aberta'"`
	// RegistradoPor is the id of the user who registered the entry.
	RegistradoPor string `gorm:"size:40"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName specifies the database table name for the NaoConformidade model.
func (NaoConformidade) TableName() string {
	return "nao_conformidades"
}
