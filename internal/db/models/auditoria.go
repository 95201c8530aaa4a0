package models

import "time"

// AuditoriaStatus is the lifecycle state of an audit.
type AuditoriaStatus string

const (
	// AuditoriaAgendada marks a scheduled audit.
	AuditoriaAgendada AuditoriaStatus = "agendada"
	// AuditoriaRealizada marks a performed audit.
	AuditoriaRealizada AuditoriaStatus = "realizada"
	// AuditoriaCancelada marks a cancelled audit.
	AuditoriaCancelada AuditoriaStatus = "cancelada"
)

// Auditoria represents an internal quality audit entry.
type Auditoria struct {
	ID uint64 `gorm:"primaryKey"`
	// Titulo is a short description of the audit scope.
	Titulo string `gorm:"size:200;not null"`
	// Setor is the audited department.
	Setor string `gorm:"size:100"`
	// Auditor is the responsible auditor's name.
	Auditor string `gorm:"size:150"`
	// Data is the scheduled date.
	Data time.Time
	// Status is the audit lifecycle state.
	Status AuditoriaStatus `gorm:"type:varchar(20);default:'agendada'"`
	// Observacoes holds free-form findings.
	Observacoes string    `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName specifies the database table name for the Auditoria model.
func (Auditoria) TableName() string {
	return "auditorias"
}
