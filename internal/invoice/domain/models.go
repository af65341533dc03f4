// Package domain contains persistence models for decoded invoices.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Invoice is one payable bill decoded from an email attachment.
type Invoice struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	UserID      snowflake.ID      `gorm:"not null;index" json:"user_id"`
	Bank        string            `gorm:"type:text;not null" json:"bank"`
	Beneficiary string            `gorm:"type:text;not null" json:"beneficiary"`
	Amount      decimal.Decimal   `gorm:"type:numeric(14,2);not null" json:"amount"`
	DueDate     datatypes.Date    `gorm:"not null;index" json:"due_date"`
	Barcode     string            `gorm:"type:text;not null" json:"barcode"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Due returns the due date as a time.Time.
func (i Invoice) Due() time.Time { return time.Time(i.DueDate) }
