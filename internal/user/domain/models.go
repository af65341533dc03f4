// Package domain contains the users whose inboxes are scanned.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicereminder/internal/barcode"
)

// User owns scan definitions, mailbox tokens and a chat destination.
type User struct {
	ID                   snowflake.ID          `gorm:"primaryKey" json:"id"`
	Name                 string                `gorm:"type:text;not null" json:"name"`
	Email                string                `gorm:"type:text;not null;uniqueIndex" json:"email"`
	ChatID               int64                 `gorm:"not null;default:0" json:"chat_id"`
	EmailAuthTokens      []EmailAuthToken      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	ScanEmailDefinitions []ScanEmailDefinition `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"scan_email_definitions,omitempty"`
	CreatedAt            time.Time             `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt            time.Time             `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// EmailAuthToken is a stored mailbox OAuth token. Access and refresh tokens
// are encrypted at rest.
type EmailAuthToken struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID       snowflake.ID `gorm:"not null;index" json:"user_id"`
	Provider     string       `gorm:"type:text;not null;default:'google'" json:"provider"`
	AccessToken  string       `gorm:"type:text;not null" json:"-"`
	RefreshToken string       `gorm:"type:text;not null" json:"-"`
	TokenType    string       `gorm:"type:text" json:"token_type"`
	Expiry       time.Time    `json:"expiry"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (EmailAuthToken) TableName() string { return "email_auth_tokens" }

// ProviderGoogle is the only mailbox provider the fetcher can read.
const ProviderGoogle = "google"

// IsGoogle reports whether the token was issued by Google. An empty provider
// predates the column default and is treated as Google.
func (t EmailAuthToken) IsGoogle() bool {
	return t.Provider == "" || strings.EqualFold(t.Provider, ProviderGoogle)
}

// ScanEmailDefinition selects which inbound emails are scanned and how their
// attachment is decoded.
type ScanEmailDefinition struct {
	ID             snowflake.ID         `gorm:"primaryKey" json:"id"`
	UserID         snowflake.ID         `gorm:"not null;index" json:"user_id"`
	Sender         string               `gorm:"type:text;not null" json:"sender"`
	AttachmentName string               `gorm:"type:text" json:"attachment_name"`
	Beneficiary    string               `gorm:"type:text;not null" json:"beneficiary"`
	DocumentType   barcode.DocumentType `gorm:"type:text;not null" json:"document_type"`
	CreatedAt      time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time            `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ScanEmailDefinition) TableName() string { return "scan_email_definitions" }

// DefinitionFor returns the scan definition whose beneficiary matches payee.
func (u *User) DefinitionFor(payee string) (ScanEmailDefinition, bool) {
	for _, def := range u.ScanEmailDefinitions {
		if def.Beneficiary == payee {
			return def, true
		}
	}
	return ScanEmailDefinition{}, false
}

// HasUsableToken reports whether the user holds a mailbox token the fetcher
// can authenticate with.
func (u *User) HasUsableToken() bool {
	for _, token := range u.EmailAuthTokens {
		if token.IsGoogle() && (token.AccessToken != "" || token.RefreshToken != "") {
			return true
		}
	}
	return false
}
