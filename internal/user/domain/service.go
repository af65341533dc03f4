package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicereminder/internal/barcode"
)

type CreateUserRequest struct {
	Name   string
	Email  string
	ChatID int64
}

type StoreTokenRequest struct {
	UserID       string
	Provider     string
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
}

type CreateScanDefinitionRequest struct {
	UserID         string
	Sender         string
	AttachmentName string
	Beneficiary    string
	DocumentType   barcode.DocumentType
}

type Service interface {
	Create(ctx context.Context, req CreateUserRequest) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	// LoadWithRelations returns nil, nil when the user does not exist.
	LoadWithRelations(ctx context.Context, id snowflake.ID) (*User, error)
	StoreToken(ctx context.Context, req StoreTokenRequest) (EmailAuthToken, error)
	// RefreshToken re-encrypts and saves rotated secrets for an existing token.
	RefreshToken(ctx context.Context, tokenID snowflake.ID, accessToken, refreshToken string, expiry time.Time) error

	CreateScanDefinition(ctx context.Context, req CreateScanDefinitionRequest) (ScanEmailDefinition, error)
	ListScanDefinitions(ctx context.Context, userID string) ([]ScanEmailDefinition, error)
	DeleteScanDefinition(ctx context.Context, id string) error
}

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidSender       = errors.New("invalid_sender")
	ErrInvalidBeneficiary  = errors.New("invalid_beneficiary")
	ErrInvalidDocumentType = errors.New("invalid_document_type")
	ErrInvalidToken        = errors.New("invalid_token")
	ErrInvalidProvider     = errors.New("invalid_provider")
	ErrDuplicateEmail      = errors.New("duplicate_email")
	ErrNotFound            = errors.New("not_found")
)
