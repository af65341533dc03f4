package dispatch

//go:generate mockgen -source=collaborators.go -destination=mocks/mock_collaborators.go -package=mocks

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicereminder/internal/barcode"
	invoicedomain "github.com/smallbiznis/invoicereminder/internal/invoice/domain"
	userdomain "github.com/smallbiznis/invoicereminder/internal/user/domain"
)

// UserStore loads a user with tokens and scan definitions. A missing user is
// (nil, nil).
type UserStore interface {
	LoadWithRelations(ctx context.Context, id snowflake.ID) (*userdomain.User, error)
}

// AttachmentFetcher returns unread matching attachments keyed by payee.
type AttachmentFetcher interface {
	GetAttachments(ctx context.Context, user *userdomain.User) (map[string][]byte, error)
}

// ChatSender delivers one HTML message to a chat.
type ChatSender interface {
	Send(ctx context.Context, chatID int64, html string) error
}

type InvoiceStore interface {
	BulkInsert(ctx context.Context, invoices []invoicedomain.Invoice) (int, error)
}

type Extractor interface {
	ReadTextContentFromPdf(ctx context.Context, data []byte, payee string, docType barcode.DocumentType) (invoicedomain.Invoice, error)
}
