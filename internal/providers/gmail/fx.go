package gmail

import (
	"github.com/smallbiznis/invoicereminder/internal/config"
	"github.com/smallbiznis/invoicereminder/internal/cryptoutil"
	"github.com/smallbiznis/invoicereminder/internal/dispatch"
	userdomain "github.com/smallbiznis/invoicereminder/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
)

var Module = fx.Module("providers.gmail",
	fx.Provide(NewOAuthConfig),
	fx.Provide(NewFromConfig),
)

func NewOAuthConfig(cfg config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmailapi.GmailModifyScope},
	}
}

func NewFromConfig(oauth *oauth2.Config, enc cryptoutil.Encryptor, users userdomain.Service, log *zap.Logger) dispatch.AttachmentFetcher {
	if oauth.ClientID == "" {
		log.Warn("gmail.oauth.unconfigured", zap.String("reason", "GOOGLE_CLIENT_ID is empty; token refresh will fail"))
	}
	return NewFetcher(oauth, enc, users, log)
}
