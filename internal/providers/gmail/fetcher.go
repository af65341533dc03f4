// Package gmail fetches invoice attachments from a user's Gmail inbox using
// the OAuth tokens stored for that user.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicereminder/internal/cryptoutil"
	userdomain "github.com/smallbiznis/invoicereminder/internal/user/domain"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const (
	labelUnread     = "UNREAD"
	defaultMaxFetch = 10
)

var ErrNoGoogleToken = errors.New("gmail_token_missing")

// TokenStore persists secrets rotated by the OAuth token source.
type TokenStore interface {
	RefreshToken(ctx context.Context, tokenID snowflake.ID, accessToken, refreshToken string, expiry time.Time) error
}

type serviceFactory func(ctx context.Context, ts oauth2.TokenSource) (*gmailapi.Service, error)

type Fetcher struct {
	oauth      *oauth2.Config
	encryptor  cryptoutil.Encryptor
	tokens     TokenStore
	log        *zap.Logger
	newService serviceFactory
	maxFetch   int64
}

func NewFetcher(oauth *oauth2.Config, encryptor cryptoutil.Encryptor, tokens TokenStore, log *zap.Logger) *Fetcher {
	return &Fetcher{
		oauth:     oauth,
		encryptor: encryptor,
		tokens:    tokens,
		log:       log.Named("providers.gmail"),
		newService: func(ctx context.Context, ts oauth2.TokenSource) (*gmailapi.Service, error) {
			return gmailapi.NewService(ctx, option.WithTokenSource(ts))
		},
		maxFetch: defaultMaxFetch,
	}
}

// GetAttachments returns, per scan definition payee, the first matching
// attachment of an unread message from the definition's sender. Messages
// whose attachment was taken are marked read.
func (f *Fetcher) GetAttachments(ctx context.Context, user *userdomain.User) (map[string][]byte, error) {
	stored, ok := latestGoogleToken(user.EmailAuthTokens)
	if !ok {
		return nil, ErrNoGoogleToken
	}
	token, err := f.decrypt(stored)
	if err != nil {
		return nil, err
	}

	ts := oauth2.ReuseTokenSource(token, f.oauth.TokenSource(ctx, token))
	svc, err := f.newService(ctx, ts)
	if err != nil {
		return nil, fmt.Errorf("gmail: new service: %w", err)
	}

	result := make(map[string][]byte)
	for _, def := range user.ScanEmailDefinitions {
		if _, done := result[def.Beneficiary]; done {
			continue
		}
		data, found, err := f.fetchOne(ctx, svc, def)
		if err != nil {
			return nil, err
		}
		if found {
			result[def.Beneficiary] = data
		}
	}

	f.persistRotated(ctx, stored, token, ts)
	return result, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, svc *gmailapi.Service, def userdomain.ScanEmailDefinition) ([]byte, bool, error) {
	log := f.log.With(zap.String("sender", def.Sender), zap.String("payee", def.Beneficiary))

	list, err := svc.Users.Messages.List("me").
		Q(searchQuery(def)).
		MaxResults(f.maxFetch).
		Context(ctx).
		Do()
	if err != nil {
		return nil, false, fmt.Errorf("gmail: list messages: %w", err)
	}

	for _, ref := range list.Messages {
		msg, err := svc.Users.Messages.Get("me", ref.Id).Context(ctx).Do()
		if err != nil {
			return nil, false, fmt.Errorf("gmail: get message %s: %w", ref.Id, err)
		}
		part := findAttachment(msg.Payload, def.AttachmentName)
		if part == nil {
			continue
		}

		body, err := svc.Users.Messages.Attachments.Get("me", ref.Id, part.Body.AttachmentId).Context(ctx).Do()
		if err != nil {
			return nil, false, fmt.Errorf("gmail: get attachment %s: %w", ref.Id, err)
		}
		data, err := decodeData(body.Data)
		if err != nil {
			return nil, false, fmt.Errorf("gmail: decode attachment %s: %w", ref.Id, err)
		}

		_, err = svc.Users.Messages.Modify("me", ref.Id, &gmailapi.ModifyMessageRequest{
			RemoveLabelIds: []string{labelUnread},
		}).Context(ctx).Do()
		if err != nil {
			log.Warn("gmail.mark_read_failed", zap.String("message_id", ref.Id), zap.Error(err))
		}

		log.Info("gmail.attachment.fetched",
			zap.String("message_id", ref.Id),
			zap.String("filename", part.Filename),
			zap.Int("bytes", len(data)),
		)
		return data, true, nil
	}
	return nil, false, nil
}

func (f *Fetcher) decrypt(stored userdomain.EmailAuthToken) (*oauth2.Token, error) {
	access, err := f.encryptor.Decrypt(stored.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("gmail: decrypt access token: %w", err)
	}
	refresh, err := f.encryptor.Decrypt(stored.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("gmail: decrypt refresh token: %w", err)
	}
	return &oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    stored.TokenType,
		Expiry:       stored.Expiry,
	}, nil
}

// persistRotated saves the token source's current token when it differs from
// what was loaded. Failures only cost a refresh on the next run.
func (f *Fetcher) persistRotated(ctx context.Context, stored userdomain.EmailAuthToken, original *oauth2.Token, ts oauth2.TokenSource) {
	if f.tokens == nil {
		return
	}
	current, err := ts.Token()
	if err != nil || current.AccessToken == original.AccessToken {
		return
	}
	refresh := current.RefreshToken
	if refresh == "" {
		refresh = original.RefreshToken
	}
	if err := f.tokens.RefreshToken(ctx, stored.ID, current.AccessToken, refresh, current.Expiry); err != nil {
		f.log.Warn("gmail.token.persist_failed", zap.String("token_id", stored.ID.String()), zap.Error(err))
	}
}

func latestGoogleToken(tokens []userdomain.EmailAuthToken) (userdomain.EmailAuthToken, bool) {
	var (
		latest userdomain.EmailAuthToken
		found  bool
	)
	for _, token := range tokens {
		if !token.IsGoogle() {
			continue
		}
		if !found || token.UpdatedAt.After(latest.UpdatedAt) {
			latest, found = token, true
		}
	}
	return latest, found
}

func searchQuery(def userdomain.ScanEmailDefinition) string {
	parts := []string{"is:unread", "has:attachment", "from:" + strings.TrimSpace(def.Sender)}
	if name := strings.TrimSpace(def.AttachmentName); name != "" && !strings.ContainsAny(name, "*?[") {
		parts = append(parts, "filename:"+name)
	}
	return strings.Join(parts, " ")
}

// findAttachment walks the MIME tree for the first PDF attachment whose file
// name matches pattern (a path.Match glob, or any PDF when empty).
func findAttachment(part *gmailapi.MessagePart, pattern string) *gmailapi.MessagePart {
	if part == nil {
		return nil
	}
	if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" && matches(part.Filename, pattern) {
		return part
	}
	for _, child := range part.Parts {
		if found := findAttachment(child, pattern); found != nil {
			return found
		}
	}
	return nil
}

func matches(filename, pattern string) bool {
	name := strings.ToLower(filename)
	if !strings.HasSuffix(name, ".pdf") {
		return false
	}
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return true
	}
	if ok, err := path.Match(pattern, name); err == nil && ok {
		return true
	}
	return strings.Contains(name, pattern)
}

func decodeData(data string) ([]byte, error) {
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return decoded, nil
	}
	return base64.RawURLEncoding.DecodeString(data)
}
