package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicereminder/internal/clock"
	"github.com/smallbiznis/invoicereminder/internal/cryptoutil"
	"github.com/smallbiznis/invoicereminder/internal/user/domain"
	"github.com/smallbiznis/invoicereminder/pkg/db"
	"github.com/smallbiznis/invoicereminder/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Encryptor cryptoutil.Encryptor
	Repo      domain.Repository
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	encryptor cryptoutil.Encryptor
	repo      domain.Repository
	scanDefs  repository.Repository[domain.ScanEmailDefinition]
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("user.service"),
		genID:     p.GenID,
		clock:     c,
		encryptor: p.Encryptor,
		repo:      p.Repo,
		scanDefs:  repository.ProvideStore[domain.ScanEmailDefinition](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateUserRequest) (domain.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.User{}, domain.ErrInvalidName
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, domain.ErrInvalidEmail
	}

	now := s.clock.Now().UTC()
	user := domain.User{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     email,
		ChatID:    req.ChatID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, &user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.User{}, domain.ErrDuplicateEmail
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.User, error) {
	userID, err := parseID(id)
	if err != nil {
		return domain.User{}, err
	}
	user, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

func (s *Service) LoadWithRelations(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	return s.repo.FindWithRelations(ctx, s.db, id)
}

// StoreToken encrypts and saves a mailbox token, replacing any previous token
// for the same provider.
func (s *Service) StoreToken(ctx context.Context, req domain.StoreTokenRequest) (domain.EmailAuthToken, error) {
	user, err := s.GetByID(ctx, req.UserID)
	if err != nil {
		return domain.EmailAuthToken{}, err
	}
	if strings.TrimSpace(req.AccessToken) == "" && strings.TrimSpace(req.RefreshToken) == "" {
		return domain.EmailAuthToken{}, domain.ErrInvalidToken
	}

	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if provider == "" {
		provider = domain.ProviderGoogle
	}
	if provider != domain.ProviderGoogle {
		return domain.EmailAuthToken{}, domain.ErrInvalidProvider
	}

	access, err := s.encryptor.Encrypt(req.AccessToken)
	if err != nil {
		return domain.EmailAuthToken{}, err
	}
	refresh, err := s.encryptor.Encrypt(req.RefreshToken)
	if err != nil {
		return domain.EmailAuthToken{}, err
	}

	now := s.clock.Now().UTC()
	token := domain.EmailAuthToken{
		ID:           s.genID.Generate(),
		UserID:       user.ID,
		Provider:     provider,
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    strings.TrimSpace(req.TokenType),
		Expiry:       req.Expiry.UTC(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.UpsertToken(ctx, s.db, &token); err != nil {
		return domain.EmailAuthToken{}, err
	}

	s.log.Info("user.token.stored", zap.String("user_id", user.ID.String()), zap.String("provider", provider))
	return token, nil
}

func (s *Service) RefreshToken(ctx context.Context, tokenID snowflake.ID, accessToken, refreshToken string, expiry time.Time) error {
	if tokenID == 0 {
		return domain.ErrInvalidID
	}
	if strings.TrimSpace(accessToken) == "" {
		return domain.ErrInvalidToken
	}

	access, err := s.encryptor.Encrypt(accessToken)
	if err != nil {
		return err
	}
	refresh, err := s.encryptor.Encrypt(refreshToken)
	if err != nil {
		return err
	}
	token := domain.EmailAuthToken{
		ID:           tokenID,
		AccessToken:  access,
		RefreshToken: refresh,
		Expiry:       expiry.UTC(),
		UpdatedAt:    s.clock.Now().UTC(),
	}
	if err := s.repo.UpdateTokenSecrets(ctx, s.db, &token); err != nil {
		return err
	}
	s.log.Debug("user.token.refreshed", zap.String("token_id", tokenID.String()))
	return nil
}

func (s *Service) CreateScanDefinition(ctx context.Context, req domain.CreateScanDefinitionRequest) (domain.ScanEmailDefinition, error) {
	user, err := s.GetByID(ctx, req.UserID)
	if err != nil {
		return domain.ScanEmailDefinition{}, err
	}

	sender := strings.TrimSpace(req.Sender)
	if sender == "" {
		return domain.ScanEmailDefinition{}, domain.ErrInvalidSender
	}
	beneficiary := strings.TrimSpace(req.Beneficiary)
	if beneficiary == "" {
		return domain.ScanEmailDefinition{}, domain.ErrInvalidBeneficiary
	}
	if !req.DocumentType.Valid() {
		return domain.ScanEmailDefinition{}, domain.ErrInvalidDocumentType
	}

	now := s.clock.Now().UTC()
	def := domain.ScanEmailDefinition{
		ID:             s.genID.Generate(),
		UserID:         user.ID,
		Sender:         sender,
		AttachmentName: strings.TrimSpace(req.AttachmentName),
		Beneficiary:    beneficiary,
		DocumentType:   req.DocumentType,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.scanDefs.Create(ctx, &def); err != nil {
		return domain.ScanEmailDefinition{}, err
	}
	return def, nil
}

func (s *Service) ListScanDefinitions(ctx context.Context, userID string) ([]domain.ScanEmailDefinition, error) {
	id, err := parseID(userID)
	if err != nil {
		return nil, err
	}
	items, err := s.scanDefs.Find(ctx, &domain.ScanEmailDefinition{UserID: id})
	if err != nil {
		return nil, err
	}
	defs := make([]domain.ScanEmailDefinition, 0, len(items))
	for _, item := range items {
		if item != nil {
			defs = append(defs, *item)
		}
	}
	return defs, nil
}

func (s *Service) DeleteScanDefinition(ctx context.Context, id string) error {
	defID, err := parseID(id)
	if err != nil {
		return err
	}
	existing, err := s.scanDefs.FindOne(ctx, &domain.ScanEmailDefinition{ID: defID})
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrNotFound
	}
	return s.scanDefs.Delete(ctx, defID)
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
