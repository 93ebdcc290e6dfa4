package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/telegram"
)

var (
	ErrMissingInitData = errors.New("initData required")
	ErrMissingBotToken = errors.New("server misconfigured: TELEGRAM_BOT_TOKEN")
)

type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// SessionService exchanges verified launch data for a session token.
type SessionService struct {
	db       *gorm.DB
	issuer   *TokenIssuer
	botToken string
	admins   map[int64]struct{}
	logger   *zap.Logger
}

func NewSessionService(db *gorm.DB, issuer *TokenIssuer, botToken string, adminIDs []int64, logger *zap.Logger) *SessionService {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &SessionService{
		db:       db,
		issuer:   issuer,
		botToken: botToken,
		admins:   admins,
		logger:   logger.Named("session"),
	}
}

func (s *SessionService) Login(ctx context.Context, initData string) (*Session, error) {
	if initData == "" {
		return nil, ErrMissingInitData
	}
	if s.botToken == "" {
		return nil, ErrMissingBotToken
	}

	data, err := telegram.ValidateInitData(initData, s.botToken)
	if err != nil {
		return nil, err
	}
	tgUser, ok := data.User()
	if !ok {
		return nil, fmt.Errorf("%w: no user", telegram.ErrInvalidSignature)
	}

	user, err := s.upsertUser(ctx, tgUser)
	if err != nil {
		return nil, err
	}

	token, err := s.issuer.Issue(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session issued",
		zap.String("user_id", user.ID),
		zap.Int64("telegram_id", user.TelegramID),
		zap.String("role", string(user.Role)))

	return &Session{Token: token, User: user}, nil
}

func (s *SessionService) IsAdminID(telegramID int64) bool {
	_, ok := s.admins[telegramID]
	return ok
}

func (s *SessionService) upsertUser(ctx context.Context, tg *telegram.WebAppUser) (*models.User, error) {
	db := s.db.WithContext(ctx)

	user := models.User{
		TelegramID: tg.ID,
		Username:   optional(tg.Username),
		FirstName:  optional(tg.FirstName),
		LastName:   optional(tg.LastName),
		PhotoURL:   optional(tg.PhotoURL),
		Role:       models.RoleUser,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "last_name", "photo_url", "updated_at"}),
	}).Create(&user).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	var stored models.User
	if err := db.Where("telegram_id = ?", tg.ID).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if s.IsAdminID(stored.TelegramID) && stored.Role != models.RoleAdmin {
		if err := db.Model(&stored).Update("role", models.RoleAdmin).Error; err != nil {
			return nil, fmt.Errorf("failed to promote user: %w", err)
		}
		stored.Role = models.RoleAdmin
	}

	return &stored, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// EnsureAdmin creates or promotes the user with telegramID to ADMIN
// ahead of their first login.
func (s *SessionService) EnsureAdmin(ctx context.Context, telegramID int64) (*models.User, error) {
	db := s.db.WithContext(ctx)

	user := models.User{
		TelegramID: telegramID,
		FirstName:  optional("Admin"),
		Role:       models.RoleAdmin,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
	}).Create(&user).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert admin: %w", err)
	}

	var stored models.User
	if err := db.Where("telegram_id = ?", telegramID).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("failed to load admin: %w", err)
	}
	return &stored, nil
}
