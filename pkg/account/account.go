// Package account manages operator accounts, their roles and refresh tokens.
package account

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"typingscore/models"
)

const (
	RoleAdministrator = "administrator"
	RoleBot           = "bot"

	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 6
	// RefreshTokenTTL is how long an unused refresh token stays valid.
	RefreshTokenTTL = 30 * 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOperatorExists     = errors.New("operator already exists")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
	ErrUnknownRole        = errors.New("unknown role")
)

var seedRoles = []models.Role{
	{Name: RoleAdministrator, Description: "full access"},
	{Name: RoleBot, Description: "submits screenshots for chat users"},
}

// Service is the gorm-backed account store.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// New wraps an open gorm connection.
func New(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// Migrate creates the roles, operators and refresh_tokens tables. Roles are
// migrated first so the operators foreign key can be applied.
func (s *Service) Migrate() error {
	for _, m := range []any{&models.Role{}, &models.Operator{}, &models.RefreshToken{}} {
		if err := s.db.AutoMigrate(m); err != nil {
			return fmt.Errorf("migrate %T: %w", m, err)
		}
	}
	return nil
}

// EnsureRoles creates the seeded roles that are missing.
func (s *Service) EnsureRoles(ctx context.Context) error {
	for _, r := range seedRoles {
		r := r
		if err := s.db.WithContext(ctx).Where("name = ?", r.Name).FirstOrCreate(&r).Error; err != nil {
			return fmt.Errorf("ensure role %s: %w", r.Name, err)
		}
	}
	return nil
}

// EnsureAdmin creates the administrator account with the given bcrypt hash
// unless an operator with that name already exists.
func (s *Service) EnsureAdmin(ctx context.Context, username string, hash []byte) error {
	username = strings.TrimSpace(username)
	if username == "" || len(hash) == 0 {
		log.Printf("WARN no administrator seeded (ADMIN_USERNAME or ADMIN_PASSWORD_HASH empty)")
		return nil
	}
	if _, err := bcrypt.Cost(hash); err != nil {
		return fmt.Errorf("admin password hash: %w", err)
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Operator{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return fmt.Errorf("look up admin: %w", err)
	}
	if count > 0 {
		return nil
	}
	role, err := s.role(ctx, RoleAdministrator)
	if err != nil {
		return err
	}
	rid := role.ID
	admin := models.Operator{Username: username, HashedPassword: hash, RoleID: &rid}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Printf("Seeded administrator: username=%s", username)
	return nil
}

// Register creates an operator with roleName.
func (s *Service) Register(ctx context.Context, username, password, roleName string) (models.Operator, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.Operator{}, fmt.Errorf("username required")
	}
	if err := ValidatePassword(password); err != nil {
		return models.Operator{}, err
	}
	role, err := s.role(ctx, roleName)
	if err != nil {
		return models.Operator{}, err
	}
	var existing models.Operator
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&existing).Error; err == nil {
		return models.Operator{}, ErrOperatorExists
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Operator{}, err
	}
	rid := role.ID
	op := models.Operator{Username: username, HashedPassword: hashed, RoleID: &rid, Role: role}
	if err := s.db.WithContext(ctx).Omit("Role").Create(&op).Error; err != nil {
		if isUniqueViolation(err) {
			return models.Operator{}, ErrOperatorExists
		}
		return models.Operator{}, fmt.Errorf("create operator: %w", err)
	}
	return op, nil
}

// Authenticate checks username and password and returns the operator with its role loaded.
func (s *Service) Authenticate(ctx context.Context, username, password string) (models.Operator, error) {
	var op models.Operator
	err := s.db.WithContext(ctx).Preload("Role").Where("username = ?", strings.TrimSpace(username)).First(&op).Error
	if err != nil {
		return models.Operator{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(op.HashedPassword, []byte(password)); err != nil {
		return models.Operator{}, ErrInvalidCredentials
	}
	return op, nil
}

// ResetPassword replaces the password of username.
func (s *Service) ResetPassword(ctx context.Context, username, password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&models.Operator{}).Where("username = ?", username).Update("hashed_password", hashed)
	if res.Error != nil {
		return fmt.Errorf("reset password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("operator %s not found", username)
	}
	return nil
}

// IssueRefreshToken stores the hash of a new random token and returns the raw token.
func (s *Service) IssueRefreshToken(ctx context.Context, operatorID uint) (string, error) {
	raw, hash, err := newToken()
	if err != nil {
		return "", err
	}
	rt := models.RefreshToken{OperatorID: operatorID, TokenHash: hash, ExpiresAt: s.now().Add(RefreshTokenTTL)}
	if err := s.db.WithContext(ctx).Omit("Operator").Create(&rt).Error; err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return raw, nil
}

// Rotate revokes raw and issues a replacement. The operator is returned with
// its role loaded so the caller can mint an access token.
func (s *Service) Rotate(ctx context.Context, raw string) (models.Operator, string, error) {
	var (
		op     models.Operator
		newRaw string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rt models.RefreshToken
		if err := tx.Where("token_hash = ?", HashToken(raw)).First(&rt).Error; err != nil {
			return ErrInvalidToken
		}
		if rt.Revoked || s.now().After(rt.ExpiresAt) {
			return ErrInvalidToken
		}
		if err := tx.Preload("Role").First(&op, rt.OperatorID).Error; err != nil {
			return ErrInvalidToken
		}
		res := tx.Model(&models.RefreshToken{}).Where("id = ? AND revoked = ?", rt.ID, false).Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidToken
		}
		r, hash, err := newToken()
		if err != nil {
			return err
		}
		next := models.RefreshToken{OperatorID: op.ID, TokenHash: hash, ExpiresAt: s.now().Add(RefreshTokenTTL)}
		if err := tx.Omit("Operator").Create(&next).Error; err != nil {
			return err
		}
		newRaw = r
		return nil
	})
	if err != nil {
		return models.Operator{}, "", err
	}
	return op, newRaw, nil
}

// Revoke marks raw as revoked.
func (s *Service) Revoke(ctx context.Context, raw string) error {
	res := s.db.WithContext(ctx).Model(&models.RefreshToken{}).Where("token_hash = ?", HashToken(raw)).Update("revoked", true)
	if res.Error != nil {
		return fmt.Errorf("revoke refresh token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidToken
	}
	return nil
}

func (s *Service) role(ctx context.Context, name string) (models.Role, error) {
	var role models.Role
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Role{}, fmt.Errorf("%w: %s", ErrUnknownRole, name)
		}
		return models.Role{}, fmt.Errorf("find role %s: %w", name, err)
	}
	return role, nil
}

// ValidatePassword applies the password policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password too short (min %d)", MinPasswordLength)
	}
	return nil
}

// HashToken is the stored form of a refresh token.
func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

func newToken() (raw, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(b)
	return raw, HashToken(raw), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
