package auth

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shelfdesk/shelfdesk/pkg/config"
	"github.com/shelfdesk/shelfdesk/pkg/database"
	"github.com/shelfdesk/shelfdesk/pkg/errcodes"
	"github.com/shelfdesk/shelfdesk/pkg/models"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

const invalidCredentials = "Invalid email or password."

// Claims are the JWT claims issued to an admin. Subject duplicates AdminID.
type Claims struct {
	AdminID string `json:"adminId"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}

type RegisterOptions struct {
	Email    string
	Name     string
	Password string
}

// Service handles admin registration, credential checks, and tokens.
type Service struct {
	db          *bun.DB
	jwtSecret   []byte
	tokenExpiry time.Duration
	bcryptCost  int
}

func NewService(db *bun.DB, cfg *config.Config) *Service {
	return &Service{
		db:          db,
		jwtSecret:   []byte(cfg.JWTSecret),
		tokenExpiry: cfg.TokenExpiry,
		bcryptCost:  cfg.BcryptCost,
	}
}

func (svc *Service) Register(ctx context.Context, opts RegisterOptions) (*models.Admin, error) {
	email := normalizeEmail(opts.Email)

	exists, err := svc.db.NewSelect().
		Model((*models.Admin)(nil)).
		Where("ad.email = ?", email).
		Exists(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if exists {
		return nil, errcodes.Conflict("Email already in use.")
	}

	hash, err := svc.HashPassword(opts.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	admin := &models.Admin{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Email:        email,
		Name:         opts.Name,
		PasswordHash: hash,
	}
	_, err = svc.db.NewInsert().Model(admin).Exec(ctx)
	if err != nil {
		// Lost a race with a concurrent registration.
		if database.IsUniqueViolation(err) {
			return nil, errcodes.Conflict("Email already in use.")
		}
		return nil, errors.WithStack(err)
	}

	return admin, nil
}

// Authenticate returns the admin for the given credentials. Unknown emails
// and wrong passwords produce the same error.
func (svc *Service) Authenticate(ctx context.Context, email, password string) (*models.Admin, error) {
	admin := &models.Admin{}
	err := svc.db.NewSelect().
		Model(admin).
		Where("ad.email = ?", normalizeEmail(email)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.Unauthorized(invalidCredentials)
		}
		return nil, errors.WithStack(err)
	}

	if !CheckPassword(password, admin.PasswordHash) {
		return nil, errcodes.Unauthorized(invalidCredentials)
	}

	return admin, nil
}

func (svc *Service) RetrieveAdmin(ctx context.Context, id string) (*models.Admin, error) {
	admin := &models.Admin{}
	err := svc.db.NewSelect().
		Model(admin).
		Where("ad.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Admin")
		}
		return nil, errors.WithStack(err)
	}
	return admin, nil
}

// GenerateToken signs an HS256 token for the admin that expires after the
// configured token expiry. Tokens are never refreshed or revoked.
func (svc *Service) GenerateToken(admin *models.Admin) (string, error) {
	now := time.Now()
	claims := Claims{
		AdminID: admin.ID,
		Email:   admin.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(svc.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.jwtSecret)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return signed, nil
}

func (svc *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return svc.jwtSecret, nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.AdminID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func (svc *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), svc.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", errcodes.ValidationError(`"password" must be at most 72 bytes`)
	}
	if err != nil {
		return "", errors.WithStack(err)
	}
	return string(hash), nil
}

func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
