package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arnavshah/aid-coordination-api/pkg/database"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidKeyFormat = errors.New("invalid key format")
	ErrInvalidSignature = errors.New("invalid signature")
)

var jwtAlgorithm = jwt.SigningMethodHS256

// bcryptCost is lowered in tests
var bcryptCost = 12

// Claims represents the JWT claims. Subject carries the account email.
type Claims struct {
	UserID string        `json:"id"`
	Role   database.Role `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies access tokens and API keys
type Authenticator struct {
	jwtSecret    []byte
	masterSecret []byte
	tokenTTL     time.Duration
	now          func() time.Time
}

// New returns an Authenticator signing tokens with jwtSecret and API keys with masterSecret.
func New(jwtSecret, masterSecret string, tokenTTL time.Duration) *Authenticator {
	return &Authenticator{
		jwtSecret:    []byte(jwtSecret),
		masterSecret: []byte(masterSecret),
		tokenTTL:     tokenTTL,
		now:          time.Now,
	}
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its hash
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CreateToken signs an access token for the given account
func (a *Authenticator) CreateToken(subject, userID string, role database.Role) (string, error) {
	now := a.now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwtAlgorithm, claims).SignedString(a.jwtSecret)
}

// VerifyToken verifies a JWT token and returns its claims
func (a *Authenticator) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwtAlgorithm {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateHMACKey creates a signed API key "<name>.<hex hmac>"
func (a *Authenticator) GenerateHMACKey(name string) string {
	return name + "." + a.sign(name)
}

// VerifyHMACKey validates an HMAC-signed API key and returns its name
func (a *Authenticator) VerifyHMACKey(key string) (string, error) {
	i := strings.LastIndex(key, ".")
	if i <= 0 || i == len(key)-1 {
		return "", ErrInvalidKeyFormat
	}
	name, provided := key[:i], key[i+1:]

	if !hmac.Equal([]byte(provided), []byte(a.sign(name))) {
		return "", ErrInvalidSignature
	}
	return name, nil
}

func (a *Authenticator) sign(name string) string {
	h := hmac.New(sha256.New, a.masterSecret)
	h.Write([]byte(name))
	return hex.EncodeToString(h.Sum(nil))
}

// AdminStore is the storage EnsureAdminExists needs
type AdminStore interface {
	CountMasterUsers(ctx context.Context) (int64, error)
	CreateMasterUser(ctx context.Context, u *database.MasterUser) error
}

// EnsureAdminExists creates the master admin when the table is empty.
// It reports whether a user was created.
func EnsureAdminExists(ctx context.Context, admins AdminStore, username, password string) (bool, error) {
	count, err := admins.CountMasterUsers(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	user := database.MasterUser{
		Username:     username,
		PasswordHash: hash,
	}
	if err := admins.CreateMasterUser(ctx, &user); err != nil {
		return false, err
	}
	return true, nil
}
