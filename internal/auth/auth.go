// Package auth hashes passwords and issues signed session tokens.
package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/drstein77/grocerystore/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Claims identify the user a session token belongs to.
type Claims struct {
	UserID string      `json:"user_id"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Session is a verified token.
type Session struct {
	ID        string
	UserID    string
	Email     string
	Role      models.Role
	ExpiresAt time.Time
}

func (s Session) IsAdmin() bool {
	return s.Role == models.RoleAdmin
}

// Manager signs and verifies HMAC session tokens and remembers revoked ones
// until they would have expired anyway.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mx      sync.RWMutex
	revoked map[string]time.Time
}

func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}, nil
}

// Issue creates a signed token for user.
func (m *Manager) Issue(user models.User) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Parse verifies the token signature, expiry and revocation.
func (m *Manager) Parse(tokenString string) (*Session, error) {
	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.Time.After(m.now()) {
		return nil, ErrInvalidToken
	}

	m.mx.RLock()
	_, revoked := m.revoked[claims.ID]
	m.mx.RUnlock()
	if revoked {
		return nil, ErrInvalidToken
	}

	return &Session{
		ID:        claims.ID,
		UserID:    claims.UserID,
		Email:     claims.Email,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke invalidates a session before it expires.
func (m *Manager) Revoke(s Session) {
	m.mx.Lock()
	m.revoked[s.ID] = s.ExpiresAt
	m.mx.Unlock()
}

// PruneRevoked forgets revoked tokens that have expired and returns how many were dropped.
func (m *Manager) PruneRevoked() int {
	now := m.now()
	m.mx.Lock()
	defer m.mx.Unlock()

	n := 0
	for id, exp := range m.revoked {
		if !exp.After(now) {
			delete(m.revoked, id)
			n++
		}
	}
	return n
}
