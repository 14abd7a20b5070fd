// Package hostauth is a reference token service for hosts that expose the
// Core over a network transport (§6.2): it signs and verifies a JWT binding
// a connection to one registered component instance, with replay
// protection via a nonce store. The Core itself never calls this package —
// it is illustrative host-side plumbing, exercised by cmd/minimactd.
package hostauth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/minimact/minimact-sub000/internal/registry"
)

// Service provides JWT-based authentication with replay protection for
// component instance connections. When bound to a Registry, it refuses to
// mint or accept tokens for any component type that registry does not
// know about — a page token in the teacher's sense only ever named a page,
// but a component token names a type the Core's Engine actually has a
// class descriptor for, so that binding is checked here rather than left
// to whatever called GenerateToken.
type Service struct {
	signingKey []byte
	algorithm  jwt.SigningMethod
	nonceStore *NonceStore
	config     *Config
	registry   *registry.Registry
	mu         sync.RWMutex
}

// Config defines Service configuration.
type Config struct {
	TTL               time.Duration // Default: 24 hours
	NonceWindow       time.Duration // Default: 5 minutes
	MaxNoncePerWindow int           // Default: 1000
}

// DefaultConfig returns secure default configuration.
func DefaultConfig() *Config {
	return &Config{
		TTL:               24 * time.Hour,
		NonceWindow:       5 * time.Minute,
		MaxNoncePerWindow: 1000,
	}
}

// ComponentToken is the JWT payload binding a connection to one component
// instance of one registered type.
type ComponentToken struct {
	ComponentID   string    `json:"component_id"`
	ComponentType string    `json:"component_type"`
	IssuedAt      time.Time `json:"iat"`
	ExpiresAt     time.Time `json:"exp"`
	Nonce         string    `json:"nonce"`
	jwt.RegisteredClaims
}

// NonceStore provides in-memory nonce tracking for replay protection.
type NonceStore struct {
	nonces map[string]time.Time
	mu     sync.RWMutex
}

// NewNonceStore creates a new nonce store.
func NewNonceStore() *NonceStore {
	return &NonceStore{nonces: make(map[string]time.Time)}
}

// Add stores a nonce with timestamp.
func (ns *NonceStore) Add(nonce string) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.nonces[nonce] = time.Now()
}

// Exists checks if a nonce exists and is within the window.
func (ns *NonceStore) Exists(nonce string, window time.Duration) bool {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	if timestamp, exists := ns.nonces[nonce]; exists {
		return time.Since(timestamp) < window
	}
	return false
}

// Cleanup removes expired nonces.
func (ns *NonceStore) Cleanup(maxAge time.Duration) int {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	count := 0
	cutoff := time.Now().Add(-maxAge)
	for nonce, timestamp := range ns.nonces {
		if timestamp.Before(cutoff) {
			delete(ns.nonces, nonce)
			count++
		}
	}
	return count
}

// NewService creates a new Service with secure defaults. reg may be nil,
// in which case GenerateToken and VerifyToken accept any component type
// name; a non-nil reg ties token issuance and acceptance to whatever
// component types that registry actually holds class descriptors for.
func NewService(config *Config, reg *registry.Registry) (*Service, error) {
	if config == nil {
		config = DefaultConfig()
	}

	signingKey := make([]byte, 32) // 256-bit key for HS256
	if _, err := rand.Read(signingKey); err != nil {
		return nil, fmt.Errorf("hostauth: generate signing key: %w", err)
	}

	return &Service{
		signingKey: signingKey,
		algorithm:  jwt.SigningMethodHS256, // always HS256 to prevent algorithm confusion
		nonceStore: NewNonceStore(),
		config:     config,
		registry:   reg,
	}, nil
}

// GenerateToken creates a new JWT binding componentID (of componentType) to
// the connection that holds it. Rejects componentType outright when bound
// to a Registry that has no class descriptor for it — minting a token for
// a type the Engine cannot even construct a Component of would just defer
// the failure to the first NewComponent call the token's bearer makes.
func (s *Service) GenerateToken(componentType, componentID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.registry != nil {
		if _, ok := s.registry.Get(componentType); !ok {
			return "", fmt.Errorf("hostauth: component type %q is not registered", componentType)
		}
	}

	now := time.Now()
	nonce, err := generateNonce()
	if err != nil {
		return "", fmt.Errorf("hostauth: generate nonce: %w", err)
	}

	claims := &ComponentToken{
		ComponentID:   componentID,
		ComponentType: componentType,
		IssuedAt:      now,
		ExpiresAt:     now.Add(s.config.TTL),
		Nonce:         nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "minimactd",
			Subject:   componentID,
			Audience:  jwt.ClaimStrings{componentType},
		},
	}

	token := jwt.NewWithClaims(s.algorithm, claims)
	tokenString, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("hostauth: sign token: %w", err)
	}

	return tokenString, nil
}

// VerifyToken validates a JWT and returns the claims, rejecting expired or
// already-seen (replayed) tokens.
func (s *Service) VerifyToken(tokenString string) (*ComponentToken, error) {
	s.mu.Lock() // full lock: verification also writes to the nonce store
	defer s.mu.Unlock()

	token, err := jwt.ParseWithClaims(tokenString, &ComponentToken{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != s.algorithm {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("hostauth: parse token: %w", err)
	}

	claims, ok := token.Claims.(*ComponentToken)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("hostauth: invalid token claims")
	}

	if time.Now().After(claims.ExpiresAt) {
		return nil, fmt.Errorf("hostauth: token expired")
	}

	if s.nonceStore.Exists(claims.Nonce, s.config.NonceWindow) {
		return nil, fmt.Errorf("hostauth: token replay detected")
	}

	if s.registry != nil {
		if _, ok := s.registry.Get(claims.ComponentType); !ok {
			return nil, fmt.Errorf("hostauth: component type %q is not registered", claims.ComponentType)
		}
	}

	s.nonceStore.Add(claims.Nonce)

	return claims, nil
}

// RotateSigningKey generates a new signing key, invalidating every token
// issued under the old one.
func (s *Service) RotateSigningKey() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	newKey := make([]byte, 32)
	if _, err := rand.Read(newKey); err != nil {
		return fmt.Errorf("hostauth: generate new signing key: %w", err)
	}
	s.signingKey = newKey
	return nil
}

// CleanupExpiredNonces removes old nonces to prevent memory leaks.
func (s *Service) CleanupExpiredNonces() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nonceStore.Cleanup(s.config.NonceWindow * 2) // keep 2x window for safety
}

// Config returns a copy of the current configuration.
func (s *Service) Config() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &Config{
		TTL:               s.config.TTL,
		NonceWindow:       s.config.NonceWindow,
		MaxNoncePerWindow: s.config.MaxNoncePerWindow,
	}
}

func generateNonce() (string, error) {
	bytes := make([]byte, 16) // 128-bit nonce
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
