package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dujiao-next/newsletter-tracker/internal/cache"
	"github.com/dujiao-next/newsletter-tracker/internal/config"
	"github.com/dujiao-next/newsletter-tracker/internal/constants"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AdminClaims 管理员 JWT 声明
type AdminClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AdminSession 登录结果
type AdminSession struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AdminAuthService 管理员认证，账号来自配置文件
type AdminAuthService struct {
	secret   []byte
	ttl      time.Duration
	accounts map[string]config.AdminAccount

	// Redis 未启用时在进程内记录注销的令牌
	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewAdminAuthService 创建管理员认证服务
func NewAdminAuthService(cfg config.AdminConfig) *AdminAuthService {
	hours := cfg.ExpireHours
	if hours <= 0 {
		hours = 12
	}
	accounts := make(map[string]config.AdminAccount, len(cfg.Accounts))
	for _, account := range cfg.Accounts {
		username := strings.TrimSpace(account.Username)
		if username == "" || strings.TrimSpace(account.PasswordHash) == "" {
			continue
		}
		account.Username = username
		account.Role = normalizeAdminRole(account.Role)
		accounts[username] = account
	}
	return &AdminAuthService{
		secret:   []byte(cfg.JWTSecret),
		ttl:      time.Duration(hours) * time.Hour,
		accounts: accounts,
		revoked:  map[string]time.Time{},
	}
}

// HashPassword 使用 bcrypt 加密密码
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Login 校验账号密码并签发令牌
func (s *AdminAuthService) Login(username, password string) (*AdminSession, error) {
	account, ok := s.accounts[strings.TrimSpace(username)]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	token, expiresAt, err := s.generateToken(account)
	if err != nil {
		return nil, err
	}
	return &AdminSession{
		Username:  account.Username,
		Role:      account.Role,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *AdminAuthService) generateToken(account config.AdminAccount) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)
	claims := AdminClaims{
		Username: account.Username,
		Role:     account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   account.Username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseToken 解析并校验令牌，账号被移除或令牌已注销时返回 ErrInvalidToken
func (s *AdminAuthService) ParseToken(ctx context.Context, tokenString string) (*AdminClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	account, exists := s.accounts[claims.Username]
	if !exists || account.Role != claims.Role {
		return nil, ErrInvalidToken
	}
	if s.isRevoked(ctx, claims.ID) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Logout 注销令牌
func (s *AdminAuthService) Logout(ctx context.Context, claims *AdminClaims) error {
	if claims == nil || claims.ID == "" {
		return nil
	}
	expiresAt := time.Now().Add(s.ttl)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if cache.Enabled() {
		return cache.RevokeAdminToken(ctx, claims.ID, claims.Username, expiresAt)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[claims.ID] = expiresAt
	return nil
}

func (s *AdminAuthService) isRevoked(ctx context.Context, tokenID string) bool {
	if cache.Enabled() {
		revoked, err := cache.IsAdminTokenRevoked(ctx, tokenID)
		return err == nil && revoked
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, until := range s.revoked {
		if now.After(until) {
			delete(s.revoked, id)
		}
	}
	_, revoked := s.revoked[tokenID]
	return revoked
}

func normalizeAdminRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case constants.AdminRoleAdmin:
		return constants.AdminRoleAdmin
	case constants.AdminRoleOperator:
		return constants.AdminRoleOperator
	default:
		return constants.AdminRoleViewer
	}
}
