package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// AdminTokenRevocation 已注销的管理员令牌
type AdminTokenRevocation struct {
	TokenID   string `json:"token_id"`
	Username  string `json:"username"`
	RevokedAt int64  `json:"revoked_at"`
}

func adminTokenRevocationKey(tokenID string) string {
	return fmt.Sprintf("auth:admin:revoked:%s", strings.TrimSpace(tokenID))
}

// RevokeAdminToken 记录注销的令牌，保留到令牌自然过期
func RevokeAdminToken(ctx context.Context, tokenID, username string, expiresAt time.Time) error {
	if strings.TrimSpace(tokenID) == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	state := &AdminTokenRevocation{
		TokenID:   tokenID,
		Username:  username,
		RevokedAt: time.Now().Unix(),
	}
	return SetJSON(ctx, adminTokenRevocationKey(tokenID), state, ttl)
}

// IsAdminTokenRevoked 令牌是否已注销
func IsAdminTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	if strings.TrimSpace(tokenID) == "" {
		return false, nil
	}
	var state AdminTokenRevocation
	return GetJSON(ctx, adminTokenRevocationKey(tokenID), &state)
}
