package api

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// =============================================================================
// 媒体访问令牌
// =============================================================================

// 媒体令牌用途
const (
	// MediaKindPreview 源图像预览
	MediaKindPreview = "preview"
	// MediaKindResult 编辑结果下载
	MediaKindResult = "result"
)

const defaultMediaTokenTTL = 10 * time.Minute

// MediaClaims 媒体访问令牌声明。
// Version 携带会话当前的预览令牌版本，换图后旧令牌即使未过期
// 也无法再解析到图像。
type MediaClaims struct {
	SessionID string `json:"sid"`
	Kind      string `json:"kind"`
	Version   string `json:"ver,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer 签发与校验媒体访问令牌。
//
// 浏览器里 <img src> 与 <a href> 无法携带认证头，预览与下载
// 地址因此内嵌短期 HS256 令牌，由会话视图签发、媒体端点校验。
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer 创建令牌签发器。
// secret 为空时随机生成（进程重启后已签发的令牌全部失效）。
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if ttl <= 0 {
		ttl = defaultMediaTokenTTL
	}
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate media secret: %w", err)
		}
	}
	return &TokenIssuer{secret: key, ttl: ttl}, nil
}

// Issue 为指定会话与用途签发令牌。
// version 仅对预览令牌有意义，传会话当前的预览令牌版本。
func (i *TokenIssuer) Issue(sessionID, kind, version string) (string, error) {
	now := time.Now()
	claims := MediaClaims{
		SessionID: sessionID,
		Kind:      kind,
		Version:   version,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign media token: %w", err)
	}
	return signed, nil
}

// Verify 校验令牌签名与有效期，并检查会话和用途是否匹配。
// 返回 claims 供调用方进一步核对预览版本。
func (i *TokenIssuer) Verify(tokenStr, sessionID, kind string) (*MediaClaims, error) {
	claims := &MediaClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("parse media token: %w", err)
	}
	if claims.SessionID != sessionID {
		return nil, fmt.Errorf("media token session mismatch")
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("media token kind mismatch")
	}
	return claims, nil
}

// TTL 返回令牌有效期
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}
