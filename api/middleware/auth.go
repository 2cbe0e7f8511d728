package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/raydesk/raydesk/pkg/utils"
)

const tokenIssuer = "raydesk"

// LocalAuth 每次启动生成随机密钥并签发一个令牌，界面进程从令牌文件读取后以 Bearer 方式携带
type LocalAuth struct {
	secret []byte
	token  string
}

func NewLocalAuth() (*LocalAuth, error) {
	key, err := utils.GenerateKey(32)
	if err != nil {
		return nil, err
	}
	secret := []byte(key)
	claims := jwt.RegisteredClaims{
		Issuer:   tokenIssuer,
		Subject:  "ui",
		ID:       uuid.NewString(),
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return nil, fmt.Errorf("签发令牌失败: %w", err)
	}
	return &LocalAuth{secret: secret, token: token}, nil
}

func (a *LocalAuth) Token() string { return a.token }

// WriteToken 令牌文件只允许当前用户读取
func (a *LocalAuth) WriteToken(path string) error {
	return utils.WriteFileAtomic(path, []byte(a.token), 0o600)
}

// Verify 校验签名、算法和签发者
func (a *LocalAuth) Verify(tokenStr string) error {
	_, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	return err
}

// Middleware 拒绝缺少或无效令牌的请求
func (a *LocalAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "缺少令牌"})
			return
		}
		if err := a.Verify(tokenStr); err != nil {
			msg := "令牌无效"
			if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
				msg = "令牌签名无效"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": 401, "message": msg})
			return
		}
		c.Next()
	}
}
