package middleware

import (
	"context"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	authsvc "fb_helpdesk/internal/api/auth/service"
	"fb_helpdesk/internal/common"
	"fb_helpdesk/internal/global"
	"fb_helpdesk/internal/logger"
)

var (
	authUserService *authsvc.UserService
	authUserOnce    sync.Once
)

// getAuthUserService trả về instance dùng chung của UserService cho middleware
func getAuthUserService() *authsvc.UserService {
	authUserOnce.Do(func() {
		svc, err := authsvc.NewUserService()
		if err != nil {
			panic(err)
		}
		authUserService = svc
	})
	return authUserService
}

// VerifyUserToken xác thực token cho các kênh không đi qua HTTP middleware (websocket).
// Trả về user id khi token hợp lệ và còn được lưu trên user.
func VerifyUserToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrTokenInvalid
		}
		return []byte(global.ServerConfig.JwtSecret), nil
	})
	if err != nil {
		return "", common.ErrTokenInvalid
	}

	user, err := getAuthUserService().FindOne(context.Background(), bson.M{"token": token}, nil)
	if err != nil {
		return "", common.ErrTokenInvalid
	}
	if user.IsBlock {
		return "", common.ErrTokenInvalid
	}
	return user.ID.Hex(), nil
}

// AuthMiddleware middleware xác thực cho Fiber.
// Token phải là JWT do server phát hành và còn được lưu trên user (logout sẽ xóa).
func AuthMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		// Lấy token từ header
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			logger.GetAppLogger().WithFields(logrus.Fields{
				"path":   c.Path(),
				"method": c.Method(),
			}).Warn("[AUTH] Thiếu header Authorization")
			HandleErrorResponse(c, common.ErrTokenMissing)
			return nil
		}

		// Kiểm tra định dạng token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			HandleErrorResponse(c, common.ErrTokenInvalid)
			return nil
		}

		token := parts[1]

		// Verify chữ ký và hạn của JWT trước khi chạm vào database
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, common.ErrTokenInvalid
			}
			return []byte(global.ServerConfig.JwtSecret), nil
		})
		if err != nil {
			if strings.Contains(err.Error(), "expired") {
				HandleErrorResponse(c, common.ErrTokenExpired)
				return nil
			}
			HandleErrorResponse(c, common.ErrTokenInvalid)
			return nil
		}

		// Token phải đang được lưu trên user (đăng nhập sau cùng); logout sẽ vô hiệu token cũ
		user, err := getAuthUserService().FindOne(context.Background(), bson.M{"token": token}, nil)
		if err != nil {
			logger.GetAppLogger().WithFields(logrus.Fields{
				"path":  c.Path(),
				"error": err.Error(),
			}).Warn("[AUTH] Token không còn hiệu lực trên user nào")
			HandleErrorResponse(c, common.ErrTokenInvalid)
			return nil
		}

		// Kiểm tra user có bị khóa không
		if user.IsBlock {
			HandleErrorResponse(c, common.NewError(
				common.ErrCodeAuthCredentials,
				"Tài khoản đã bị khóa: "+user.BlockNote,
				common.StatusForbidden,
				nil,
			))
			return nil
		}

		// Lưu thông tin user vào context
		c.Locals("user_id", user.ID.Hex())
		c.Locals("user", user)

		return c.Next()
	}
}
