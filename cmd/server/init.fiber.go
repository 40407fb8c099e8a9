package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"

	authrouter "fb_helpdesk/internal/api/auth/router"
	"fb_helpdesk/internal/api/events"
	fbmodels "fb_helpdesk/internal/api/fb/models"
	fbrouter "fb_helpdesk/internal/api/fb/router"
	"fb_helpdesk/internal/api/middleware"
	"fb_helpdesk/internal/api/router"
	webhookrouter "fb_helpdesk/internal/api/webhook/router"
	"fb_helpdesk/internal/common"
	"fb_helpdesk/internal/global"
	"fb_helpdesk/internal/logger"
	"fb_helpdesk/internal/realtime"
)

// InitFiberApp khởi tạo ứng dụng Fiber với các middleware cần thiết.
// Hub được truyền vào để các domain router publish sự kiện realtime.
func InitFiberApp(hub *realtime.Hub) *fiber.App {
	log := logger.GetAppLogger()

	app := fiber.New(fiber.Config{
		AppName:       "FB Helpdesk API",
		ServerHeader:  "FB Helpdesk API",
		StrictRouting: true,
		CaseSensitive: true,
		UnescapePath:  true,

		BodyLimit:       10 * 1024 * 1024, // Webhook payload của Facebook có thể chứa attachments
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,

		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,

		ErrorHandler: func(c fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Internal Server Error"
			errorCode := common.ErrCodeInternalServer.Code

			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
				switch code {
				case fiber.StatusBadRequest:
					errorCode = common.ErrCodeValidationInput.Code
				case fiber.StatusUnauthorized:
					errorCode = common.ErrCodeAuthToken.Code
				case fiber.StatusForbidden:
					errorCode = common.ErrCodeAuthCredentials.Code
				case fiber.StatusNotFound, fiber.StatusConflict:
					errorCode = common.ErrCodeDatabaseQuery.Code
				}
			}

			logger.WithRequest(c).WithFields(map[string]interface{}{
				"code":      code,
				"errorCode": errorCode,
				"message":   message,
			}).Error("Request error")

			return c.Status(code).JSON(fiber.Map{
				"code":    errorCode,
				"message": message,
				"status":  "error",
			})
		},
	})

	// Request ID để trace mỗi request qua log
	app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return uuid.NewString()
		},
	}))

	// CORS đặt trước các middleware khác để xử lý preflight requests
	corsOrigins := global.ServerConfig.CORS_Origins
	var allowOrigins []string
	if corsOrigins == "*" {
		allowOrigins = []string{"*"}
	} else {
		allowOrigins = strings.Split(corsOrigins, ",")
		for i, origin := range allowOrigins {
			allowOrigins[i] = strings.TrimSpace(origin)
		}
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Request-ID",
			"X-Requested-With",
		},
		AllowCredentials: global.ServerConfig.CORS_AllowCredentials,
		ExposeHeaders:    []string{"Content-Length", "Content-Range", "X-Request-ID"},
		MaxAge:           24 * 60 * 60,
	}))

	// Security headers
	app.Use(func(c fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		return c.Next()
	})

	// Rate limiting theo IP. Webhook của Facebook không đi qua limiter
	// vì Facebook retry theo lịch riêng, chặn sẽ làm mất event.
	if global.ServerConfig.RateLimit_Enabled && global.ServerConfig.RateLimit_Max > 0 {
		rateLimitMax := global.ServerConfig.RateLimit_Max
		rateLimitWindow := time.Duration(global.ServerConfig.RateLimit_Window) * time.Second
		app.Use(limiter.New(limiter.Config{
			Max:        rateLimitMax,
			Expiration: rateLimitWindow,
			KeyGenerator: func(c fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"code":    common.ErrCodeBusinessOperation.Code,
					"message": "Quá nhiều yêu cầu, vui lòng thử lại sau",
					"status":  "error",
				})
			},
			Next: func(c fiber.Ctx) bool {
				return c.Path() == "/health" ||
					strings.HasPrefix(c.Path(), "/api/v1/webhook/facebook") ||
					c.Method() == "OPTIONS"
			},
		}))
		log.Infof("Rate limiting enabled: %d requests per %d seconds", rateLimitMax, global.ServerConfig.RateLimit_Window)
	} else {
		log.Info("Rate limiting disabled")
	}

	// Recover
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			logger.WithRequest(c).WithFields(map[string]interface{}{
				"panic": e,
			}).Error("Panic recovered")

			c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"code":    common.ErrCodeInternalServer.Code,
				"message": fmt.Sprintf("Internal Server Error: %v", e),
				"status":  "error",
			})
		},
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/health"
		},
	}))

	// Health check cho load balancer, không qua auth
	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Websocket realtime: token truyền qua query vì browser không gửi được header khi upgrade
	app.Get("/ws", realtime.NewWSHandler(hub, middleware.VerifyUserToken))

	// Đăng ký routes của từng domain
	if err := router.SetupRoutes(app,
		authrouter.Register,
		fbrouter.Register(hub),
		webhookrouter.Register(hub),
	); err != nil {
		log.Fatalf("Failed to setup routes: %v", err)
	}

	initRealtimeBridge(hub)

	return app
}

// initRealtimeBridge đẩy thay đổi hội thoại từ các thao tác CRUD lên websocket.
// Các luồng sync/webhook tự publish sau khi reconcile, bridge này phủ phần còn lại
// (ví dụ agent đổi status hoặc assignedAgent qua update-by-id).
func initRealtimeBridge(hub *realtime.Hub) {
	events.OnDataChanged(func(ctx context.Context, e events.DataChangeEvent) {
		if e.CollectionName != global.MongoDB_ColNames.FbConversations {
			return
		}
		conv, ok := e.Document.(fbmodels.FbConversation)
		if !ok {
			return
		}
		if e.Operation != events.OpUpdate && e.Operation != events.OpUpsert {
			return
		}
		if conv.OwnerUserId != "" {
			hub.Publish(realtime.UserRoom(conv.OwnerUserId), realtime.EventConversationUpdated, conv)
		}
		if conv.PageId != "" {
			hub.Publish(realtime.PageRoom(conv.PageId), realtime.EventConversationUpdated, conv)
		}
	})
}
