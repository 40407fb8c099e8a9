// Package router đăng ký route webhook: endpoint public cho Facebook và CRUD log.
package router

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	webhookhdl "fb_helpdesk/internal/api/webhook/handler"
	apirouter "fb_helpdesk/internal/api/router"
	"fb_helpdesk/internal/realtime"
)

// Register trả về hàm đăng ký route webhook.
// Endpoint verify/receive là public: Facebook gọi thẳng, xác thực bằng verify token.
func Register(publisher realtime.Publisher) apirouter.RegisterFunc {
	return func(v1 fiber.Router, r *apirouter.Router) error {
		fbWebhookHandler, err := webhookhdl.NewFacebookWebhookHandler(publisher)
		if err != nil {
			return fmt.Errorf("create facebook webhook handler: %w", err)
		}
		v1.Get("/webhook/facebook", fbWebhookHandler.HandleVerify)
		v1.Post("/webhook/facebook", fbWebhookHandler.HandleReceive)

		webhookLogHandler, err := webhookhdl.NewWebhookLogHandler()
		if err != nil {
			return fmt.Errorf("create webhook log handler: %w", err)
		}
		r.RegisterCRUDRoutes(v1, "/webhook/log", webhookLogHandler, apirouter.ReadOnlyConfig)

		return nil
	}
}
