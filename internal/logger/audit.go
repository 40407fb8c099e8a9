package logger

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// LogAction ghi một hành động của người dùng vào audit log
func LogAction(action string, c fiber.Ctx, details map[string]interface{}) {
	if details == nil {
		details = make(map[string]interface{})
	}

	fields := logrus.Fields{
		"action":     action,
		"ip":         c.IP(),
		"user_agent": c.Get("User-Agent"),
		"details":    details,
		"timestamp":  time.Now(),
	}

	if userID, ok := c.Locals("user_id").(string); ok && userID != "" {
		fields["user_id"] = userID
	}

	GetAuditLogger().WithFields(fields).Info("Audit log")
}

// LogAuth ghi các thao tác đăng nhập, đăng ký, đăng xuất
func LogAuth(action string, c fiber.Ctx, details map[string]interface{}) {
	LogAction("auth_"+action, c, details)
}

// LogSync ghi các lần đồng bộ dữ liệu từ Facebook
func LogSync(action string, c fiber.Ctx, details map[string]interface{}) {
	LogAction("sync_"+action, c, details)
}

// LogModeration ghi các thao tác quản trị comment (ẩn, xóa, trả lời)
func LogModeration(action string, c fiber.Ctx, details map[string]interface{}) {
	LogAction("comment_"+action, c, details)
}
