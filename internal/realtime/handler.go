package realtime

import (
	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/valyala/fasthttp"

	"fb_helpdesk/internal/common"
)

var upgrader = websocket.FastHTTPUpgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(ctx *fasthttp.RequestCtx) bool { return true },
}

// TokenVerifier xác thực token và trả về user id.
// Websocket không gửi được header Authorization từ trình duyệt nên token đi qua query.
type TokenVerifier func(token string) (string, error)

// NewWSHandler trả về Fiber handler upgrade kết nối websocket tại GET /ws?token=...
func NewWSHandler(hub *Hub, verify TokenVerifier) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			return c.Status(common.StatusUnauthorized).JSON(fiber.Map{
				"code":    common.ErrCodeAuthToken.Code,
				"message": "Thiếu token xác thực",
				"status":  "error",
			})
		}

		userID, err := verify(token)
		if err != nil {
			return c.Status(common.StatusUnauthorized).JSON(fiber.Map{
				"code":    common.ErrCodeAuthToken.Code,
				"message": "Token không hợp lệ hoặc đã hết hạn",
				"status":  "error",
			})
		}

		err = upgrader.Upgrade(c.RequestCtx(), func(conn *websocket.Conn) {
			client := NewClient(hub, conn, userID)
			go client.WritePump()
			client.ReadPump()
		})
		if err != nil {
			return c.Status(common.StatusBadRequest).JSON(fiber.Map{
				"code":    common.ErrCodeValidationInput.Code,
				"message": "Yêu cầu không phải websocket handshake",
				"status":  "error",
			})
		}
		return nil
	}
}
