package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/sirupsen/logrus"

	"fb_helpdesk/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendQueueSize  = 64
)

// Client là một kết nối websocket đã xác thực của một agent
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte
	mu     sync.Mutex
	closed bool
	log    *logrus.Logger
}

// NewClient bọc một kết nối websocket vừa upgrade xong.
// Client tự join room user của chính mình.
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	c := &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendQueueSize),
		log:    logger.GetAppLogger(),
	}
	hub.Join(UserRoom(userID), c)
	return c
}

// trySend đẩy sự kiện vào hàng đợi, trả về false khi hàng đợi đầy.
// Giữ chung mutex với closeOnce để không bao giờ gửi vào kênh đã đóng.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeOnce đóng kênh send đúng một lần, writePump sẽ đóng kết nối
func (c *Client) closeOnce() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// clientCommand là khung JSON client gửi lên để join/leave room page
type clientCommand struct {
	Action string `json:"action"`
	PageID string `json:"pageId"`
}

// ReadPump đọc lệnh từ client cho tới khi kết nối đóng.
// Chỉ hỗ trợ join-page-room và leave-page-room, mọi khung khác bị bỏ qua.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.closeOnce()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				c.log.WithFields(logrus.Fields{
					"user_id": c.userID,
					"error":   err.Error(),
				}).Warn("[WS] Kết nối đóng bất thường")
			}
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}

		switch cmd.Action {
		case "join-page-room":
			if cmd.PageID != "" {
				c.hub.Join(PageRoom(cmd.PageID), c)
			}
		case "leave-page-room":
			if cmd.PageID != "" {
				c.hub.Leave(PageRoom(cmd.PageID), c)
			}
		}
	}
}

// WritePump đẩy sự kiện từ hàng đợi xuống client và giữ kết nối bằng ping định kỳ
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
