// Package realtime quản lý kết nối websocket và phát sự kiện theo room.
// Room "user:<id>" cho các agent của một tài khoản, "page:<id>" cho một page.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"fb_helpdesk/internal/logger"
)

// Tên sự kiện đẩy xuống client
const (
	EventNewMessage          = "new-message"
	EventConversationUpdated = "conversation-updated"
	EventNewComment          = "new-comment"
)

// UserRoom trả về tên room của một tài khoản agent
func UserRoom(userID string) string {
	return "user:" + userID
}

// PageRoom trả về tên room của một page
func PageRoom(pageID string) string {
	return "page:" + pageID
}

// Publisher phát sự kiện realtime tới một room.
// Service layer chỉ phụ thuộc interface này, không phụ thuộc websocket.
type Publisher interface {
	Publish(room string, event string, payload interface{})
}

// eventEnvelope là khung JSON gửi xuống client
type eventEnvelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Hub giữ danh sách client theo room và fan-out sự kiện.
// Giao hàng là at-least-once trong phạm vi tiến trình: client đầy hàng đợi sẽ bị ngắt.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
	log   *logrus.Logger
}

// NewHub tạo hub rỗng
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]bool),
		log:   logger.GetAppLogger(),
	}
}

// Join thêm client vào room
func (h *Hub) Join(room string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
}

// Leave gỡ client khỏi room, xóa room khi rỗng
func (h *Hub) Leave(room string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Unregister gỡ client khỏi mọi room, gọi khi kết nối đóng
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, members := range h.rooms {
		if members[client] {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
}

// RoomSize trả về số client đang trong room
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Publish gửi sự kiện tới mọi client trong room.
// Client có hàng đợi đầy sẽ bị đóng để không chặn các client khác.
func (h *Hub) Publish(room string, event string, payload interface{}) {
	data, err := json.Marshal(eventEnvelope{Event: event, Payload: payload})
	if err != nil {
		h.log.WithFields(logrus.Fields{
			"room":  room,
			"event": event,
			"error": err.Error(),
		}).Error("[WS] Lỗi encode sự kiện realtime")
		return
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for client := range h.rooms[room] {
		members = append(members, client)
	}
	h.mu.RUnlock()

	for _, client := range members {
		if !client.trySend(data) {
			h.log.WithFields(logrus.Fields{
				"room":  room,
				"event": event,
			}).Warn("[WS] Hàng đợi client đầy, ngắt kết nối")
			h.Unregister(client)
			client.closeOnce()
		}
	}
}
