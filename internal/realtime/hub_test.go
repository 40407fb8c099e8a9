// Package realtime - Test quản lý room và fan-out sự kiện của hub.
package realtime

import (
	"encoding/json"
	"testing"

	"fb_helpdesk/internal/logger"
)

// testClient tạo client không có kết nối thật, chỉ dùng kênh send
func testClient(hub *Hub, userID string, queueSize int) *Client {
	c := &Client{
		hub:    hub,
		userID: userID,
		send:   make(chan []byte, queueSize),
		log:    logger.GetAppLogger(),
	}
	hub.Join(UserRoom(userID), c)
	return c
}

func TestRoomNames(t *testing.T) {
	if got := UserRoom("u1"); got != "user:u1" {
		t.Errorf("UserRoom = %q", got)
	}
	if got := PageRoom("p1"); got != "page:p1" {
		t.Errorf("PageRoom = %q", got)
	}
}

func TestHubJoinLeave(t *testing.T) {
	hub := NewHub()
	c1 := testClient(hub, "u1", 4)
	c2 := testClient(hub, "u2", 4)

	hub.Join(PageRoom("p1"), c1)
	hub.Join(PageRoom("p1"), c2)
	if got := hub.RoomSize(PageRoom("p1")); got != 2 {
		t.Errorf("RoomSize = %d, muốn 2", got)
	}

	hub.Leave(PageRoom("p1"), c1)
	if got := hub.RoomSize(PageRoom("p1")); got != 1 {
		t.Errorf("RoomSize sau Leave = %d, muốn 1", got)
	}

	// Leave client không có trong room là no-op
	hub.Leave(PageRoom("p1"), c1)
	if got := hub.RoomSize(PageRoom("p1")); got != 1 {
		t.Errorf("Leave lặp làm thay đổi room: %d", got)
	}
}

func TestHubUnregister_GoKhoiMoiRoom(t *testing.T) {
	hub := NewHub()
	c := testClient(hub, "u1", 4)
	hub.Join(PageRoom("p1"), c)
	hub.Join(PageRoom("p2"), c)

	hub.Unregister(c)
	if hub.RoomSize(UserRoom("u1")) != 0 || hub.RoomSize(PageRoom("p1")) != 0 || hub.RoomSize(PageRoom("p2")) != 0 {
		t.Error("Unregister phải gỡ client khỏi mọi room")
	}
}

func TestHubPublish_ChiDenRoomDich(t *testing.T) {
	hub := NewHub()
	c1 := testClient(hub, "u1", 4)
	c2 := testClient(hub, "u2", 4)

	hub.Publish(UserRoom("u1"), EventNewMessage, map[string]string{"body": "xin chào"})

	select {
	case data := <-c1.send:
		var envelope eventEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			t.Fatalf("khung sự kiện không phải JSON: %v", err)
		}
		if envelope.Event != EventNewMessage {
			t.Errorf("Event = %q, muốn %q", envelope.Event, EventNewMessage)
		}
	default:
		t.Fatal("c1 phải nhận được sự kiện")
	}

	select {
	case <-c2.send:
		t.Error("c2 không ở room đích, không được nhận sự kiện")
	default:
	}
}

func TestHubPublish_RoomKhongTonTai(t *testing.T) {
	hub := NewHub()
	// Không panic khi room rỗng
	hub.Publish(PageRoom("p_rong"), EventNewComment, nil)
}

func TestHubPublish_ClientDayHangDoiBiNgat(t *testing.T) {
	hub := NewHub()
	slow := testClient(hub, "u1", 1)
	ok := testClient(hub, "u2", 4)
	hub.Join(PageRoom("p1"), slow)
	hub.Join(PageRoom("p1"), ok)

	// Lần 1 lấp đầy hàng đợi của slow, lần 2 phải ngắt slow nhưng vẫn tới ok
	hub.Publish(PageRoom("p1"), EventNewComment, map[string]string{"n": "1"})
	hub.Publish(PageRoom("p1"), EventNewComment, map[string]string{"n": "2"})

	if len(ok.send) != 2 {
		t.Errorf("client bình thường nhận %d sự kiện, muốn 2", len(ok.send))
	}

	// Kênh send của slow đã bị đóng sau khi drain
	<-slow.send
	_, open := <-slow.send
	if open {
		t.Error("kênh send của client đầy hàng đợi phải bị đóng")
	}
}

func TestHubPublish_SauKhiNgatKhongPanicVaGoKhoiRoom(t *testing.T) {
	hub := NewHub()
	slow := testClient(hub, "u1", 1)
	hub.Join(PageRoom("p1"), slow)

	// Lần 1 lấp đầy hàng đợi, lần 2 ngắt slow
	hub.Publish(PageRoom("p1"), EventNewComment, map[string]string{"n": "1"})
	hub.Publish(PageRoom("p1"), EventNewComment, map[string]string{"n": "2"})

	if hub.RoomSize(PageRoom("p1")) != 0 || hub.RoomSize(UserRoom("u1")) != 0 {
		t.Error("client bị ngắt phải được gỡ khỏi mọi room ngay")
	}

	// Publish tiếp vào các room cũ không được gửi vào kênh đã đóng
	hub.Publish(PageRoom("p1"), EventNewComment, map[string]string{"n": "3"})
	hub.Publish(UserRoom("u1"), EventNewMessage, map[string]string{"n": "4"})

	// trySend sau khi đóng trả về false thay vì panic (đua giữa Publish và ReadPump)
	if slow.trySend([]byte("x")) {
		t.Error("trySend vào client đã đóng phải trả về false")
	}
}
