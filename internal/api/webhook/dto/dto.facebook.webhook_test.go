// Package webhookdto - Test phân loại sub-event và kiểm tra cấu trúc envelope.
package webhookdto

import (
	"encoding/json"
	"testing"
)

func TestEnvelopeValid(t *testing.T) {
	cases := []struct {
		name string
		env  Envelope
		want bool
	}{
		{"hợp lệ", Envelope{Object: "page", Entry: []Entry{{ID: "p1"}}}, true},
		{"object sai", Envelope{Object: "user", Entry: []Entry{{ID: "p1"}}}, false},
		{"entry rỗng", Envelope{Object: "page"}, false},
	}
	for _, tc := range cases {
		if got := tc.env.Valid(); got != tc.want {
			t.Errorf("%s: Valid() = %v, muốn %v", tc.name, got, tc.want)
		}
	}
}

func TestMessagingEventKind(t *testing.T) {
	cases := []struct {
		name  string
		event MessagingEvent
		want  string
	}{
		{"message", MessagingEvent{Message: &MessagePayload{Mid: "mid.1"}}, EventKindMessage},
		{"delivery", MessagingEvent{Delivery: &DeliveryPayload{}}, EventKindDelivery},
		{"read", MessagingEvent{Read: &ReadPayload{}}, EventKindRead},
		{"postback", MessagingEvent{Postback: &PostbackPayload{}}, EventKindPostback},
		{"rỗng", MessagingEvent{}, EventKindUnknown},
	}
	for _, tc := range cases {
		if got := tc.event.Kind(); got != tc.want {
			t.Errorf("%s: Kind() = %q, muốn %q", tc.name, got, tc.want)
		}
	}
}

func TestIsSelfEcho(t *testing.T) {
	echo := MessagingEvent{
		Sender:  Party{ID: "cust1"},
		Message: &MessagePayload{IsEcho: true},
	}
	if !echo.IsSelfEcho("page1") {
		t.Error("is_echo=true phải là self echo")
	}

	fromPage := MessagingEvent{
		Sender:  Party{ID: "page1"},
		Message: &MessagePayload{},
	}
	if !fromPage.IsSelfEcho("page1") {
		t.Error("sender trùng page id phải là self echo")
	}

	normal := MessagingEvent{
		Sender:  Party{ID: "cust1"},
		Message: &MessagePayload{},
	}
	if normal.IsSelfEcho("page1") {
		t.Error("tin khách bình thường không phải self echo")
	}
}

func TestIsCommentChange(t *testing.T) {
	comment := ChangeEvent{Field: "feed", Value: ChangeValue{Item: "comment"}}
	if !comment.IsCommentChange() {
		t.Error("feed/comment phải là comment change")
	}
	post := ChangeEvent{Field: "feed", Value: ChangeValue{Item: "post"}}
	if post.IsCommentChange() {
		t.Error("feed/post không phải comment change")
	}
	otherField := ChangeEvent{Field: "mention", Value: ChangeValue{Item: "comment"}}
	if otherField.IsCommentChange() {
		t.Error("field khác feed không phải comment change")
	}
}

// Payload thật của Facebook phải unmarshal về đúng shape
func TestEnvelopeUnmarshal(t *testing.T) {
	raw := `{
		"object": "page",
		"entry": [{
			"id": "123456",
			"time": 1700000000000,
			"messaging": [{
				"sender": {"id": "789"},
				"recipient": {"id": "123456"},
				"timestamp": 1700000000000,
				"message": {
					"mid": "mid.abc",
					"text": "xin chào",
					"attachments": [{"type": "image", "payload": {"url": "https://cdn.fb.com/a.jpg"}}]
				}
			}]
		}]
	}`

	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("unmarshal lỗi: %v", err)
	}
	if !env.Valid() {
		t.Fatal("envelope thật phải hợp lệ")
	}
	event := env.Entry[0].Messaging[0]
	if event.Kind() != EventKindMessage {
		t.Errorf("Kind() = %q, muốn message", event.Kind())
	}
	if event.Message.Mid != "mid.abc" || event.Message.Text != "xin chào" {
		t.Errorf("message parse sai: %+v", event.Message)
	}
	if len(event.Message.Attachments) != 1 || event.Message.Attachments[0].Payload.URL == "" {
		t.Errorf("attachments parse sai: %+v", event.Message.Attachments)
	}
}
