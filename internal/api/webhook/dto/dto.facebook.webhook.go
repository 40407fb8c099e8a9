// Package webhookdto chứa DTO cho payload webhook của Facebook.
// Payload có shape động theo loại sub-event, được phân loại tại boundary
// thay vì truy cập field optional rải rác trong business logic.
package webhookdto

// Phân loại sub-event messaging
const (
	EventKindMessage  = "message"
	EventKindPostback = "postback"
	EventKindDelivery = "delivery"
	EventKindRead     = "read"
	EventKindUnknown  = "unknown"
)

// Envelope là khung ngoài của mọi webhook Facebook
type Envelope struct {
	Object string  `json:"object"` // phải là "page"
	Entry  []Entry `json:"entry"`
}

// Valid kiểm tra cấu trúc tối thiểu: object đúng và có ít nhất một entry
func (e *Envelope) Valid() bool {
	return e.Object == "page" && len(e.Entry) > 0
}

// Entry là một page và các sub-event đi kèm
type Entry struct {
	ID        string           `json:"id"`   // page id
	Time      int64            `json:"time"` // epoch milli
	Messaging []MessagingEvent `json:"messaging"`
	Changes   []ChangeEvent    `json:"changes"`
}

// Party là sender hoặc recipient của một sub-event
type Party struct {
	ID string `json:"id"`
}

// MessagePayload là tin nhắn trong sub-event message
type MessagePayload struct {
	Mid         string              `json:"mid"`
	Text        string              `json:"text"`
	IsEcho      bool                `json:"is_echo"`
	StickerID   int64               `json:"sticker_id"`
	Attachments []WebhookAttachment `json:"attachments"`
}

// AttachmentPayload là nội dung của một đính kèm webhook
type AttachmentPayload struct {
	URL       string `json:"url"`
	StickerID int64  `json:"sticker_id"`
}

// WebhookAttachment là đính kèm trong tin nhắn webhook
type WebhookAttachment struct {
	Type    string            `json:"type"` // image | video | audio | file | fallback
	Payload AttachmentPayload `json:"payload"`
}

// DeliveryPayload là delivery receipt
type DeliveryPayload struct {
	Mids      []string `json:"mids"`
	Watermark int64    `json:"watermark"`
}

// ReadPayload là read receipt
type ReadPayload struct {
	Watermark int64 `json:"watermark"`
}

// PostbackPayload là sự kiện người dùng bấm nút
type PostbackPayload struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// MessagingEvent là một sub-event messaging, chỉ một trong các payload khác nil
type MessagingEvent struct {
	Sender    Party            `json:"sender"`
	Recipient Party            `json:"recipient"`
	Timestamp int64            `json:"timestamp"`
	Message   *MessagePayload  `json:"message"`
	Delivery  *DeliveryPayload `json:"delivery"`
	Read      *ReadPayload     `json:"read"`
	Postback  *PostbackPayload `json:"postback"`
}

// Kind phân loại sub-event, shape không nhận diện được trả về unknown
func (m *MessagingEvent) Kind() string {
	switch {
	case m.Message != nil:
		return EventKindMessage
	case m.Delivery != nil:
		return EventKindDelivery
	case m.Read != nil:
		return EventKindRead
	case m.Postback != nil:
		return EventKindPostback
	default:
		return EventKindUnknown
	}
}

// IsSelfEcho nhận diện tin do chính page gửi, phải bỏ qua để tránh vòng echo
func (m *MessagingEvent) IsSelfEcho(pageID string) bool {
	if m.Message != nil && m.Message.IsEcho {
		return true
	}
	return m.Sender.ID == pageID
}

// ChangeEvent là thay đổi trên feed của page (bình luận, bài viết)
type ChangeEvent struct {
	Field string      `json:"field"` // "feed"
	Value ChangeValue `json:"value"`
}

// ChangeValue là nội dung thay đổi feed
type ChangeValue struct {
	Item        string `json:"item"` // comment | post | reaction | ...
	Verb        string `json:"verb"` // add | edited | remove
	CommentID   string `json:"comment_id"`
	PostID      string `json:"post_id"`
	Message     string `json:"message"`
	CreatedTime int64  `json:"created_time"` // epoch giây
	From        struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"from"`
}

// IsCommentChange nhận diện thay đổi liên quan bình luận
func (c *ChangeEvent) IsCommentChange() bool {
	return c.Field == "feed" && c.Value.Item == "comment"
}
