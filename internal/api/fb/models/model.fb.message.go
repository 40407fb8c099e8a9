package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vai trò người gửi
const (
	SenderRoleCustomer   = "customer"
	SenderRoleAgent      = "agent"
	SenderRolePageSystem = "page-system"
)

// Loại nội dung tin nhắn
const (
	MessageKindText    = "text"
	MessageKindImage   = "image"
	MessageKindFile    = "file"
	MessageKindSticker = "sticker"
	MessageKindOther   = "other"
)

// Trạng thái chuyển phát
const (
	DeliveryStateSent      = "sent"
	DeliveryStateDelivered = "delivered"
	DeliveryStateFailed    = "failed"
)

// MessageAttachment là file đính kèm đã chuẩn hóa của một tin nhắn
type MessageAttachment struct {
	Type string `json:"type" bson:"type"` // image | video | audio | file | sticker
	Url  string `json:"url" bson:"url"`
	Name string `json:"name" bson:"name"`
	Size int64  `json:"size" bson:"size"`
}

// FbMessage là một tin nhắn trong hội thoại.
// MessageId unique toàn hệ thống: mid của Facebook, hoặc msg_<uuid> cho tin local
// chưa có mid. Uniqueness này là cơ chế idempotency duy nhất khi webhook và
// sync pull cùng ghi một tin.
type FbMessage struct {
	ID             primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`   // ID của bản ghi
	MessageId      string              `json:"messageId" bson:"messageId"`          // mid của Facebook hoặc msg_<uuid>, unique
	ConversationId string              `json:"conversationId" bson:"conversationId"`// Định danh cục bộ của hội thoại
	SenderId       string              `json:"senderId" bson:"senderId"`            // PSID của khách hoặc id của page
	SenderRole     string              `json:"senderRole" bson:"senderRole"`        // customer | agent | page-system
	Body           string              `json:"body" bson:"body"`                    // Nội dung văn bản
	Kind           string              `json:"kind" bson:"kind" default:"text"`     // text | image | file | sticker | other
	Attachments    []MessageAttachment `json:"attachments" bson:"attachments"`      // Đính kèm đã chuẩn hóa
	SentAt         int64               `json:"sentAt" bson:"sentAt"`                // Epoch milli thời điểm gửi
	IsRead         bool                `json:"isRead" bson:"isRead"`                // Đã được agent đọc chưa
	ReadAt         int64               `json:"readAt" bson:"readAt"`                // Thời điểm đánh dấu đã đọc
	ReadBy         string              `json:"readBy" bson:"readBy"`                // Agent đã đọc
	DeliveryState  string              `json:"deliveryState" bson:"deliveryState" default:"sent"` // sent | delivered | failed

	CreatedAt int64 `json:"createdAt" bson:"createdAt"` // Thời gian tạo
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"` // Thời gian cập nhật
}
