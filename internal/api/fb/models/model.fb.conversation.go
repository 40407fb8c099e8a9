package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trạng thái hội thoại
const (
	ConversationStatusActive   = "active"
	ConversationStatusArchived = "archived"
	ConversationStatusPending  = "pending"
)

// FbConversation là bản ghi hội thoại giữa page và một khách hàng.
// ConversationId là định danh cục bộ (conv_<uuid>) và bất biến;
// RemoteConversationId là con trỏ tới thread hiện tại phía Facebook,
// có thể đổi giữa phiên khi Facebook mở thread mới.
type FbConversation struct {
	ID                   primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`                    // ID của bản ghi
	ConversationId       string             `json:"conversationId" bson:"conversationId"`                 // Định danh cục bộ, unique
	RemoteConversationId string             `json:"remoteConversationId" bson:"remoteConversationId"`     // Thread id phía Facebook, có thể đổi
	PageId               string             `json:"pageId" bson:"pageId"`                                 // ID của page
	OwnerUserId          string             `json:"ownerUserId" bson:"ownerUserId"`                       // Agent sở hữu bản ghi
	CustomerId           string             `json:"customerId" bson:"customerId"`                         // PSID của khách
	CustomerName         string             `json:"customerName" bson:"customerName"`                     // Tên khách, "Unknown" nếu không lấy được profile
	CustomerAvatar       string             `json:"customerAvatar" bson:"customerAvatar"`                 // Ảnh đại diện của khách
	LastMessageAt        int64              `json:"lastMessageAt" bson:"lastMessageAt"`                   // Epoch milli của tin mới nhất
	LastMessageSummary   string             `json:"lastMessageSummary" bson:"lastMessageSummary"`         // Nội dung rút gọn của tin mới nhất
	UnreadCount          int64              `json:"unreadCount" bson:"unreadCount"`                       // Số tin khách chưa đọc
	Status               string             `json:"status" bson:"status" default:"active"`                // active | archived | pending
	AssignedAgent        string             `json:"assignedAgent" bson:"assignedAgent"`                   // Agent được gán xử lý, chỉ lưu không diễn giải

	CreatedAt int64 `json:"createdAt" bson:"createdAt"` // Thời gian tạo
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"` // Thời gian cập nhật
}
