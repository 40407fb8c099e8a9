package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WebhookLog lưu log của tất cả webhook nhận được để debug và replay thủ công
type WebhookLog struct {
	ID primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"` // ID của log

	Source    string `json:"source" bson:"source"`       // Nguồn webhook, hiện chỉ "facebook"
	EventType string `json:"eventType" bson:"eventType"` // Loại event: page, unknown, ...
	PageID    string `json:"pageId,omitempty" bson:"pageId,omitempty"`

	RequestHeaders map[string]string      `json:"requestHeaders,omitempty" bson:"requestHeaders,omitempty"`
	RequestBody    map[string]interface{} `json:"requestBody" bson:"requestBody"` // Payload đã parse
	RawBody        string                 `json:"rawBody,omitempty" bson:"rawBody,omitempty"`

	Processed    bool   `json:"processed" bson:"processed"` // Đã xử lý thành công chưa
	ProcessError string `json:"processError,omitempty" bson:"processError,omitempty"`
	ProcessedAt  int64  `json:"processedAt,omitempty" bson:"processedAt,omitempty"`

	IPAddress string `json:"ipAddress,omitempty" bson:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty" bson:"userAgent,omitempty"`

	ReceivedAt int64 `json:"receivedAt" bson:"receivedAt"` // Thời gian nhận webhook (epoch milli)
	CreatedAt  int64 `json:"createdAt" bson:"createdAt"`
	UpdatedAt  int64 `json:"updatedAt" bson:"updatedAt"`
}
