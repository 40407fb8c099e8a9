package dto

// SyncConversationsInput kéo danh sách hội thoại của page từ Graph API
type SyncConversationsInput struct {
	PageId string `json:"pageId" validate:"required"`
	Limit  int    `json:"limit" validate:"omitempty,min=1,max=100"`
}

// SyncMessagesInput kéo tin nhắn của một hội thoại từ Graph API
type SyncMessagesInput struct {
	ConversationId string `json:"conversationId" validate:"required"`
	Limit          int    `json:"limit" validate:"omitempty,min=1,max=100"`
}

// SendMessageInput gửi tin nhắn văn bản từ agent tới khách trong hội thoại
type SendMessageInput struct {
	ConversationId string `json:"conversationId" validate:"required"`
	Body           string `json:"body" validate:"required" maxLength:"2000"`
}

// MessageCreateInput dùng cho CRUD insert, phục vụ seed/test thủ công
type MessageCreateInput struct {
	ConversationId string `json:"conversationId" validate:"required"`
	SenderId       string `json:"senderId" validate:"required"`
	SenderRole     string `json:"senderRole" validate:"required,oneof=customer agent page-system"`
	Body           string `json:"body" validate:"omitempty" maxLength:"2000"`
}

// MessageUpdateInput dùng cho CRUD update trạng thái tin nhắn
type MessageUpdateInput struct {
	DeliveryState string `json:"deliveryState" validate:"omitempty,oneof=sent delivered failed"`
}
