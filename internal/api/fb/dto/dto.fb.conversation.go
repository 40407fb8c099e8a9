package dto

// ConversationCreateInput dùng cho CRUD insert, chủ yếu phục vụ seed/test thủ công.
// Đường ghi chính của hội thoại là reconciler, không phải CRUD.
type ConversationCreateInput struct {
	PageId       string `json:"pageId" validate:"required"`
	OwnerUserId  string `json:"ownerUserId" validate:"required"`
	CustomerId   string `json:"customerId" validate:"required"`
	CustomerName string `json:"customerName" validate:"omitempty" maxLength:"200"`
}

// ConversationUpdateInput dùng cho CRUD update: chỉ status và assignedAgent sửa được
type ConversationUpdateInput struct {
	Status        string `json:"status" validate:"omitempty,oneof=active archived pending"`
	AssignedAgent string `json:"assignedAgent" validate:"omitempty"`
}

// MarkReadInput đánh dấu toàn bộ tin khách chưa đọc của hội thoại là đã đọc
type MarkReadInput struct {
	ConversationId string `json:"conversationId" validate:"required"`
}
