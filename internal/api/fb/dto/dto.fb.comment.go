package dto

// AggregateCommentsInput gom bình luận của page theo người bình luận
type AggregateCommentsInput struct {
	PageId    string `json:"pageId" validate:"required"`
	PostLimit int    `json:"postLimit" validate:"omitempty,min=1,max=100"`
}

// CommentReplyInput trả lời công khai một bình luận
type CommentReplyInput struct {
	PageId    string `json:"pageId" validate:"required"`
	CommentId string `json:"commentId" validate:"required"`
	Message   string `json:"message" validate:"required" maxLength:"2000"`
}

// CommentHideInput ẩn hoặc hiện một bình luận
type CommentHideInput struct {
	PageId    string `json:"pageId" validate:"required"`
	CommentId string `json:"commentId" validate:"required"`
	Hidden    bool   `json:"hidden"`
}

// CommentDeleteInput xóa một bình luận
type CommentDeleteInput struct {
	PageId    string `json:"pageId" validate:"required"`
	CommentId string `json:"commentId" validate:"required"`
}

// CommentLikeInput like hoặc bỏ like một bình luận bằng danh tính page
type CommentLikeInput struct {
	PageId    string `json:"pageId" validate:"required"`
	CommentId string `json:"commentId" validate:"required"`
	Like      bool   `json:"like"`
}

// PrivateMessageInput gửi tin nhắn riêng cho người bình luận, mở hội thoại nếu chưa có
type PrivateMessageInput struct {
	PageId       string `json:"pageId" validate:"required"`
	CommentId    string `json:"commentId" validate:"required"`
	CustomerId   string `json:"customerId" validate:"required"`
	CustomerName string `json:"customerName" validate:"omitempty" maxLength:"200"`
	Text         string `json:"text" validate:"required" maxLength:"2000"`
}

// ModerateAction là một thao tác trong batch moderation
type ModerateAction struct {
	Action    string `json:"action" validate:"required,oneof=reply hide unhide delete like unlike"`
	CommentId string `json:"commentId" validate:"required"`
	Message   string `json:"message" validate:"omitempty" maxLength:"2000"` // chỉ dùng cho reply
}

// BatchModerateInput thực hiện tuần tự nhiều thao tác moderation, trả kết quả từng thao tác
type BatchModerateInput struct {
	PageId  string           `json:"pageId" validate:"required"`
	Actions []ModerateAction `json:"actions" validate:"required,min=1,max=50,dive"`
}
