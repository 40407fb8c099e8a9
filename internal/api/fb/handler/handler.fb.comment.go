package fbhdl

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	basehdl "fb_helpdesk/internal/api/base/handler"
	fbdto "fb_helpdesk/internal/api/fb/dto"
	fbsvc "fb_helpdesk/internal/api/fb/service"
	"fb_helpdesk/internal/logger"
)

// FbCommentHandler xử lý gom nhóm và kiểm duyệt bình luận.
// Bình luận không lưu cục bộ nên không có CRUD, chỉ các thao tác nghiệp vụ.
type FbCommentHandler struct {
	*basehdl.BaseHandler[interface{}, interface{}, interface{}]
	commentService *fbsvc.FbCommentService
}

// NewFbCommentHandler tạo mới FbCommentHandler
func NewFbCommentHandler(commentService *fbsvc.FbCommentService) (*FbCommentHandler, error) {
	if commentService == nil {
		return nil, fmt.Errorf("comment service is nil")
	}
	return &FbCommentHandler{
		BaseHandler:    &basehdl.BaseHandler[interface{}, interface{}, interface{}]{},
		commentService: commentService,
	}, nil
}

// HandleAggregate gom bình luận của page theo người bình luận, mới nhất trước
func (h *FbCommentHandler) HandleAggregate(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		userID, err := currentUserID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		var input fbdto.AggregateCommentsInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(&input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		groups, err := h.commentService.AggregateComments(c.Context(), userID, input.PageId, input.PostLimit)
		h.HandleResponse(c, groups, err)
		return nil
	})
}

// HandleReply trả lời công khai một bình luận
func (h *FbCommentHandler) HandleReply(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		userID, err := currentUserID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		var input fbdto.CommentReplyInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(&input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		replyID, err := h.commentService.ReplyToComment(c.Context(), userID, input.PageId, input.CommentId, input.Message)
		if err == nil {
			logger.LogModeration("comment_reply", c, map[string]interface{}{"comment_id": input.CommentId})
		}
		h.HandleResponse(c, fiber.Map{"replyId": replyID}, err)
		return nil
	})
}

// HandleHide ẩn hoặc hiện một bình luận
func (h *FbCommentHandler) HandleHide(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		userID, err := currentUserID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		var input fbdto.CommentHideInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(&input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		err = h.commentService.SetCommentHidden(c.Context(), userID, input.PageId, input.CommentId, input.Hidden)
		if err == nil {
			logger.LogModeration("comment_hide", c, map[string]interface{}{
				"comment_id": input.CommentId,
				"hidden":     input.Hidden,
			})
		}
		h.HandleResponse(c, nil, err)
		return nil
	})
}

// HandleDelete xóa vĩnh viễn một bình luận
func (h *FbCommentHandler) HandleDelete(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		userID, err := currentUserID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		var input fbdto.CommentDeleteInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(&input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		err = h.commentService.DeleteComment(c.Context(), userID, input.PageId, input.CommentId)
		if err == nil {
			logger.LogModeration("comment_delete", c, map[string]interface{}{"comment_id": input.CommentId})
		}
		h.HandleResponse(c, nil, err)
		return nil
	})
}

// HandleLike like hoặc bỏ like một bình luận bằng danh tính page
func (h *FbCommentHandler) HandleLike(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		userID, err := currentUserID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		var input fbdto.CommentLikeInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(&input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		err = h.commentService.SetCommentLike(c.Context(), userID, input.PageId, input.CommentId, input.Like)
		h.HandleResponse(c, nil, err)
		return nil
	})
}

// HandlePrivateMessage gửi tin riêng cho người bình luận, mở hội thoại nếu chưa có
func (h *FbCommentHandler) HandlePrivateMessage(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		userID, err := currentUserID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		var input fbdto.PrivateMessageInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(&input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		msg, err := h.commentService.SendPrivateMessage(c.Context(), userID, &input)
		if err == nil {
			logger.LogModeration("private_message", c, map[string]interface{}{"comment_id": input.CommentId})
		}
		h.HandleResponse(c, msg, err)
		return nil
	})
}

// HandleBatchModerate chạy tuần tự nhiều thao tác moderation, trả kết quả từng thao tác
func (h *FbCommentHandler) HandleBatchModerate(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		userID, err := currentUserID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		var input fbdto.BatchModerateInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(&input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		results := h.commentService.BatchModerate(c.Context(), userID, &input)
		logger.LogModeration("batch_moderate", c, map[string]interface{}{
			"page_id": input.PageId,
			"total":   len(results),
		})
		h.HandleResponse(c, results, nil)
		return nil
	})
}
