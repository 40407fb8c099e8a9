package fbhdl

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	basehdl "fb_helpdesk/internal/api/base/handler"
	fbdto "fb_helpdesk/internal/api/fb/dto"
	fbmodels "fb_helpdesk/internal/api/fb/models"
	fbsvc "fb_helpdesk/internal/api/fb/service"
	"fb_helpdesk/internal/common"
	"fb_helpdesk/internal/logger"
)

// FbMessageHandler xử lý đồng bộ và gửi tin nhắn
type FbMessageHandler struct {
	*basehdl.BaseHandler[fbmodels.FbMessage, fbdto.MessageCreateInput, fbdto.MessageUpdateInput]
	syncService *fbsvc.FbSyncService
}

// NewFbMessageHandler tạo mới FbMessageHandler
func NewFbMessageHandler(syncService *fbsvc.FbSyncService) (*FbMessageHandler, error) {
	msgService, err := fbsvc.NewMessageCrudService()
	if err != nil {
		return nil, fmt.Errorf("failed to create fb message service: %v", err)
	}
	baseHandler := basehdl.NewBaseHandler[fbmodels.FbMessage, fbdto.MessageCreateInput, fbdto.MessageUpdateInput](msgService)
	return &FbMessageHandler{
		BaseHandler: baseHandler,
		syncService: syncService,
	}, nil
}

// HandleSyncMessages pull tin nhắn của hội thoại từ Graph API và merge cục bộ
func (h *FbMessageHandler) HandleSyncMessages(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		userID, err := currentUserID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		var input fbdto.SyncMessagesInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(&input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		result, err := h.syncService.SyncMessages(c.Context(), userID, input.ConversationId, input.Limit)
		if err == nil {
			logger.LogSync("sync_messages", c, map[string]interface{}{
				"conversation_id": input.ConversationId,
				"fetched":         result.Fetched,
				"inserted":        result.Inserted,
			})
		}
		h.HandleResponse(c, result, err)
		return nil
	})
}

// HandleSend gửi tin văn bản từ agent tới khách trong hội thoại
func (h *FbMessageHandler) HandleSend(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		userID, err := currentUserID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		var input fbdto.SendMessageInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(&input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		msg, err := h.syncService.SendMessage(c.Context(), userID, input.ConversationId, input.Body)
		if err == nil {
			logger.LogAction("send_message", c, map[string]interface{}{
				"conversation_id": input.ConversationId,
			})
		}
		h.HandleResponse(c, msg, err)
		return nil
	})
}

// HandleListLocal trả về tin nhắn cục bộ của hội thoại, phân trang, tin mới nhất trước
func (h *FbMessageHandler) HandleListLocal(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		conversationID := c.Query("conversationId")
		if conversationID == "" {
			h.HandleResponse(c, nil, common.NewError(common.ErrCodeValidationInput, "Thiếu tham số conversationId", common.StatusBadRequest, nil))
			return nil
		}

		page, limit := h.ParsePagination(c)
		result, err := h.syncService.ListLocalMessages(c.Context(), conversationID, page, limit)
		h.HandleResponse(c, result, err)
		return nil
	})
}
