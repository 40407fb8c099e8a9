package fbhdl

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	basehdl "fb_helpdesk/internal/api/base/handler"
	fbdto "fb_helpdesk/internal/api/fb/dto"
	fbmodels "fb_helpdesk/internal/api/fb/models"
	fbsvc "fb_helpdesk/internal/api/fb/service"
	"fb_helpdesk/internal/logger"
)

// FbConversationHandler xử lý inbox hội thoại: đồng bộ, liệt kê, đánh dấu đã đọc
type FbConversationHandler struct {
	*basehdl.BaseHandler[fbmodels.FbConversation, fbdto.ConversationCreateInput, fbdto.ConversationUpdateInput]
	syncService *fbsvc.FbSyncService
}

// NewFbConversationHandler tạo mới FbConversationHandler
func NewFbConversationHandler(syncService *fbsvc.FbSyncService) (*FbConversationHandler, error) {
	convService, err := fbsvc.NewConversationCrudService()
	if err != nil {
		return nil, fmt.Errorf("failed to create fb conversation service: %v", err)
	}
	baseHandler := basehdl.NewBaseHandler[fbmodels.FbConversation, fbdto.ConversationCreateInput, fbdto.ConversationUpdateInput](convService)
	return &FbConversationHandler{
		BaseHandler: baseHandler,
		syncService: syncService,
	}, nil
}

// HandleSyncConversations pull hội thoại của page từ Graph API
func (h *FbConversationHandler) HandleSyncConversations(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		userID, err := currentUserID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		var input fbdto.SyncConversationsInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(&input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		result, err := h.syncService.SyncConversations(c.Context(), userID, input.PageId, input.Limit)
		if err == nil {
			logger.LogSync("sync_conversations", c, map[string]interface{}{
				"page_id":  input.PageId,
				"fetched":  result.Fetched,
				"inserted": result.Inserted,
			})
		}
		h.HandleResponse(c, result, err)
		return nil
	})
}

// HandleListLocal trả về inbox cục bộ của agent, phân trang, tin mới nhất trước
func (h *FbConversationHandler) HandleListLocal(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		userID, err := currentUserID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		pageID := c.Query("pageId")
		page, limit := h.ParsePagination(c)
		result, err := h.syncService.ListLocalConversations(c.Context(), userID, pageID, page, limit)
		h.HandleResponse(c, result, err)
		return nil
	})
}

// HandleMarkRead đánh dấu mọi tin khách chưa đọc của hội thoại là đã đọc
func (h *FbConversationHandler) HandleMarkRead(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		userID, err := currentUserID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		var input fbdto.MarkReadInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(&input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		marked, err := h.syncService.MarkRead(c.Context(), input.ConversationId, userID)
		h.HandleResponse(c, fiber.Map{"marked": marked}, err)
		return nil
	})
}
