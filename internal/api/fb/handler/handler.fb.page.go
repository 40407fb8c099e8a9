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

// FbPageHandler xử lý kết nối page và CRUD trên fb_pages
type FbPageHandler struct {
	*basehdl.BaseHandler[fbmodels.FbPage, fbdto.PageCreateInput, fbdto.PageUpdateInput]
	pageService *fbsvc.FbPageService
}

// NewFbPageHandler tạo mới FbPageHandler
func NewFbPageHandler() (*FbPageHandler, error) {
	pageService, err := fbsvc.NewFbPageService()
	if err != nil {
		return nil, fmt.Errorf("failed to create fb page service: %v", err)
	}
	baseHandler := basehdl.NewBaseHandler[fbmodels.FbPage, fbdto.PageCreateInput, fbdto.PageUpdateInput](pageService)
	return &FbPageHandler{
		BaseHandler: baseHandler,
		pageService: pageService,
	}, nil
}

// currentUserID lấy user id đã được AuthMiddleware gắn vào context
func currentUserID(c fiber.Ctx) (string, error) {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return "", common.ErrTokenMissing
	}
	return userID, nil
}

// HandleConnect kết nối page cho agent đang đăng nhập
func (h *FbPageHandler) HandleConnect(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		userID, err := currentUserID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		var input fbdto.PageConnectInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(&input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		page, err := h.pageService.ConnectPage(c.Context(), userID, input.PageId, input.AccessToken)
		if err == nil {
			logger.LogAction("page_connect", c, map[string]interface{}{"page_id": input.PageId})
		}
		h.HandleResponse(c, page, err)
		return nil
	})
}

// HandleDisconnect ngắt kết nối page của agent đang đăng nhập
func (h *FbPageHandler) HandleDisconnect(c fiber.Ctx) error {
	return h.SafeHandler(c, func() error {
		userID, err := currentUserID(c)
		if err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		var input fbdto.PageDisconnectInput
		if err := h.ParseRequestBody(c, &input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}
		if err := h.ValidateInput(&input); err != nil {
			h.HandleResponse(c, nil, err)
			return nil
		}

		err = h.pageService.DisconnectPage(c.Context(), userID, input.PageId)
		if err == nil {
			logger.LogAction("page_disconnect", c, map[string]interface{}{"page_id": input.PageId})
		}
		h.HandleResponse(c, nil, err)
		return nil
	})
}
