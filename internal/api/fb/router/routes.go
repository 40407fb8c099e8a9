// Package router đăng ký các route thuộc domain Facebook: Page, Conversation, Message, Comment.
package router

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	fbhdl "fb_helpdesk/internal/api/fb/handler"
	fbsvc "fb_helpdesk/internal/api/fb/service"
	"fb_helpdesk/internal/api/middleware"
	apirouter "fb_helpdesk/internal/api/router"
	"fb_helpdesk/internal/realtime"
)

// conversationConfig: đọc đầy đủ, ghi chỉ qua update-by-id (status, assignedAgent).
// Đường ghi chính của hội thoại là reconciler, không phải CRUD.
var conversationConfig = apirouter.CRUDConfig{
	Find: true, FindOne: true, FindById: true,
	FindIds: true, Paginate: true,
	UpdById: true,
	Count:   true, Exists: true,
}

// Register trả về hàm đăng ký route Facebook, publisher được wiring từ cmd/server
func Register(publisher realtime.Publisher) apirouter.RegisterFunc {
	return func(v1 fiber.Router, r *apirouter.Router) error {
		syncService, err := fbsvc.NewFbSyncService(publisher)
		if err != nil {
			return fmt.Errorf("create facebook sync service: %w", err)
		}
		commentService, err := fbsvc.NewFbCommentService(publisher)
		if err != nil {
			return fmt.Errorf("create facebook comment service: %w", err)
		}

		authMiddleware := middleware.AuthMiddleware()

		pageHandler, err := fbhdl.NewFbPageHandler()
		if err != nil {
			return fmt.Errorf("create facebook page handler: %w", err)
		}
		apirouter.RegisterRouteWithMiddleware(v1, "/facebook/page", "POST", "/connect", []fiber.Handler{authMiddleware}, pageHandler.HandleConnect)
		apirouter.RegisterRouteWithMiddleware(v1, "/facebook/page", "POST", "/disconnect", []fiber.Handler{authMiddleware}, pageHandler.HandleDisconnect)
		r.RegisterCRUDRoutes(v1, "/facebook/page", pageHandler, apirouter.ReadWriteConfig)

		convHandler, err := fbhdl.NewFbConversationHandler(syncService)
		if err != nil {
			return fmt.Errorf("create facebook conversation handler: %w", err)
		}
		apirouter.RegisterRouteWithMiddleware(v1, "/facebook/conversation", "POST", "/sync", []fiber.Handler{authMiddleware}, convHandler.HandleSyncConversations)
		apirouter.RegisterRouteWithMiddleware(v1, "/facebook/conversation", "GET", "/list-local", []fiber.Handler{authMiddleware}, convHandler.HandleListLocal)
		apirouter.RegisterRouteWithMiddleware(v1, "/facebook/conversation", "POST", "/mark-read", []fiber.Handler{authMiddleware}, convHandler.HandleMarkRead)
		r.RegisterCRUDRoutes(v1, "/facebook/conversation", convHandler, conversationConfig)

		msgHandler, err := fbhdl.NewFbMessageHandler(syncService)
		if err != nil {
			return fmt.Errorf("create facebook message handler: %w", err)
		}
		apirouter.RegisterRouteWithMiddleware(v1, "/facebook/message", "POST", "/sync", []fiber.Handler{authMiddleware}, msgHandler.HandleSyncMessages)
		apirouter.RegisterRouteWithMiddleware(v1, "/facebook/message", "POST", "/send", []fiber.Handler{authMiddleware}, msgHandler.HandleSend)
		apirouter.RegisterRouteWithMiddleware(v1, "/facebook/message", "GET", "/list-local", []fiber.Handler{authMiddleware}, msgHandler.HandleListLocal)
		r.RegisterCRUDRoutes(v1, "/facebook/message", msgHandler, apirouter.ReadOnlyConfig)

		commentHandler, err := fbhdl.NewFbCommentHandler(commentService)
		if err != nil {
			return fmt.Errorf("create facebook comment handler: %w", err)
		}
		apirouter.RegisterRouteWithMiddleware(v1, "/facebook/comment", "POST", "/aggregate", []fiber.Handler{authMiddleware}, commentHandler.HandleAggregate)
		apirouter.RegisterRouteWithMiddleware(v1, "/facebook/comment", "POST", "/reply", []fiber.Handler{authMiddleware}, commentHandler.HandleReply)
		apirouter.RegisterRouteWithMiddleware(v1, "/facebook/comment", "PUT", "/hide", []fiber.Handler{authMiddleware}, commentHandler.HandleHide)
		apirouter.RegisterRouteWithMiddleware(v1, "/facebook/comment", "DELETE", "/delete", []fiber.Handler{authMiddleware}, commentHandler.HandleDelete)
		apirouter.RegisterRouteWithMiddleware(v1, "/facebook/comment", "PUT", "/like", []fiber.Handler{authMiddleware}, commentHandler.HandleLike)
		apirouter.RegisterRouteWithMiddleware(v1, "/facebook/comment", "POST", "/private-message", []fiber.Handler{authMiddleware}, commentHandler.HandlePrivateMessage)
		apirouter.RegisterRouteWithMiddleware(v1, "/facebook/comment", "POST", "/batch-moderate", []fiber.Handler{authMiddleware}, commentHandler.HandleBatchModerate)

		return nil
	}
}
