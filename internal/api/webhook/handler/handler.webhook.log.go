package webhookhdl

import (
	"fmt"

	basehdl "fb_helpdesk/internal/api/base/handler"
	webhookdto "fb_helpdesk/internal/api/webhook/dto"
	webhookmodels "fb_helpdesk/internal/api/webhook/models"
	webhooksvc "fb_helpdesk/internal/api/webhook/service"
)

// WebhookLogHandler expose webhook log qua CRUD đọc cho việc debug
type WebhookLogHandler struct {
	*basehdl.BaseHandler[webhookmodels.WebhookLog, webhookdto.WebhookLogCreateInput, webhookdto.WebhookLogUpdateInput]
}

// NewWebhookLogHandler tạo mới WebhookLogHandler
func NewWebhookLogHandler() (*WebhookLogHandler, error) {
	service, err := webhooksvc.NewWebhookLogService()
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook log service: %v", err)
	}
	return &WebhookLogHandler{
		BaseHandler: basehdl.NewBaseHandler[webhookmodels.WebhookLog, webhookdto.WebhookLogCreateInput, webhookdto.WebhookLogUpdateInput](service),
	}, nil
}
