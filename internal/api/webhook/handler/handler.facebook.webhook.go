// Package webhookhdl nhận webhook từ Facebook: GET verify và POST sự kiện.
package webhookhdl

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"

	webhookdto "fb_helpdesk/internal/api/webhook/dto"
	webhookmodels "fb_helpdesk/internal/api/webhook/models"
	webhooksvc "fb_helpdesk/internal/api/webhook/service"
	"fb_helpdesk/internal/common"
	"fb_helpdesk/internal/global"
	"fb_helpdesk/internal/logger"
	"fb_helpdesk/internal/realtime"
)

// FacebookWebhookHandler nhận và xử lý webhook Facebook
type FacebookWebhookHandler struct {
	ingestService     *webhooksvc.FacebookIngestService
	webhookLogService *webhooksvc.WebhookLogService
}

// NewFacebookWebhookHandler tạo mới FacebookWebhookHandler
func NewFacebookWebhookHandler(publisher realtime.Publisher) (*FacebookWebhookHandler, error) {
	ingestService, err := webhooksvc.NewFacebookIngestService(publisher)
	if err != nil {
		return nil, fmt.Errorf("failed to create facebook ingest service: %v", err)
	}
	webhookLogService, err := webhooksvc.NewWebhookLogService()
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook log service: %v", err)
	}
	return &FacebookWebhookHandler{
		ingestService:     ingestService,
		webhookLogService: webhookLogService,
	}, nil
}

// HandleVerify xử lý handshake đăng ký webhook của Facebook.
// Facebook gửi GET với hub.mode/hub.verify_token/hub.challenge,
// token khớp thì echo lại challenge, sai thì 403.
func (h *FacebookWebhookHandler) HandleVerify(c fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == global.ServerConfig.Facebook_VerifyToken {
		logger.GetAppLogger().Info("[WEBHOOK] Xác minh webhook thành công")
		return c.Status(common.StatusOK).SendString(challenge)
	}

	logger.GetAppLogger().Warn("[WEBHOOK] Xác minh webhook thất bại: verify token không khớp")
	return c.SendStatus(common.StatusForbidden)
}

// HandleReceive nhận envelope sự kiện từ Facebook.
// Envelope đúng cấu trúc (object=page, có entry) luôn trả 200 dù xử lý bên trong
// có lỗi hay không — Facebook retry theo status code, lỗi nghiệp vụ xử lý nội bộ.
// Sai cấu trúc trả 404.
func (h *FacebookWebhookHandler) HandleReceive(c fiber.Ctx) error {
	rawBody := c.Body()

	if !verifySignature(rawBody, c.Get("X-Hub-Signature-256"), global.ServerConfig.Facebook_AppSecret) {
		logger.GetAppLogger().Warn("[WEBHOOK] Chữ ký payload không hợp lệ, từ chối webhook")
		return c.SendStatus(common.StatusForbidden)
	}

	var envelope webhookdto.Envelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil || !envelope.Valid() {
		return c.SendStatus(common.StatusNotFound)
	}

	entry := h.logWebhook(c, rawBody, &envelope)

	summary := h.ingestService.ProcessEnvelope(c.Context(), &envelope)
	if entry != nil {
		errMsg := ""
		if summary.Failed > 0 {
			errMsg = fmt.Sprintf("%d/%d sub-event lỗi", summary.Failed, summary.Events)
		}
		if err := h.webhookLogService.UpdateProcessedStatus(c.Context(), entry.ID, summary.Failed == 0, errMsg); err != nil {
			logger.GetAppLogger().WithField("error", err.Error()).Warn("[WEBHOOK] Lỗi cập nhật trạng thái webhook log")
		}
	}

	return c.Status(common.StatusOK).SendString("EVENT_RECEIVED")
}

// verifySignature so khớp X-Hub-Signature-256 với HMAC-SHA256 của payload.
// Không cấu hình app secret thì bỏ qua bước kiểm tra.
func verifySignature(body []byte, header, appSecret string) bool {
	if appSecret == "" {
		return true
	}
	expected, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	computed := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(computed), []byte(expected))
}

// logWebhook ghi webhook log, lỗi ghi log không chặn việc xử lý sự kiện
func (h *FacebookWebhookHandler) logWebhook(c fiber.Ctx, rawBody []byte, envelope *webhookdto.Envelope) *webhookmodels.WebhookLog {
	var requestBody map[string]interface{}
	_ = json.Unmarshal(rawBody, &requestBody)

	headers := map[string]string{}
	for key, values := range c.GetReqHeaders() {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	pageID := ""
	if len(envelope.Entry) > 0 {
		pageID = envelope.Entry[0].ID
	}

	entry, err := h.webhookLogService.CreateWebhookLog(c.Context(), webhookmodels.WebhookLog{
		Source:         "facebook",
		EventType:      envelope.Object,
		PageID:         pageID,
		RequestHeaders: headers,
		RequestBody:    requestBody,
		RawBody:        string(rawBody),
		IPAddress:      c.IP(),
		UserAgent:      c.Get("User-Agent"),
	})
	if err != nil {
		logger.GetAppLogger().WithField("error", err.Error()).Warn("[WEBHOOK] Lỗi ghi webhook log, vẫn tiếp tục xử lý")
		return nil
	}
	return entry
}
