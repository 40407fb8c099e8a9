package webhooksvc

import (
	"context"

	"github.com/sirupsen/logrus"

	fbmodels "fb_helpdesk/internal/api/fb/models"
	fbsvc "fb_helpdesk/internal/api/fb/service"
	webhookdto "fb_helpdesk/internal/api/webhook/dto"
	"fb_helpdesk/internal/fbclient"
	"fb_helpdesk/internal/global"
	"fb_helpdesk/internal/logger"
	"fb_helpdesk/internal/realtime"
)

// ConversationReconciler là phần reconciler mà ingest cần, tách interface để test không cần Mongo
type ConversationReconciler interface {
	FindOrCreateConversation(ctx context.Context, pageID, ownerUserID, customerID string, profile fbsvc.ProfileFetchFunc) (*fbmodels.FbConversation, error)
	MergeMessageBatch(ctx context.Context, conv *fbmodels.FbConversation, batch []fbsvc.IncomingMessage) (*fbsvc.MergeResult, error)
	MarkDelivered(ctx context.Context, messageIDs []string) (int64, error)
	FindByConversationId(ctx context.Context, conversationID string) (*fbmodels.FbConversation, error)
}

// PageConnectionLookup tra các kết nối agent đang hoạt động của một page
type PageConnectionLookup interface {
	FindConnections(ctx context.Context, pageID string) ([]fbmodels.FbPage, error)
}

// CommentNotifier fan-out gợi ý re-fetch khi bình luận thay đổi
type CommentNotifier interface {
	NotifyCommentChange(pageID string, summary map[string]interface{})
}

// IngestSummary là kết quả xử lý một envelope
type IngestSummary struct {
	Events    int `json:"events"`    // tổng sub-event trong envelope
	Processed int `json:"processed"` // sub-event xử lý thành công
	Skipped   int `json:"skipped"`   // sub-event bỏ qua (echo, unknown, page không kết nối)
	Failed    int `json:"failed"`    // sub-event lỗi, đã log, không chặn các event còn lại
}

// FacebookIngestService phân loại và xử lý các sub-event trong webhook Facebook.
// Một sub-event lỗi không bao giờ chặn các sub-event anh em trong cùng envelope.
type FacebookIngestService struct {
	reconciler ConversationReconciler
	pages      PageConnectionLookup
	comments   CommentNotifier
	publisher  realtime.Publisher
	profileFor func(accessToken string) fbsvc.ProfileFetchFunc
	log        *logrus.Logger
}

// NewFacebookIngestService tạo ingest service trên Mongo store và Graph API
func NewFacebookIngestService(publisher realtime.Publisher) (*FacebookIngestService, error) {
	reconciler, err := fbsvc.NewFbConversationService()
	if err != nil {
		return nil, err
	}
	pages, err := fbsvc.NewFbPageService()
	if err != nil {
		return nil, err
	}
	comments, err := fbsvc.NewFbCommentService(publisher)
	if err != nil {
		return nil, err
	}

	graph := fbclient.NewClient(global.ServerConfig.Facebook_GraphURL)
	profileFor := func(accessToken string) fbsvc.ProfileFetchFunc {
		return func(ctx context.Context, customerID string) (string, string, error) {
			profile, err := graph.GetUserProfile(ctx, accessToken, customerID)
			if err != nil {
				return "", "", err
			}
			return profile.Name, profile.ProfilePic, nil
		}
	}

	return NewFacebookIngestServiceWith(reconciler, pages, comments, publisher, profileFor), nil
}

// NewFacebookIngestServiceWith tạo ingest service với dependency tùy ý, dùng cho test
func NewFacebookIngestServiceWith(
	reconciler ConversationReconciler,
	pages PageConnectionLookup,
	comments CommentNotifier,
	publisher realtime.Publisher,
	profileFor func(accessToken string) fbsvc.ProfileFetchFunc,
) *FacebookIngestService {
	return &FacebookIngestService{
		reconciler: reconciler,
		pages:      pages,
		comments:   comments,
		publisher:  publisher,
		profileFor: profileFor,
		log:        logger.GetAppLogger(),
	}
}

// ProcessEnvelope xử lý lần lượt mọi sub-event của envelope đã qua kiểm tra cấu trúc
func (s *FacebookIngestService) ProcessEnvelope(ctx context.Context, envelope *webhookdto.Envelope) *IngestSummary {
	summary := &IngestSummary{}
	for i := range envelope.Entry {
		entry := &envelope.Entry[i]
		for j := range entry.Messaging {
			summary.Events++
			s.processMessagingEvent(ctx, entry.ID, &entry.Messaging[j], summary)
		}
		for j := range entry.Changes {
			summary.Events++
			s.processChangeEvent(entry.ID, &entry.Changes[j], summary)
		}
	}
	return summary
}

// processMessagingEvent dispatch theo loại sub-event messaging
func (s *FacebookIngestService) processMessagingEvent(ctx context.Context, pageID string, event *webhookdto.MessagingEvent, summary *IngestSummary) {
	switch event.Kind() {
	case webhookdto.EventKindMessage:
		if event.IsSelfEcho(pageID) {
			summary.Skipped++
			return
		}
		if err := s.ingestMessage(ctx, pageID, event); err != nil {
			summary.Failed++
			s.log.WithFields(logrus.Fields{
				"page_id":   pageID,
				"sender_id": event.Sender.ID,
				"error":     err.Error(),
			}).Error("[WEBHOOK] Lỗi xử lý sub-event message, tiếp tục các event còn lại")
			return
		}
		summary.Processed++

	case webhookdto.EventKindDelivery:
		if _, err := s.reconciler.MarkDelivered(ctx, event.Delivery.Mids); err != nil {
			summary.Failed++
			s.log.WithFields(logrus.Fields{
				"page_id": pageID,
				"error":   err.Error(),
			}).Error("[WEBHOOK] Lỗi cập nhật delivery receipt")
			return
		}
		summary.Processed++

	case webhookdto.EventKindRead:
		// Chỉ ghi nhận, không có yêu cầu hiển thị
		s.log.WithFields(logrus.Fields{
			"page_id":   pageID,
			"watermark": event.Read.Watermark,
		}).Debug("[WEBHOOK] Read receipt")
		summary.Processed++

	case webhookdto.EventKindPostback:
		// Điểm mở rộng tương lai, hiện chỉ log
		s.log.WithFields(logrus.Fields{
			"page_id": pageID,
			"payload": event.Postback.Payload,
		}).Info("[WEBHOOK] Postback")
		summary.Processed++

	default:
		summary.Skipped++
		s.log.WithFields(logrus.Fields{
			"page_id": pageID,
		}).Warn("[WEBHOOK] Sub-event không nhận diện được, bỏ qua")
	}
}

// ingestMessage ghi một tin khách mới cho từng agent đang quản lý page
func (s *FacebookIngestService) ingestMessage(ctx context.Context, pageID string, event *webhookdto.MessagingEvent) error {
	connections, err := s.pages.FindConnections(ctx, pageID)
	if err != nil {
		return err
	}
	if len(connections) == 0 {
		s.log.WithFields(logrus.Fields{
			"page_id": pageID,
		}).Warn("[WEBHOOK] Nhận tin cho page chưa kết nối, bỏ qua")
		return nil
	}

	incoming := normalizeWebhookMessage(event)

	var firstErr error
	for _, conn := range connections {
		conv, err := s.reconciler.FindOrCreateConversation(ctx, pageID, conn.UserId, event.Sender.ID, s.profileFor(conn.AccessToken))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		merge, err := s.reconciler.MergeMessageBatch(ctx, conv, []fbsvc.IncomingMessage{incoming})
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		if merge.Inserted > 0 && s.publisher != nil {
			fresh, ferr := s.reconciler.FindByConversationId(ctx, conv.ConversationId)
			if ferr != nil || fresh == nil {
				fresh = conv
			}
			// Tin lưu xong mới fan-out, payload mang messageId cuối cùng kể cả mid sinh cục bộ
			for i := range merge.Messages {
				s.publisher.Publish(realtime.UserRoom(conn.UserId), realtime.EventNewMessage, fbsvc.NewMessagePayload{
					ConversationId: fresh.ConversationId,
					Message:        &merge.Messages[i],
					Conversation:   fresh,
				})
			}
			s.publisher.Publish(realtime.UserRoom(conn.UserId), realtime.EventConversationUpdated, fresh)
			s.publisher.Publish(realtime.PageRoom(pageID), realtime.EventConversationUpdated, fresh)
		}
	}
	return firstErr
}

// processChangeEvent chuyển thay đổi bình luận thành gợi ý re-fetch cho client
func (s *FacebookIngestService) processChangeEvent(pageID string, change *webhookdto.ChangeEvent, summary *IngestSummary) {
	if !change.IsCommentChange() {
		summary.Skipped++
		return
	}

	s.comments.NotifyCommentChange(pageID, map[string]interface{}{
		"verb":       change.Value.Verb,
		"commentId":  change.Value.CommentID,
		"postId":     change.Value.PostID,
		"authorId":   change.Value.From.ID,
		"authorName": change.Value.From.Name,
	})
	summary.Processed++
}

// normalizeWebhookMessage chuyển sub-event message về dạng chuẩn hóa của reconciler
func normalizeWebhookMessage(event *webhookdto.MessagingEvent) fbsvc.IncomingMessage {
	msg := event.Message
	attachments := make([]fbmodels.MessageAttachment, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		attType := att.Type
		if att.Payload.StickerID != 0 {
			attType = "sticker"
		} else if attType == "fallback" {
			attType = "file"
		}
		attachments = append(attachments, fbmodels.MessageAttachment{
			Type: attType,
			Url:  att.Payload.URL,
		})
	}

	sticker := ""
	if msg.StickerID != 0 {
		sticker = "sticker"
	}

	return fbsvc.IncomingMessage{
		MessageID:   msg.Mid,
		SenderID:    event.Sender.ID,
		SenderRole:  fbmodels.SenderRoleCustomer,
		Body:        msg.Text,
		Sticker:     sticker,
		Attachments: attachments,
		SentAt:      event.Timestamp,
	}
}
