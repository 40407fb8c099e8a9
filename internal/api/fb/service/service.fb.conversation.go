package fbsvc

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	fbmodels "fb_helpdesk/internal/api/fb/models"
	"fb_helpdesk/internal/global"
	"fb_helpdesk/internal/logger"
	"fb_helpdesk/internal/utility"
)

// IncomingMessage là tin nhắn đã chuẩn hóa từ webhook hoặc sync pull,
// trước khi phân loại kind và ghi vào store.
type IncomingMessage struct {
	MessageID   string // mid của Facebook, rỗng nếu chưa có
	SenderID    string
	SenderRole  string // customer | agent | page-system
	Body        string
	Sticker     string // url sticker nếu là sticker
	Attachments []fbmodels.MessageAttachment
	SentAt      int64 // epoch milli
}

// MergeResult là kết quả của một lần merge batch
type MergeResult struct {
	Inserted      int                  // số tin ghi mới
	Skipped       int                  // số tin đã tồn tại (duplicate messageId)
	Failed        int                  // số tin ghi lỗi, đã log và bỏ qua
	UnreadAdded   int64                // số tin khách ghi mới, đã cộng vào unreadCount
	LatestSentAt  int64                // sentAt lớn nhất trong các tin ghi mới
	LatestSummary string
	Messages      []fbmodels.FbMessage // các tin ghi mới như đã lưu, mang messageId cuối cùng
}

// NewMessagePayload là payload sự kiện new-message đẩy xuống client.
// Message là bản ghi đã lưu (mang messageId cuối cùng, kể cả mid sinh cục bộ),
// Conversation là trạng thái hội thoại sau khi merge để client cập nhật danh sách.
type NewMessagePayload struct {
	ConversationId string                   `json:"conversationId"`
	Message        *fbmodels.FbMessage      `json:"message"`
	Conversation   *fbmodels.FbConversation `json:"conversation"`
}

// ProfileFetchFunc lấy tên và avatar khách theo PSID khi mở hội thoại mới.
// Lỗi hoặc kết quả rỗng không chặn việc tạo hội thoại, tên fallback là "Unknown".
type ProfileFetchFunc func(ctx context.Context, customerID string) (name string, avatar string, err error)

// FbConversationService là reconciler: đồng bộ trạng thái hội thoại/tin nhắn
// cục bộ với các nguồn ghi đua nhau (webhook push, sync pull, outbound send).
type FbConversationService struct {
	conversations ConversationStore
	messages      MessageStore
	sessionWindow time.Duration
	log           *logrus.Logger
}

// NewFbConversationService tạo reconciler trên Mongo store với session window từ config
func NewFbConversationService() (*FbConversationService, error) {
	convStore, err := NewConversationStore()
	if err != nil {
		return nil, err
	}
	msgStore, err := NewMessageStore()
	if err != nil {
		return nil, err
	}
	window := time.Duration(global.ServerConfig.SessionWindowHours) * time.Hour
	return NewFbConversationServiceWithStores(convStore, msgStore, window), nil
}

// NewFbConversationServiceWithStores tạo reconciler với store tùy ý, dùng cho test
func NewFbConversationServiceWithStores(convs ConversationStore, msgs MessageStore, window time.Duration) *FbConversationService {
	return &FbConversationService{
		conversations: convs,
		messages:      msgs,
		sessionWindow: window,
		log:           logger.GetAppLogger(),
	}
}

// FindOrCreateConversation tìm hội thoại đang trong phiên của bộ (pageId, customerId, ownerUserId)
// hoặc mở hội thoại mới khi tin cuối đã cũ hơn session window.
// Định danh cục bộ của hội thoại cũ không bao giờ bị sửa khi phiên mới bắt đầu.
func (s *FbConversationService) FindOrCreateConversation(ctx context.Context, pageID, ownerUserID, customerID string, profile ProfileFetchFunc) (*fbmodels.FbConversation, error) {
	existing, err := s.conversations.FindLatest(ctx, pageID, customerID, ownerUserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// Phiên còn hiệu lực khi lastMessageAt >= now - window.
		// lastMessageAt == 0 là hội thoại vừa mở chưa có tin, coi như còn trong phiên.
		cutoff := time.Now().Add(-s.sessionWindow).UnixMilli()
		if existing.LastMessageAt == 0 || existing.LastMessageAt >= cutoff {
			return existing, nil
		}
	}

	name := "Unknown"
	avatar := ""
	if profile != nil {
		fetchedName, fetchedAvatar, perr := profile(ctx, customerID)
		if perr != nil {
			s.log.WithFields(logrus.Fields{
				"customer_id": customerID,
				"error":       perr.Error(),
			}).Warn("[RECONCILE] Không lấy được profile khách, dùng tên mặc định")
		} else {
			if fetchedName != "" {
				name = fetchedName
			}
			avatar = fetchedAvatar
		}
	}

	conv := fbmodels.FbConversation{
		ConversationId: utility.NewLocalConversationID(),
		PageId:         pageID,
		OwnerUserId:    ownerUserID,
		CustomerId:     customerID,
		CustomerName:   name,
		CustomerAvatar: avatar,
	}
	created, err := s.conversations.Insert(ctx, conv)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"conversation_id": created.ConversationId,
		"page_id":         pageID,
		"customer_id":     customerID,
	}).Info("[RECONCILE] Mở hội thoại mới")
	return &created, nil
}

// TrackRemoteConversation cập nhật con trỏ thread phía Facebook khi nó đổi giữa phiên
func (s *FbConversationService) TrackRemoteConversation(ctx context.Context, conv *fbmodels.FbConversation, remoteID string) error {
	if remoteID == "" || conv.RemoteConversationId == remoteID {
		return nil
	}
	if err := s.conversations.SetRemoteID(ctx, conv.ConversationId, remoteID); err != nil {
		return err
	}
	conv.RemoteConversationId = remoteID
	return nil
}

// MergeMessageBatch ghi một lô tin vào hội thoại, idempotent theo messageId.
// Tin ghi lỗi được log và bỏ qua, các tin còn lại vẫn xử lý.
// Summary chỉ tiến theo sentAt lớn nhất, không theo thứ tự mảng hay thứ tự ghi.
func (s *FbConversationService) MergeMessageBatch(ctx context.Context, conv *fbmodels.FbConversation, batch []IncomingMessage) (*MergeResult, error) {
	result := &MergeResult{}

	for _, in := range batch {
		messageID := in.MessageID
		if messageID == "" {
			messageID = utility.NewLocalMessageID()
		}

		kind := classifyMessageKind(in)
		msg := fbmodels.FbMessage{
			MessageId:      messageID,
			ConversationId: conv.ConversationId,
			SenderId:       in.SenderID,
			SenderRole:     in.SenderRole,
			Body:           in.Body,
			Kind:           kind,
			Attachments:    in.Attachments,
			SentAt:         in.SentAt,
		}

		inserted, err := s.messages.InsertIfAbsent(ctx, msg)
		if err != nil {
			result.Failed++
			s.log.WithFields(logrus.Fields{
				"conversation_id": conv.ConversationId,
				"message_id":      messageID,
				"error":           err.Error(),
			}).Error("[RECONCILE] Lỗi ghi tin nhắn, bỏ qua tin này")
			continue
		}
		if !inserted {
			result.Skipped++
			continue
		}

		result.Inserted++
		result.Messages = append(result.Messages, msg)
		if in.SenderRole == fbmodels.SenderRoleCustomer {
			result.UnreadAdded++
		}
		if in.SentAt > result.LatestSentAt {
			result.LatestSentAt = in.SentAt
			result.LatestSummary = summarizeMessage(in.Body, kind)
		}
	}

	if result.Inserted == 0 {
		return result, nil
	}

	if err := s.conversations.AdvanceLastMessage(ctx, conv.ConversationId, result.LatestSentAt, result.LatestSummary); err != nil {
		return result, err
	}
	if err := s.conversations.IncUnread(ctx, conv.ConversationId, result.UnreadAdded); err != nil {
		return result, err
	}
	return result, nil
}

// MarkRead đánh dấu các tin khách chưa đọc hiện có là đã đọc rồi đếm lại unreadCount.
// Đếm lại thay vì gán 0 để tin khách chen vào giữa hai bước vẫn được tính là chưa đọc.
func (s *FbConversationService) MarkRead(ctx context.Context, conversationID, agentID string) (int64, error) {
	now := time.Now().UnixMilli()
	marked, err := s.messages.MarkConversationRead(ctx, conversationID, agentID, now)
	if err != nil {
		return 0, err
	}
	remaining, err := s.messages.CountUnread(ctx, conversationID)
	if err != nil {
		return marked, err
	}
	if err := s.conversations.SetUnread(ctx, conversationID, remaining); err != nil {
		return marked, err
	}
	return marked, nil
}

// RecordOutboundSend ghi tin agent vừa gửi thành công qua Graph API.
// Summary được ghi đè trực tiếp, không tăng unreadCount.
func (s *FbConversationService) RecordOutboundSend(ctx context.Context, conv *fbmodels.FbConversation, in IncomingMessage) (*fbmodels.FbMessage, error) {
	messageID := in.MessageID
	if messageID == "" {
		messageID = utility.NewLocalMessageID()
	}

	kind := classifyMessageKind(in)
	msg := fbmodels.FbMessage{
		MessageId:      messageID,
		ConversationId: conv.ConversationId,
		SenderId:       in.SenderID,
		SenderRole:     fbmodels.SenderRoleAgent,
		Body:           in.Body,
		Kind:           kind,
		Attachments:    in.Attachments,
		SentAt:         in.SentAt,
	}

	if _, err := s.messages.InsertIfAbsent(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.conversations.ForceLastMessage(ctx, conv.ConversationId, in.SentAt, summarizeMessage(in.Body, kind)); err != nil {
		return &msg, err
	}
	return &msg, nil
}

// MarkDelivered chuyển deliveryState=delivered cho các mid trong delivery receipt
func (s *FbConversationService) MarkDelivered(ctx context.Context, messageIDs []string) (int64, error) {
	return s.messages.MarkDelivered(ctx, messageIDs)
}

// FindByConversationId tìm hội thoại theo định danh cục bộ
func (s *FbConversationService) FindByConversationId(ctx context.Context, conversationID string) (*fbmodels.FbConversation, error) {
	return s.conversations.FindByConversationId(ctx, conversationID)
}

// classifyMessageKind phân loại tin theo đính kèm trước, nội dung sau.
// Đính kèm đầu tiên quyết định: image giữ loại riêng, video/audio/file gộp thành file.
func classifyMessageKind(in IncomingMessage) string {
	if len(in.Attachments) > 0 {
		switch in.Attachments[0].Type {
		case "image":
			return fbmodels.MessageKindImage
		case "video", "audio", "file":
			return fbmodels.MessageKindFile
		case "sticker":
			return fbmodels.MessageKindSticker
		default:
			return fbmodels.MessageKindOther
		}
	}
	if in.Sticker != "" {
		return fbmodels.MessageKindSticker
	}
	if in.Body != "" {
		return fbmodels.MessageKindText
	}
	return fbmodels.MessageKindOther
}

// summarizeMessage tạo nội dung rút gọn cho danh sách hội thoại.
// Cắt theo rune để không để lại chuỗi UTF-8 hỏng giữa ký tự tiếng Việt.
func summarizeMessage(body, kind string) string {
	if body != "" {
		const maxSummaryLen = 120
		runes := []rune(body)
		if len(runes) > maxSummaryLen {
			return string(runes[:maxSummaryLen])
		}
		return body
	}
	switch kind {
	case fbmodels.MessageKindImage:
		return "[image]"
	case fbmodels.MessageKindFile:
		return "[file]"
	case fbmodels.MessageKindSticker:
		return "[sticker]"
	default:
		return "[attachment]"
	}
}
