package fbsvc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	basemodels "fb_helpdesk/internal/api/base/models"
	basesvc "fb_helpdesk/internal/api/base/service"
	fbmodels "fb_helpdesk/internal/api/fb/models"
	"fb_helpdesk/internal/common"
	"fb_helpdesk/internal/fbclient"
	"fb_helpdesk/internal/global"
	"fb_helpdesk/internal/logger"
	"fb_helpdesk/internal/realtime"
)

// SyncResult là kết quả một lần pull từ Graph API
type SyncResult struct {
	Fetched  int `json:"fetched"`  // số bản ghi lấy về từ Graph
	Inserted int `json:"inserted"` // số bản ghi ghi mới cục bộ
	Skipped  int `json:"skipped"`  // số bản ghi đã có
	Failed   int `json:"failed"`   // số bản ghi lỗi, đã log và bỏ qua
}

// FbSyncService điều phối đồng bộ on-demand giữa Graph API và dữ liệu cục bộ,
// và là đường gửi tin outbound của agent.
type FbSyncService struct {
	reconciler *FbConversationService
	pages      *FbPageService
	graph      *fbclient.Client
	convCrud   *basesvc.BaseServiceMongoImpl[fbmodels.FbConversation]
	msgCrud    *basesvc.BaseServiceMongoImpl[fbmodels.FbMessage]
	publisher  realtime.Publisher
	log        *logrus.Logger
}

// NewFbSyncService tạo mới FbSyncService
func NewFbSyncService(publisher realtime.Publisher) (*FbSyncService, error) {
	reconciler, err := NewFbConversationService()
	if err != nil {
		return nil, err
	}
	pages, err := NewFbPageService()
	if err != nil {
		return nil, err
	}
	convColl, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.FbConversations)
	if !exist {
		return nil, fmt.Errorf("failed to get fb_conversations collection: %v", common.ErrNotFound)
	}
	msgColl, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.FbMessages)
	if !exist {
		return nil, fmt.Errorf("failed to get fb_messages collection: %v", common.ErrNotFound)
	}
	return &FbSyncService{
		reconciler: reconciler,
		pages:      pages,
		graph:      fbclient.NewClient(global.ServerConfig.Facebook_GraphURL),
		convCrud:   basesvc.NewBaseServiceMongo[fbmodels.FbConversation](convColl),
		msgCrud:    basesvc.NewBaseServiceMongo[fbmodels.FbMessage](msgColl),
		publisher:  publisher,
		log:        logger.GetAppLogger(),
	}, nil
}

// Reconciler trả về reconciler bên dưới, dùng cho handler mark-read
func (s *FbSyncService) Reconciler() *FbConversationService {
	return s.reconciler
}

// SyncConversations pull danh sách hội thoại của page từ Graph API.
// Mỗi hội thoại remote được gắn vào hội thoại cục bộ theo session window,
// hội thoại lỗi được log và bỏ qua, các hội thoại còn lại vẫn xử lý.
func (s *FbSyncService) SyncConversations(ctx context.Context, userID, pageID string, limit int) (*SyncResult, error) {
	page, err := s.pages.FindConnection(ctx, userID, pageID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = global.ServerConfig.SyncConversationLimit
	}

	remotes, err := s.graph.ListConversations(ctx, pageID, page.AccessToken, limit)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Fetched: len(remotes)}
	for _, remote := range remotes {
		customer := remote.CustomerParticipant(pageID)
		if customer == nil {
			result.Skipped++
			continue
		}

		conv, err := s.reconciler.FindOrCreateConversation(ctx, pageID, userID, customer.ID, s.profileFetcher(page.AccessToken))
		if err != nil {
			result.Failed++
			s.log.WithFields(logrus.Fields{
				"page_id":     pageID,
				"customer_id": customer.ID,
				"error":       err.Error(),
			}).Error("[SYNC] Lỗi gắn hội thoại remote, bỏ qua")
			continue
		}
		if err := s.reconciler.TrackRemoteConversation(ctx, conv, remote.ID); err != nil {
			result.Failed++
			continue
		}
		result.Inserted++
	}
	return result, nil
}

// SyncMessages pull tin nhắn của một hội thoại từ Graph API và merge vào store cục bộ
func (s *FbSyncService) SyncMessages(ctx context.Context, userID, conversationID string, limit int) (*SyncResult, error) {
	conv, err := s.reconciler.FindByConversationId(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, common.ErrNotFound
	}
	if conv.RemoteConversationId == "" {
		return nil, common.NewError(common.ErrCodeBusinessState, "Hội thoại chưa gắn với thread phía Facebook", common.StatusBadRequest, nil)
	}

	page, err := s.pages.FindConnection(ctx, userID, conv.PageId)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = global.ServerConfig.SyncMessageLimit
	}

	remotes, err := s.graph.ListMessages(ctx, conv.RemoteConversationId, page.AccessToken, limit)
	if err != nil {
		return nil, err
	}

	batch := make([]IncomingMessage, 0, len(remotes))
	for _, remote := range remotes {
		batch = append(batch, normalizeRemoteMessage(conv.PageId, remote))
	}

	merge, err := s.reconciler.MergeMessageBatch(ctx, conv, batch)
	if err != nil {
		return nil, err
	}
	if merge.Inserted > 0 {
		s.publishConversationChanged(ctx, conv)
	}
	return &SyncResult{
		Fetched:  len(remotes),
		Inserted: merge.Inserted,
		Skipped:  merge.Skipped,
		Failed:   merge.Failed,
	}, nil
}

// SendMessage gửi tin văn bản từ agent: gọi Graph API trước, gửi thành công
// mới ghi bản ghi cục bộ với mid nhận được, rồi fan-out.
func (s *FbSyncService) SendMessage(ctx context.Context, userID, conversationID, body string) (*fbmodels.FbMessage, error) {
	conv, err := s.reconciler.FindByConversationId(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, common.ErrNotFound
	}

	page, err := s.pages.FindConnection(ctx, userID, conv.PageId)
	if err != nil {
		return nil, err
	}

	mid, err := s.graph.SendTextMessage(ctx, page.AccessToken, conv.CustomerId, body)
	if err != nil {
		return nil, err
	}

	msg, err := s.reconciler.RecordOutboundSend(ctx, conv, IncomingMessage{
		MessageID: mid,
		SenderID:  conv.PageId,
		Body:      body,
		SentAt:    time.Now().UnixMilli(),
	})
	if err != nil {
		return msg, err
	}

	s.publishNewMessage(ctx, conv, msg)
	s.publishConversationChanged(ctx, conv)
	return msg, nil
}

// MarkRead đánh dấu đã đọc rồi fan-out conversation-updated
func (s *FbSyncService) MarkRead(ctx context.Context, conversationID, agentID string) (int64, error) {
	marked, err := s.reconciler.MarkRead(ctx, conversationID, agentID)
	if err != nil {
		return marked, err
	}
	conv, err := s.reconciler.FindByConversationId(ctx, conversationID)
	if err == nil && conv != nil {
		s.publishConversationChanged(ctx, conv)
	}
	return marked, nil
}

// ListLocalConversations trả về inbox cục bộ của agent, tin mới nhất trước
func (s *FbSyncService) ListLocalConversations(ctx context.Context, userID, pageID string, page, limit int64) (*basemodels.PaginateResult[fbmodels.FbConversation], error) {
	filter := bson.M{"ownerUserId": userID}
	if pageID != "" {
		filter["pageId"] = pageID
	}
	opts := options.Find().SetSort(bson.D{{Key: "lastMessageAt", Value: -1}})
	return s.convCrud.FindWithPagination(ctx, filter, page, limit, opts)
}

// ListLocalMessages trả về tin nhắn cục bộ của hội thoại, mới nhất trước
func (s *FbSyncService) ListLocalMessages(ctx context.Context, conversationID string, page, limit int64) (*basemodels.PaginateResult[fbmodels.FbMessage], error) {
	filter := bson.M{"conversationId": conversationID}
	opts := options.Find().SetSort(bson.D{{Key: "sentAt", Value: -1}})
	return s.msgCrud.FindWithPagination(ctx, filter, page, limit, opts)
}

// publishNewMessage fan-out new-message theo khung {conversationId, message, conversation}
func (s *FbSyncService) publishNewMessage(ctx context.Context, conv *fbmodels.FbConversation, msg *fbmodels.FbMessage) {
	if s.publisher == nil {
		return
	}
	fresh, err := s.reconciler.FindByConversationId(ctx, conv.ConversationId)
	if err != nil || fresh == nil {
		fresh = conv
	}
	payload := NewMessagePayload{
		ConversationId: fresh.ConversationId,
		Message:        msg,
		Conversation:   fresh,
	}
	s.publisher.Publish(realtime.UserRoom(fresh.OwnerUserId), realtime.EventNewMessage, payload)
	s.publisher.Publish(realtime.PageRoom(fresh.PageId), realtime.EventNewMessage, payload)
}

// publishConversationChanged đọc lại bản ghi hội thoại và fan-out trạng thái mới nhất
func (s *FbSyncService) publishConversationChanged(ctx context.Context, conv *fbmodels.FbConversation) {
	if s.publisher == nil {
		return
	}
	fresh, err := s.reconciler.FindByConversationId(ctx, conv.ConversationId)
	if err != nil || fresh == nil {
		fresh = conv
	}
	s.publisher.Publish(realtime.UserRoom(fresh.OwnerUserId), realtime.EventConversationUpdated, fresh)
	s.publisher.Publish(realtime.PageRoom(fresh.PageId), realtime.EventConversationUpdated, fresh)
}

// profileFetcher trả về ProfileFetchFunc dùng token của page
func (s *FbSyncService) profileFetcher(accessToken string) ProfileFetchFunc {
	return func(ctx context.Context, customerID string) (string, string, error) {
		profile, err := s.graph.GetUserProfile(ctx, accessToken, customerID)
		if err != nil {
			return "", "", err
		}
		return profile.Name, profile.ProfilePic, nil
	}
}

// normalizeRemoteMessage chuyển tin Graph API về dạng chuẩn hóa của reconciler.
// Tin do chính page gửi được ghi với vai trò agent.
func normalizeRemoteMessage(pageID string, remote fbclient.RemoteMessage) IncomingMessage {
	role := fbmodels.SenderRoleCustomer
	if remote.From.ID == pageID {
		role = fbmodels.SenderRoleAgent
	}

	attachments := make([]fbmodels.MessageAttachment, 0, len(remote.Attachments.Data))
	for _, att := range remote.Attachments.Data {
		attachments = append(attachments, fbmodels.MessageAttachment{
			Type: attachmentTypeFromMime(att.MimeType),
			Url:  att.URL(),
			Name: att.Name,
			Size: att.Size,
		})
	}

	return IncomingMessage{
		MessageID:   remote.ID,
		SenderID:    remote.From.ID,
		SenderRole:  role,
		Body:        remote.Message,
		Sticker:     remote.Sticker,
		Attachments: attachments,
		SentAt:      fbclient.ParseGraphTime(remote.CreatedTime),
	}
}

// attachmentTypeFromMime phân loại đính kèm theo mime type
func attachmentTypeFromMime(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return "image"
	case strings.HasPrefix(mime, "video/"):
		return "video"
	case strings.HasPrefix(mime, "audio/"):
		return "audio"
	default:
		return "file"
	}
}
