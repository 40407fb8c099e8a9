package fbsvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	basesvc "fb_helpdesk/internal/api/base/service"
	fbmodels "fb_helpdesk/internal/api/fb/models"
	"fb_helpdesk/internal/common"
	"fb_helpdesk/internal/global"
)

// ConversationStore là reposistory hẹp cho hội thoại, đủ cho reconciler.
// Tách interface để test logic session-window và merge không cần Mongo.
type ConversationStore interface {
	// FindLatest trả về hội thoại mới nhất của bộ (pageId, customerId, ownerUserId), nil nếu chưa có
	FindLatest(ctx context.Context, pageID, customerID, ownerUserID string) (*fbmodels.FbConversation, error)
	// Insert tạo hội thoại mới
	Insert(ctx context.Context, conv fbmodels.FbConversation) (fbmodels.FbConversation, error)
	// SetRemoteID cập nhật con trỏ thread phía Facebook
	SetRemoteID(ctx context.Context, conversationID, remoteID string) error
	// AdvanceLastMessage chỉ tiến lastMessageAt/lastMessageSummary khi sentAt mới hơn giá trị hiện tại
	AdvanceLastMessage(ctx context.Context, conversationID string, sentAt int64, summary string) error
	// ForceLastMessage ghi đè summary không cần so sánh, dùng cho tin outbound vừa gửi
	ForceLastMessage(ctx context.Context, conversationID string, sentAt int64, summary string) error
	// IncUnread cộng thêm n vào unreadCount
	IncUnread(ctx context.Context, conversationID string, n int64) error
	// SetUnread đặt unreadCount về giá trị đếm lại được
	SetUnread(ctx context.Context, conversationID string, count int64) error
	// FindByConversationId tìm theo định danh cục bộ, nil nếu không có
	FindByConversationId(ctx context.Context, conversationID string) (*fbmodels.FbConversation, error)
}

// MessageStore là repository hẹp cho tin nhắn
type MessageStore interface {
	// InsertIfAbsent chèn tin nếu messageId chưa tồn tại.
	// Trả về false khi bị unique index từ chối — tin đã có, không phải lỗi.
	InsertIfAbsent(ctx context.Context, msg fbmodels.FbMessage) (bool, error)
	// MarkConversationRead đánh dấu mọi tin khách chưa đọc của hội thoại là đã đọc
	MarkConversationRead(ctx context.Context, conversationID, agentID string, readAt int64) (int64, error)
	// CountUnread đếm tin khách chưa đọc còn lại
	CountUnread(ctx context.Context, conversationID string) (int64, error)
	// MarkDelivered chuyển deliveryState=delivered cho các mid liệt kê, mid lạ bỏ qua
	MarkDelivered(ctx context.Context, messageIDs []string) (int64, error)
}

// NewConversationCrudService trả về service CRUD generic trên fb_conversations,
// dùng cho các route đọc của handler. Đường ghi chính vẫn là reconciler.
func NewConversationCrudService() (*basesvc.BaseServiceMongoImpl[fbmodels.FbConversation], error) {
	coll, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.FbConversations)
	if !exist {
		return nil, fmt.Errorf("failed to get fb_conversations collection: %v", common.ErrNotFound)
	}
	return basesvc.NewBaseServiceMongo[fbmodels.FbConversation](coll), nil
}

// NewMessageCrudService trả về service CRUD generic trên fb_messages
func NewMessageCrudService() (*basesvc.BaseServiceMongoImpl[fbmodels.FbMessage], error) {
	coll, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.FbMessages)
	if !exist {
		return nil, fmt.Errorf("failed to get fb_messages collection: %v", common.ErrNotFound)
	}
	return basesvc.NewBaseServiceMongo[fbmodels.FbMessage](coll), nil
}

// mongoConversationStore triển khai ConversationStore trên fb_conversations
type mongoConversationStore struct {
	base *basesvc.BaseServiceMongoImpl[fbmodels.FbConversation]
}

// NewConversationStore tạo store trên collection fb_conversations đã đăng ký
func NewConversationStore() (ConversationStore, error) {
	coll, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.FbConversations)
	if !exist {
		return nil, fmt.Errorf("failed to get fb_conversations collection: %v", common.ErrNotFound)
	}
	return &mongoConversationStore{
		base: basesvc.NewBaseServiceMongo[fbmodels.FbConversation](coll),
	}, nil
}

func (s *mongoConversationStore) FindLatest(ctx context.Context, pageID, customerID, ownerUserID string) (*fbmodels.FbConversation, error) {
	filter := bson.M{"pageId": pageID, "customerId": customerID, "ownerUserId": ownerUserID}
	opts := options.FindOne().SetSort(bson.D{{Key: "lastMessageAt", Value: -1}})
	conv, err := s.base.FindOne(ctx, filter, opts)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

func (s *mongoConversationStore) Insert(ctx context.Context, conv fbmodels.FbConversation) (fbmodels.FbConversation, error) {
	return s.base.InsertOne(ctx, conv)
}

func (s *mongoConversationStore) SetRemoteID(ctx context.Context, conversationID, remoteID string) error {
	filter := bson.M{"conversationId": conversationID}
	update := bson.M{"$set": bson.M{"remoteConversationId": remoteID, "updatedAt": time.Now().UnixMilli()}}
	_, err := s.base.Collection().UpdateOne(ctx, filter, update)
	return err
}

// AdvanceLastMessage dùng guard lastMessageAt < sentAt trong filter:
// webhook và sync pull có thể đua nhau ghi, bản ghi đến sau với sentAt cũ hơn
// không được kéo lùi summary. Không match filter không phải là lỗi.
func (s *mongoConversationStore) AdvanceLastMessage(ctx context.Context, conversationID string, sentAt int64, summary string) error {
	filter := bson.M{
		"conversationId": conversationID,
		"lastMessageAt":  bson.M{"$lt": sentAt},
	}
	update := bson.M{"$set": bson.M{
		"lastMessageAt":      sentAt,
		"lastMessageSummary": summary,
		"updatedAt":          time.Now().UnixMilli(),
	}}
	_, err := s.base.Collection().UpdateOne(ctx, filter, update)
	return err
}

func (s *mongoConversationStore) ForceLastMessage(ctx context.Context, conversationID string, sentAt int64, summary string) error {
	filter := bson.M{"conversationId": conversationID}
	update := bson.M{"$set": bson.M{
		"lastMessageAt":      sentAt,
		"lastMessageSummary": summary,
		"updatedAt":          time.Now().UnixMilli(),
	}}
	_, err := s.base.Collection().UpdateOne(ctx, filter, update)
	return err
}

func (s *mongoConversationStore) IncUnread(ctx context.Context, conversationID string, n int64) error {
	if n == 0 {
		return nil
	}
	filter := bson.M{"conversationId": conversationID}
	update := bson.M{
		"$inc": bson.M{"unreadCount": n},
		"$set": bson.M{"updatedAt": time.Now().UnixMilli()},
	}
	_, err := s.base.Collection().UpdateOne(ctx, filter, update)
	return err
}

func (s *mongoConversationStore) SetUnread(ctx context.Context, conversationID string, count int64) error {
	filter := bson.M{"conversationId": conversationID}
	update := bson.M{"$set": bson.M{
		"unreadCount": count,
		"updatedAt":   time.Now().UnixMilli(),
	}}
	_, err := s.base.Collection().UpdateOne(ctx, filter, update)
	return err
}

func (s *mongoConversationStore) FindByConversationId(ctx context.Context, conversationID string) (*fbmodels.FbConversation, error) {
	conv, err := s.base.FindOne(ctx, bson.M{"conversationId": conversationID}, nil)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// mongoMessageStore triển khai MessageStore trên fb_messages
type mongoMessageStore struct {
	base *basesvc.BaseServiceMongoImpl[fbmodels.FbMessage]
}

// NewMessageStore tạo store trên collection fb_messages đã đăng ký
func NewMessageStore() (MessageStore, error) {
	coll, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.FbMessages)
	if !exist {
		return nil, fmt.Errorf("failed to get fb_messages collection: %v", common.ErrNotFound)
	}
	return &mongoMessageStore{
		base: basesvc.NewBaseServiceMongo[fbmodels.FbMessage](coll),
	}, nil
}

// InsertIfAbsent dựa vào unique index trên messageId làm check-and-insert nguyên tử.
// Duplicate key nghĩa là nguồn khác (webhook/sync) đã ghi tin này trước.
func (s *mongoMessageStore) InsertIfAbsent(ctx context.Context, msg fbmodels.FbMessage) (bool, error) {
	_, err := s.base.InsertOne(ctx, msg)
	if err != nil {
		if errors.Is(err, common.ErrMongoDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *mongoMessageStore) MarkConversationRead(ctx context.Context, conversationID, agentID string, readAt int64) (int64, error) {
	filter := bson.M{
		"conversationId": conversationID,
		"senderRole":     fbmodels.SenderRoleCustomer,
		"isRead":         false,
	}
	update := &basesvc.UpdateData{Set: map[string]interface{}{
		"isRead": true,
		"readAt": readAt,
		"readBy": agentID,
	}}
	return s.base.UpdateMany(ctx, filter, update, nil)
}

func (s *mongoMessageStore) CountUnread(ctx context.Context, conversationID string) (int64, error) {
	filter := bson.M{
		"conversationId": conversationID,
		"senderRole":     fbmodels.SenderRoleCustomer,
		"isRead":         false,
	}
	return s.base.CountDocuments(ctx, filter)
}

func (s *mongoMessageStore) MarkDelivered(ctx context.Context, messageIDs []string) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	filter := bson.M{"messageId": bson.M{"$in": messageIDs}}
	update := &basesvc.UpdateData{Set: map[string]interface{}{
		"deliveryState": fbmodels.DeliveryStateDelivered,
	}}
	return s.base.UpdateMany(ctx, filter, update, nil)
}
