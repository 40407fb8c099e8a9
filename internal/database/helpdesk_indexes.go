// Package database - Index cho các collection helpdesk (unique, compound) phục vụ idempotency và truy vấn inbox.
package database

import (
	"context"
	"strings"

	"fb_helpdesk/internal/global"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreateHelpdeskIndexes tạo toàn bộ index cho các collection helpdesk.
// Gọi một lần lúc khởi động, sau khi kết nối MongoDB.
func CreateHelpdeskIndexes(ctx context.Context, db *mongo.Database) error {
	// users: email và token unique — login và auth middleware lookup
	users := db.Collection(global.MongoDB_ColNames.Users)
	if _, err := users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("user_email").SetUnique(true),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}
	if _, err := users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "token", Value: 1}},
		Options: options.Index().SetName("user_token").SetSparse(true),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	// fb_pages: (pageId, userId) unique — mỗi user chỉ kết nối một page một lần
	fbPages := db.Collection(global.MongoDB_ColNames.FbPages)
	if _, err := fbPages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "pageId", Value: 1},
			{Key: "userId", Value: 1},
		},
		Options: options.Index().SetName("fb_page_page_user").SetUnique(true),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	// fb_conversations: conversationId unique — định danh cục bộ của hội thoại
	fbConversations := db.Collection(global.MongoDB_ColNames.FbConversations)
	if _, err := fbConversations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "conversationId", Value: 1}},
		Options: options.Index().SetName("fb_conversation_id").SetUnique(true),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	// fb_conversations: (pageId, customerId, ownerUserId, lastMessageAt desc) — tìm hội thoại mới nhất của một khách
	if _, err := fbConversations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "pageId", Value: 1},
			{Key: "customerId", Value: 1},
			{Key: "ownerUserId", Value: 1},
			{Key: "lastMessageAt", Value: -1},
		},
		Options: options.Index().SetName("fb_conversation_lookup"),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	// fb_conversations: (ownerUserId, lastMessageAt desc) — danh sách inbox
	if _, err := fbConversations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "ownerUserId", Value: 1},
			{Key: "lastMessageAt", Value: -1},
		},
		Options: options.Index().SetName("fb_conversation_inbox"),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	// fb_messages: messageId unique — chốt idempotency khi merge tin nhắn
	fbMessages := db.Collection(global.MongoDB_ColNames.FbMessages)
	if _, err := fbMessages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "messageId", Value: 1}},
		Options: options.Index().SetName("fb_message_id").SetUnique(true),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	// fb_messages: (conversationId, sentAt) — timeline của một hội thoại
	if _, err := fbMessages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "conversationId", Value: 1},
			{Key: "sentAt", Value: 1},
		},
		Options: options.Index().SetName("fb_message_timeline"),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	// fb_messages: (conversationId, senderRole, isRead) — đếm và đánh dấu tin chưa đọc
	if _, err := fbMessages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "conversationId", Value: 1},
			{Key: "senderRole", Value: 1},
			{Key: "isRead", Value: 1},
		},
		Options: options.Index().SetName("fb_message_unread"),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	// webhook_logs: (source, createdAt desc) — tra cứu log gần nhất theo nguồn
	webhookLogs := db.Collection(global.MongoDB_ColNames.WebhookLogs)
	if _, err := webhookLogs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "source", Value: 1},
			{Key: "createdAt", Value: -1},
		},
		Options: options.Index().SetName("webhook_log_source_time"),
	}); err != nil && !isIndexExistsError(err) {
		return err
	}

	return nil
}

func isIndexExistsError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "already exists") || strings.Contains(s, "duplicate")
}
