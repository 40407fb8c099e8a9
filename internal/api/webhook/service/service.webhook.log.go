// Package webhooksvc chứa service ingest webhook Facebook và log webhook.
package webhooksvc

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	basesvc "fb_helpdesk/internal/api/base/service"
	webhookmodels "fb_helpdesk/internal/api/webhook/models"
	"fb_helpdesk/internal/common"
	"fb_helpdesk/internal/global"
)

// WebhookLogService lưu và cập nhật trạng thái xử lý của webhook log
type WebhookLogService struct {
	*basesvc.BaseServiceMongoImpl[webhookmodels.WebhookLog]
}

// NewWebhookLogService tạo mới WebhookLogService
func NewWebhookLogService() (*WebhookLogService, error) {
	coll, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.WebhookLogs)
	if !exist {
		return nil, fmt.Errorf("failed to get webhook_logs collection: %v", common.ErrNotFound)
	}
	return &WebhookLogService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[webhookmodels.WebhookLog](coll),
	}, nil
}

// CreateWebhookLog ghi một webhook vừa nhận, trước khi xử lý
func (s *WebhookLogService) CreateWebhookLog(ctx context.Context, log webhookmodels.WebhookLog) (*webhookmodels.WebhookLog, error) {
	if log.ReceivedAt == 0 {
		log.ReceivedAt = time.Now().UnixMilli()
	}
	result, err := s.InsertOne(ctx, log)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateProcessedStatus cập nhật kết quả xử lý của webhook log
func (s *WebhookLogService) UpdateProcessedStatus(ctx context.Context, logID primitive.ObjectID, processed bool, errorMsg string) error {
	now := time.Now().UnixMilli()
	set := bson.M{
		"processed":    processed,
		"processError": errorMsg,
		"updatedAt":    now,
	}
	if processed {
		set["processedAt"] = now
	}

	_, err := s.Collection().UpdateOne(ctx, bson.M{"_id": logID}, bson.M{"$set": set})
	if err != nil {
		return common.ConvertMongoError(err)
	}
	return nil
}
