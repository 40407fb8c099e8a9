package fbsvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	basesvc "fb_helpdesk/internal/api/base/service"
	fbmodels "fb_helpdesk/internal/api/fb/models"
	"fb_helpdesk/internal/common"
	"fb_helpdesk/internal/fbclient"
	"fb_helpdesk/internal/global"
	"fb_helpdesk/internal/logger"
)

// FbPageService quản lý vòng đời kết nối page của agent
type FbPageService struct {
	*basesvc.BaseServiceMongoImpl[fbmodels.FbPage]
	graph *fbclient.Client
	log   *logrus.Logger
}

// NewFbPageService tạo mới FbPageService
func NewFbPageService() (*FbPageService, error) {
	coll, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.FbPages)
	if !exist {
		return nil, fmt.Errorf("failed to get fb_pages collection: %v", common.ErrNotFound)
	}
	return &FbPageService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[fbmodels.FbPage](coll),
		graph:                fbclient.NewClient(global.ServerConfig.Facebook_GraphURL),
		log:                  logger.GetAppLogger(),
	}, nil
}

// ConnectPage kết nối page cho agent: xác thực token bằng cách lấy metadata page
// từ Graph API rồi upsert bản ghi kết nối theo cặp (pageId, userId).
// Kết nối lại page đã ngắt sẽ bật lại isConnected với token mới.
func (s *FbPageService) ConnectPage(ctx context.Context, userID, pageID, accessToken string) (*fbmodels.FbPage, error) {
	info, err := s.graph.GetPageInfo(ctx, pageID, accessToken)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"pageId": pageID, "userId": userID}
	data := &basesvc.UpdateData{
		Set: map[string]interface{}{
			"pageName":      info.Name,
			"accessToken":   accessToken,
			"avatar":        info.Picture.Data.URL,
			"category":      info.Category,
			"followerCount": info.FollowersCount,
			"isConnected":   true,
		},
		SetOnInsert: map[string]interface{}{
			"pageId": pageID,
			"userId": userID,
		},
	}
	page, err := s.Upsert(ctx, filter, data)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"page_id": pageID,
		"user_id": userID,
	}).Info("[PAGE] Kết nối page thành công")
	return &page, nil
}

// DisconnectPage ngắt kết nối page của agent và archive toàn bộ hội thoại của page đó.
// Bản ghi kết nối giữ lại (isConnected=false) để kết nối lại không mất lịch sử.
func (s *FbPageService) DisconnectPage(ctx context.Context, userID, pageID string) error {
	filter := bson.M{"pageId": pageID, "userId": userID}
	update := &basesvc.UpdateData{
		Set:   map[string]interface{}{"isConnected": false},
		Unset: map[string]interface{}{"accessToken": ""},
	}
	if _, err := s.UpdateOne(ctx, filter, update, nil); err != nil {
		return err
	}

	convColl, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.FbConversations)
	if !exist {
		return fmt.Errorf("failed to get fb_conversations collection: %v", common.ErrNotFound)
	}
	convService := basesvc.NewBaseServiceMongo[fbmodels.FbConversation](convColl)
	archived, err := convService.UpdateMany(ctx,
		bson.M{"pageId": pageID, "ownerUserId": userID, "status": fbmodels.ConversationStatusActive},
		&basesvc.UpdateData{Set: map[string]interface{}{"status": fbmodels.ConversationStatusArchived}},
		nil,
	)
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"page_id":  pageID,
		"user_id":  userID,
		"archived": archived,
	}).Info("[PAGE] Ngắt kết nối page, đã archive hội thoại")
	return nil
}

// FindConnection tìm kết nối đang hoạt động của một agent với page
func (s *FbPageService) FindConnection(ctx context.Context, userID, pageID string) (*fbmodels.FbPage, error) {
	filter := bson.M{"pageId": pageID, "userId": userID, "isConnected": true}
	page, err := s.FindOne(ctx, filter, nil)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NewError(common.ErrCodeBusinessState, "Page chưa được kết nối", common.StatusNotFound, nil)
		}
		return nil, err
	}
	return &page, nil
}

// FindConnections trả về mọi kết nối đang hoạt động của một page.
// Một page có thể được nhiều agent quản lý, webhook phải xử lý cho từng agent.
func (s *FbPageService) FindConnections(ctx context.Context, pageID string) ([]fbmodels.FbPage, error) {
	filter := bson.M{"pageId": pageID, "isConnected": true}
	return s.Find(ctx, filter, nil)
}
