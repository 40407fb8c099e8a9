package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FbPage là kết nối giữa một tài khoản agent và một Facebook Page.
// Một page có thể được nhiều agent quản lý, mỗi agent một bản ghi riêng
// với access token của họ, unique theo cặp (pageId, userId).
type FbPage struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"` // ID của bản ghi
	PageId        string             `json:"pageId" bson:"pageId"`              // ID của page trên Facebook
	UserId        string             `json:"userId" bson:"userId"`              // ID tài khoản agent sở hữu kết nối
	PageName      string             `json:"pageName" bson:"pageName"`          // Tên page
	AccessToken   string             `json:"-" bson:"accessToken"`              // Page access token, không trả ra API
	Avatar        string             `json:"avatar" bson:"avatar"`              // Ảnh đại diện của page
	Category      string             `json:"category" bson:"category"`          // Phân loại page trên Facebook
	FollowerCount int64              `json:"followerCount" bson:"followerCount"`
	IsConnected   bool               `json:"isConnected" bson:"isConnected" default:"true"` // false khi agent ngắt kết nối

	CreatedAt int64 `json:"createdAt" bson:"createdAt"` // Thời gian tạo
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"` // Thời gian cập nhật
}
