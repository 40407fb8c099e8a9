package fbclient

import (
	"context"
	"fmt"
	"net/url"
)

// RemoteUserProfile là thông tin công khai của khách lấy theo PSID
type RemoteUserProfile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ProfilePic string `json:"profile_pic"`
}

// GetUserProfile lấy tên và ảnh đại diện của khách theo PSID.
// Lỗi permission hoặc not found không được nuốt ở đây, caller quyết định fallback.
func (c *Client) GetUserProfile(ctx context.Context, accessToken, psid string) (*RemoteUserProfile, error) {
	params := url.Values{}
	params.Set("fields", "name,profile_pic")
	params.Set("access_token", accessToken)

	var profile RemoteUserProfile
	if err := c.get(ctx, fmt.Sprintf("/%s", psid), params, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// RemotePageInfo là thông tin của Facebook Page
type RemotePageInfo struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	FollowersCount int64  `json:"followers_count"`
	Picture        struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// GetPageInfo lấy thông tin page, dùng khi kết nối page để lưu metadata
func (c *Client) GetPageInfo(ctx context.Context, pageID, accessToken string) (*RemotePageInfo, error) {
	params := url.Values{}
	params.Set("fields", "name,category,followers_count,picture")
	params.Set("access_token", accessToken)

	var info RemotePageInfo
	if err := c.get(ctx, fmt.Sprintf("/%s", pageID), params, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
