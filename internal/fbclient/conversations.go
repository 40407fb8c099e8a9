package fbclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// RemoteParticipant là một bên tham gia hội thoại trên Facebook
type RemoteParticipant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RemoteConversation là hội thoại lấy từ Graph API
type RemoteConversation struct {
	ID           string `json:"id"`
	UpdatedTime  string `json:"updated_time"`
	UnreadCount  int    `json:"unread_count"`
	Participants struct {
		Data []RemoteParticipant `json:"data"`
	} `json:"participants"`
}

type conversationListResponse struct {
	Data   []RemoteConversation `json:"data"`
	Paging Paging               `json:"paging"`
}

// CustomerParticipant trả về participant không phải chính page.
// Graph API luôn trả cả page lẫn khách trong danh sách participants.
func (rc *RemoteConversation) CustomerParticipant(pageID string) *RemoteParticipant {
	for i := range rc.Participants.Data {
		if rc.Participants.Data[i].ID != pageID {
			return &rc.Participants.Data[i]
		}
	}
	return nil
}

// ListConversations lấy danh sách hội thoại của page, sắp theo updated_time giảm dần
func (c *Client) ListConversations(ctx context.Context, pageID, accessToken string, limit int) ([]RemoteConversation, error) {
	params := url.Values{}
	params.Set("fields", "participants,updated_time,unread_count")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("access_token", accessToken)

	var resp conversationListResponse
	if err := c.get(ctx, fmt.Sprintf("/%s/conversations", pageID), params, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
