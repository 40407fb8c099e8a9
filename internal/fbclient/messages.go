package fbclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// RemoteAttachment là một file đính kèm trong tin nhắn Graph API
type RemoteAttachment struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	FileURL  string `json:"file_url"`
	ImageData *struct {
		URL        string `json:"url"`
		PreviewURL string `json:"preview_url"`
	} `json:"image_data"`
	VideoData *struct {
		URL string `json:"url"`
	} `json:"video_data"`
}

// URL trả về đường dẫn tải được của đính kèm, ưu tiên image/video
func (a *RemoteAttachment) URL() string {
	if a.ImageData != nil && a.ImageData.URL != "" {
		return a.ImageData.URL
	}
	if a.VideoData != nil && a.VideoData.URL != "" {
		return a.VideoData.URL
	}
	return a.FileURL
}

// RemoteMessage là tin nhắn lấy từ Graph API trong một hội thoại
type RemoteMessage struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Sticker string `json:"sticker"`
	From    struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"from"`
	CreatedTime string `json:"created_time"`
	Attachments struct {
		Data []RemoteAttachment `json:"data"`
	} `json:"attachments"`
}

type messageListResponse struct {
	Data   []RemoteMessage `json:"data"`
	Paging Paging          `json:"paging"`
}

// ListMessages lấy tin nhắn của một hội thoại, mới nhất trước
func (c *Client) ListMessages(ctx context.Context, conversationID, accessToken string, limit int) ([]RemoteMessage, error) {
	params := url.Values{}
	params.Set("fields", "message,from,created_time,sticker,attachments{mime_type,name,size,file_url,image_data,video_data}")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("access_token", accessToken)

	var resp messageListResponse
	if err := c.get(ctx, fmt.Sprintf("/%s/messages", conversationID), params, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

type sendMessageRequest struct {
	Recipient     map[string]string `json:"recipient"`
	Message       map[string]string `json:"message"`
	MessagingType string            `json:"messaging_type"`
}

type sendMessageResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}

// SendTextMessage gửi tin nhắn văn bản tới một PSID qua /me/messages, trả về message id
func (c *Client) SendTextMessage(ctx context.Context, accessToken, recipientID, text string) (string, error) {
	params := url.Values{}
	params.Set("access_token", accessToken)

	body := sendMessageRequest{
		Recipient:     map[string]string{"id": recipientID},
		Message:       map[string]string{"text": text},
		MessagingType: "RESPONSE",
	}

	var resp sendMessageResponse
	if err := c.post(ctx, "/me/messages", params, body, &resp); err != nil {
		return "", err
	}
	return resp.MessageID, nil
}
