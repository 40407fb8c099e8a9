package fbclient

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// RemotePost là bài viết trên page lấy từ Graph API
type RemotePost struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	CreatedTime string `json:"created_time"`
}

type postListResponse struct {
	Data   []RemotePost `json:"data"`
	Paging Paging       `json:"paging"`
}

// RemoteCommentAuthor là người viết bình luận
type RemoteCommentAuthor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RemoteCommentReplies là danh sách replies lồng trong một comment gốc
type RemoteCommentReplies struct {
	Data []RemoteComment `json:"data"`
}

// RemoteComment là bình luận trên một bài viết, kèm replies lồng một cấp
type RemoteComment struct {
	ID          string                `json:"id"`
	Message     string                `json:"message"`
	From        RemoteCommentAuthor   `json:"from"`
	CreatedTime string                `json:"created_time"`
	IsHidden    bool                  `json:"is_hidden"`
	LikeCount   int                   `json:"like_count"`
	Comments    *RemoteCommentReplies `json:"comments"`
}

type commentListResponse struct {
	Data   []RemoteComment `json:"data"`
	Paging Paging          `json:"paging"`
}

// ListPosts lấy danh sách bài viết gần nhất của page
func (c *Client) ListPosts(ctx context.Context, pageID, accessToken string, limit int) ([]RemotePost, error) {
	params := url.Values{}
	params.Set("fields", "message,created_time")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("access_token", accessToken)

	var resp postListResponse
	if err := c.get(ctx, fmt.Sprintf("/%s/posts", pageID), params, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListComments lấy bình luận của một bài viết, replies được trả lồng trong từng comment gốc
func (c *Client) ListComments(ctx context.Context, postID, accessToken string) ([]RemoteComment, error) {
	params := url.Values{}
	params.Set("fields", "from,message,created_time,is_hidden,like_count,comments{from,message,created_time,is_hidden,like_count}")
	params.Set("access_token", accessToken)

	var resp commentListResponse
	if err := c.get(ctx, fmt.Sprintf("/%s/comments", postID), params, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

type createCommentResponse struct {
	ID string `json:"id"`
}

// ReplyToComment trả lời công khai một bình luận, trả về id bình luận mới
func (c *Client) ReplyToComment(ctx context.Context, accessToken, commentID, message string) (string, error) {
	params := url.Values{}
	params.Set("access_token", accessToken)

	body := map[string]string{"message": message}

	var resp createCommentResponse
	if err := c.post(ctx, fmt.Sprintf("/%s/comments", commentID), params, body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// SetCommentHidden ẩn hoặc hiện một bình luận
func (c *Client) SetCommentHidden(ctx context.Context, accessToken, commentID string, hidden bool) error {
	params := url.Values{}
	params.Set("access_token", accessToken)

	body := map[string]bool{"is_hidden": hidden}
	return c.post(ctx, fmt.Sprintf("/%s", commentID), params, body, nil)
}

// DeleteComment xóa vĩnh viễn một bình luận
func (c *Client) DeleteComment(ctx context.Context, accessToken, commentID string) error {
	params := url.Values{}
	params.Set("access_token", accessToken)
	return c.del(ctx, fmt.Sprintf("/%s", commentID), params, nil)
}

// SetCommentLike like hoặc bỏ like một bình luận bằng danh tính page
func (c *Client) SetCommentLike(ctx context.Context, accessToken, commentID string, like bool) error {
	params := url.Values{}
	params.Set("access_token", accessToken)

	path := fmt.Sprintf("/%s/likes", commentID)
	if like {
		return c.post(ctx, path, params, nil, nil)
	}
	return c.del(ctx, path, params, nil)
}

// SendPrivateReply gửi tin nhắn riêng cho người bình luận qua /me/messages.
// Facebook chỉ cho phép một private reply cho mỗi comment.
func (c *Client) SendPrivateReply(ctx context.Context, accessToken, commentID, text string) (string, error) {
	params := url.Values{}
	params.Set("access_token", accessToken)

	body := sendMessageRequest{
		Recipient:     map[string]string{"comment_id": commentID},
		Message:       map[string]string{"text": text},
		MessagingType: "RESPONSE",
	}

	var resp sendMessageResponse
	if err := c.post(ctx, "/me/messages", params, body, &resp); err != nil {
		return "", err
	}
	return resp.MessageID, nil
}
