// Package fbclient bao bọc Facebook Graph API: hội thoại, tin nhắn, bình luận, profile.
// Mọi lỗi Graph trả về được map sang error hệ thống trong internal/common.
package fbclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"fb_helpdesk/internal/common"
	"fb_helpdesk/internal/logger"
)

// graphTimeLayout là định dạng created_time/updated_time của Graph API
const graphTimeLayout = "2006-01-02T15:04:05-0700"

// Client gọi Facebook Graph API qua HTTP với timeout cố định cho mỗi request
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logrus.Logger
}

// NewClient tạo Graph API client với base URL (ví dụ https://graph.facebook.com/v23.0)
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        logger.GetAppLogger(),
	}
}

// GraphError là payload lỗi chuẩn của Graph API
type GraphError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	Subcode   int    `json:"error_subcode"`
	FbtraceID string `json:"fbtrace_id"`
}

// Error trả về mô tả lỗi Graph
func (e *GraphError) Error() string {
	return fmt.Sprintf("graph API error %d (%s): %s", e.Code, e.Type, e.Message)
}

type graphErrorEnvelope struct {
	Error *GraphError `json:"error"`
}

// Paging chứa thông tin phân trang theo cursor của Graph API
type Paging struct {
	Cursors struct {
		Before string `json:"before"`
		After  string `json:"after"`
	} `json:"cursors"`
	Next string `json:"next"`
}

// mapGraphError map mã lỗi Graph sang error hệ thống.
// 190: token; 4/17/32/613: rate limit; 10 và 200-299: permission.
func mapGraphError(ge *GraphError) error {
	switch {
	case ge.Code == 190:
		return common.ErrRemoteToken
	case ge.Code == 4 || ge.Code == 17 || ge.Code == 32 || ge.Code == 613:
		return common.ErrRemoteRateLimit
	case ge.Code == 10 || (ge.Code >= 200 && ge.Code <= 299):
		return common.ErrRemotePermission
	default:
		return common.NewError(common.ErrCodeRemoteAPI, ge.Message, common.StatusBadGateway, ge)
	}
}

// ParseGraphTime parse created_time/updated_time của Graph sang epoch milli.
// Trả về 0 nếu chuỗi rỗng hoặc không parse được.
func ParseGraphTime(s string) int64 {
	if s == "" {
		return 0
	}
	t, err := time.Parse(graphTimeLayout, s)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}

// do thực hiện request và decode response, xử lý payload lỗi của Graph
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body interface{}, out interface{}) error {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return common.NewError(common.ErrCodeValidationFormat, "Lỗi encode request body cho Graph API", common.StatusInternalServerError, err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return common.NewError(common.ErrCodeRemoteAPI, "Lỗi tạo request tới Graph API", common.StatusInternalServerError, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
			"error":  err.Error(),
		}).Error("[GRAPH] Lỗi khi gọi Graph API")
		return common.NewError(common.ErrCodeRemoteAPI, "Không gọi được Graph API", common.StatusBadGateway, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return common.NewError(common.ErrCodeRemoteAPI, "Lỗi đọc response từ Graph API", common.StatusBadGateway, err)
	}

	if resp.StatusCode >= 400 {
		var envelope graphErrorEnvelope
		if err := json.Unmarshal(respBody, &envelope); err == nil && envelope.Error != nil {
			c.log.WithFields(logrus.Fields{
				"method":     method,
				"path":       path,
				"graph_code": envelope.Error.Code,
				"graph_type": envelope.Error.Type,
				"fbtrace_id": envelope.Error.FbtraceID,
			}).Warn("[GRAPH] Graph API trả về lỗi")
			return mapGraphError(envelope.Error)
		}
		return common.NewError(
			common.ErrCodeRemoteAPI,
			fmt.Sprintf("Graph API trả về status %d", resp.StatusCode),
			common.StatusBadGateway,
			string(respBody),
		)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return common.NewError(common.ErrCodeValidationFormat, "Lỗi decode response từ Graph API", common.StatusBadGateway, err)
		}
	}

	return nil
}

// get thực hiện GET request tới Graph API
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, params, nil, out)
}

// post thực hiện POST request với JSON body tới Graph API
func (c *Client) post(ctx context.Context, path string, params url.Values, body interface{}, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, params, body, out)
}

// del thực hiện DELETE request tới Graph API
func (c *Client) del(ctx context.Context, path string, params url.Values, out interface{}) error {
	return c.do(ctx, http.MethodDelete, path, params, nil, out)
}
