// Package fbclient - Test map lỗi Graph API và parse response qua httptest server.
package fbclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fb_helpdesk/internal/common"
)

// graphStub dựng server giả trả về body và status cố định
func graphStub(t *testing.T, status int, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestMapGraphError(t *testing.T) {
	cases := []struct {
		name string
		code int
		want error
	}{
		{"token hết hạn", 190, common.ErrRemoteToken},
		{"rate limit app", 4, common.ErrRemoteRateLimit},
		{"rate limit user", 17, common.ErrRemoteRateLimit},
		{"rate limit page", 32, common.ErrRemoteRateLimit},
		{"rate limit custom", 613, common.ErrRemoteRateLimit},
		{"thiếu quyền", 10, common.ErrRemotePermission},
		{"thiếu quyền 200", 200, common.ErrRemotePermission},
		{"thiếu quyền 299", 299, common.ErrRemotePermission},
	}
	for _, tc := range cases {
		got := mapGraphError(&GraphError{Code: tc.code})
		assert.True(t, errors.Is(got, tc.want), "%s: mã %d map sai, nhận được %v", tc.name, tc.code, got)
	}

	// Mã lạ giữ nguyên message và details để debug
	unknown := mapGraphError(&GraphError{Code: 1, Message: "An unknown error occurred"})
	var appErr *common.Error
	require.True(t, errors.As(unknown, &appErr), "mã lạ phải trả về common.Error")
	assert.Equal(t, common.ErrCodeRemoteAPI.Code, appErr.Code.Code)
	assert.Equal(t, "An unknown error occurred", appErr.Message)
}

func TestListConversations_TokenHetHan(t *testing.T) {
	client := graphStub(t, http.StatusBadRequest, `{
		"error": {
			"message": "Error validating access token",
			"type": "OAuthException",
			"code": 190,
			"fbtrace_id": "AbCdEf"
		}
	}`)

	_, err := client.ListConversations(context.Background(), "page1", "tok_expired", 25)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrRemoteToken), "lỗi 190 phải map sang ErrRemoteToken, nhận được %v", err)
}

func TestListConversations_ParseParticipants(t *testing.T) {
	client := graphStub(t, http.StatusOK, `{
		"data": [{
			"id": "t_100",
			"updated_time": "2026-08-29T10:00:00+0000",
			"unread_count": 2,
			"participants": {"data": [
				{"id": "page1", "name": "Shop ABC"},
				{"id": "cust1", "name": "Nguyễn Văn A"}
			]}
		}]
	}`)

	convs, err := client.ListConversations(context.Background(), "page1", "tok", 25)
	require.NoError(t, err)
	require.Len(t, convs, 1)

	customer := convs[0].CustomerParticipant("page1")
	require.NotNil(t, customer, "phải tìm được participant không phải page")
	assert.Equal(t, "cust1", customer.ID)
	assert.Equal(t, "Nguyễn Văn A", customer.Name)
}

func TestSendTextMessage(t *testing.T) {
	client := graphStub(t, http.StatusOK, `{"recipient_id": "cust1", "message_id": "mid.xyz"}`)

	mid, err := client.SendTextMessage(context.Background(), "tok", "cust1", "xin chào")
	require.NoError(t, err)
	assert.Equal(t, "mid.xyz", mid)
}

func TestSendTextMessage_RateLimit(t *testing.T) {
	client := graphStub(t, http.StatusForbidden, `{
		"error": {"message": "Application request limit reached", "type": "OAuthException", "code": 4}
	}`)

	_, err := client.SendTextMessage(context.Background(), "tok", "cust1", "xin chào")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrRemoteRateLimit))
}

func TestDo_LoiKhongPhaiJSON(t *testing.T) {
	client := graphStub(t, http.StatusBadGateway, `<html>Bad Gateway</html>`)

	_, err := client.GetUserProfile(context.Background(), "tok", "cust1")
	require.Error(t, err)
	var appErr *common.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, common.ErrCodeRemoteAPI.Code, appErr.Code.Code)
}

func TestParseGraphTime(t *testing.T) {
	assert.Equal(t, int64(0), ParseGraphTime(""), "chuỗi rỗng trả về 0")
	assert.Equal(t, int64(0), ParseGraphTime("không phải thời gian"), "chuỗi hỏng trả về 0")

	got := ParseGraphTime("2026-08-29T10:30:00+0700")
	assert.Greater(t, got, int64(0))
	// 2026-08-29T03:30:00Z
	assert.Equal(t, int64(1787974200000), got)
}
