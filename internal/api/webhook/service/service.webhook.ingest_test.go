// Package webhooksvc - Test phân loại và xử lý sub-event webhook với dependency giả.
package webhooksvc

import (
	"context"
	"errors"
	"testing"

	fbmodels "fb_helpdesk/internal/api/fb/models"
	fbsvc "fb_helpdesk/internal/api/fb/service"
	webhookdto "fb_helpdesk/internal/api/webhook/dto"
)

// fakeReconciler ghi lại các lời gọi thay vì chạm Mongo
type fakeReconciler struct {
	merged       []fbsvc.IncomingMessage
	delivered    []string
	failForOwner string // ownerUserId sẽ trả lỗi khi FindOrCreate
	mergeErr     error
}

func (f *fakeReconciler) FindOrCreateConversation(ctx context.Context, pageID, ownerUserID, customerID string, profile fbsvc.ProfileFetchFunc) (*fbmodels.FbConversation, error) {
	if f.failForOwner != "" && ownerUserID == f.failForOwner {
		return nil, errors.New("store unavailable")
	}
	return &fbmodels.FbConversation{
		ConversationId: "conv_" + ownerUserID,
		PageId:         pageID,
		OwnerUserId:    ownerUserID,
		CustomerId:     customerID,
	}, nil
}

func (f *fakeReconciler) MergeMessageBatch(ctx context.Context, conv *fbmodels.FbConversation, batch []fbsvc.IncomingMessage) (*fbsvc.MergeResult, error) {
	if f.mergeErr != nil {
		return nil, f.mergeErr
	}
	f.merged = append(f.merged, batch...)
	result := &fbsvc.MergeResult{}
	for _, in := range batch {
		messageID := in.MessageID
		if messageID == "" {
			messageID = "mid_local_fake"
		}
		result.Inserted++
		result.Messages = append(result.Messages, fbmodels.FbMessage{
			MessageId:      messageID,
			ConversationId: conv.ConversationId,
			SenderId:       in.SenderID,
			SenderRole:     in.SenderRole,
			Body:           in.Body,
			SentAt:         in.SentAt,
		})
	}
	return result, nil
}

func (f *fakeReconciler) MarkDelivered(ctx context.Context, messageIDs []string) (int64, error) {
	f.delivered = append(f.delivered, messageIDs...)
	return int64(len(messageIDs)), nil
}

func (f *fakeReconciler) FindByConversationId(ctx context.Context, conversationID string) (*fbmodels.FbConversation, error) {
	return &fbmodels.FbConversation{ConversationId: conversationID}, nil
}

// fakePageLookup trả các kết nối cấu hình sẵn theo pageId
type fakePageLookup struct {
	connections map[string][]fbmodels.FbPage
}

func (f *fakePageLookup) FindConnections(ctx context.Context, pageID string) ([]fbmodels.FbPage, error) {
	return f.connections[pageID], nil
}

// fakeNotifier ghi lại các lần fan-out thay đổi bình luận
type fakeNotifier struct {
	pageIDs   []string
	summaries []map[string]interface{}
}

func (f *fakeNotifier) NotifyCommentChange(pageID string, summary map[string]interface{}) {
	f.pageIDs = append(f.pageIDs, pageID)
	f.summaries = append(f.summaries, summary)
}

// fakePublisher ghi lại event publish theo room kèm payload
type fakePublisher struct {
	events   []string
	rooms    []string
	payloads []interface{}
}

func (f *fakePublisher) Publish(room, event string, payload interface{}) {
	f.rooms = append(f.rooms, room)
	f.events = append(f.events, event)
	f.payloads = append(f.payloads, payload)
}

func noProfile(accessToken string) fbsvc.ProfileFetchFunc {
	return func(ctx context.Context, customerID string) (string, string, error) {
		return "Khách Test", "", nil
	}
}

func newTestIngest(pages map[string][]fbmodels.FbPage) (*FacebookIngestService, *fakeReconciler, *fakeNotifier, *fakePublisher) {
	reconciler := &fakeReconciler{}
	notifier := &fakeNotifier{}
	publisher := &fakePublisher{}
	svc := NewFacebookIngestServiceWith(reconciler, &fakePageLookup{connections: pages}, notifier, publisher, noProfile)
	return svc, reconciler, notifier, publisher
}

func messageEnvelope(pageID, senderID, mid, text string) *webhookdto.Envelope {
	return &webhookdto.Envelope{
		Object: "page",
		Entry: []webhookdto.Entry{{
			ID: pageID,
			Messaging: []webhookdto.MessagingEvent{{
				Sender:    webhookdto.Party{ID: senderID},
				Recipient: webhookdto.Party{ID: pageID},
				Timestamp: 1700000000000,
				Message:   &webhookdto.MessagePayload{Mid: mid, Text: text},
			}},
		}},
	}
}

func TestProcessEnvelope_TinKhachDuocGhiVaFanOut(t *testing.T) {
	pages := map[string][]fbmodels.FbPage{
		"page1": {{PageId: "page1", UserId: "agent1", AccessToken: "tok1"}},
	}
	svc, reconciler, _, publisher := newTestIngest(pages)

	summary := svc.ProcessEnvelope(context.Background(), messageEnvelope("page1", "cust1", "mid.1", "xin chào"))
	if summary.Processed != 1 || summary.Failed != 0 {
		t.Errorf("summary = %+v, muốn Processed=1", summary)
	}
	if len(reconciler.merged) != 1 || reconciler.merged[0].MessageID != "mid.1" {
		t.Fatalf("tin chưa được merge: %+v", reconciler.merged)
	}
	if reconciler.merged[0].SenderRole != fbmodels.SenderRoleCustomer {
		t.Errorf("SenderRole = %q, tin webhook phải là customer", reconciler.merged[0].SenderRole)
	}
	// new-message cho agent + conversation-updated cho agent và page room
	if len(publisher.events) != 3 {
		t.Fatalf("publish %d event, muốn 3: %v", len(publisher.events), publisher.events)
	}
	payload, ok := publisher.payloads[0].(fbsvc.NewMessagePayload)
	if !ok {
		t.Fatalf("payload new-message phải là NewMessagePayload, nhận được %T", publisher.payloads[0])
	}
	if payload.ConversationId != "conv_agent1" {
		t.Errorf("payload.ConversationId = %q, muốn conv_agent1", payload.ConversationId)
	}
	if payload.Message == nil || payload.Message.MessageId != "mid.1" {
		t.Errorf("payload.Message phải mang messageId đã lưu: %+v", payload.Message)
	}
	if payload.Conversation == nil {
		t.Error("payload phải kèm trạng thái hội thoại để client cập nhật danh sách")
	}
}

func TestProcessEnvelope_TinKhongMidVanCoMessageIdTrongPayload(t *testing.T) {
	pages := map[string][]fbmodels.FbPage{
		"page1": {{PageId: "page1", UserId: "agent1", AccessToken: "tok1"}},
	}
	svc, _, _, publisher := newTestIngest(pages)

	svc.ProcessEnvelope(context.Background(), messageEnvelope("page1", "cust1", "", "không có mid"))

	if len(publisher.payloads) == 0 {
		t.Fatal("tin không mid vẫn phải được fan-out")
	}
	payload, ok := publisher.payloads[0].(fbsvc.NewMessagePayload)
	if !ok {
		t.Fatalf("payload new-message phải là NewMessagePayload, nhận được %T", publisher.payloads[0])
	}
	if payload.Message == nil || payload.Message.MessageId == "" {
		t.Error("messageId sinh cục bộ phải tới được payload để client dedup")
	}
}

func TestProcessEnvelope_EchoBiBoQua(t *testing.T) {
	pages := map[string][]fbmodels.FbPage{
		"page1": {{PageId: "page1", UserId: "agent1"}},
	}

	// is_echo flag
	svc, reconciler, _, _ := newTestIngest(pages)
	env := messageEnvelope("page1", "cust1", "mid.echo", "echo")
	env.Entry[0].Messaging[0].Message.IsEcho = true
	summary := svc.ProcessEnvelope(context.Background(), env)
	if summary.Skipped != 1 || len(reconciler.merged) != 0 {
		t.Errorf("is_echo phải bị bỏ qua: summary=%+v merged=%d", summary, len(reconciler.merged))
	}

	// sender trùng page id
	svc2, reconciler2, _, _ := newTestIngest(pages)
	summary2 := svc2.ProcessEnvelope(context.Background(), messageEnvelope("page1", "page1", "mid.self", "tự gửi"))
	if summary2.Skipped != 1 || len(reconciler2.merged) != 0 {
		t.Errorf("sender trùng page phải bị bỏ qua: summary=%+v", summary2)
	}
}

func TestProcessEnvelope_PageChuaKetNoiKhongLoi(t *testing.T) {
	svc, reconciler, _, _ := newTestIngest(map[string][]fbmodels.FbPage{})

	summary := svc.ProcessEnvelope(context.Background(), messageEnvelope("page_la", "cust1", "mid.1", "xin chào"))
	if summary.Failed != 0 {
		t.Errorf("page chưa kết nối không được tính là lỗi: %+v", summary)
	}
	if len(reconciler.merged) != 0 {
		t.Error("không được merge tin cho page chưa kết nối")
	}
}

func TestProcessEnvelope_NhieuAgentMotPageLoiMotKhongChanAgentKhac(t *testing.T) {
	pages := map[string][]fbmodels.FbPage{
		"page1": {
			{PageId: "page1", UserId: "agent1"},
			{PageId: "page1", UserId: "agent2"},
		},
	}
	svc, reconciler, _, _ := newTestIngest(pages)
	reconciler.failForOwner = "agent1"

	summary := svc.ProcessEnvelope(context.Background(), messageEnvelope("page1", "cust1", "mid.1", "xin chào"))
	if summary.Failed != 1 {
		t.Errorf("sub-event có agent lỗi phải tính Failed: %+v", summary)
	}
	// agent2 vẫn nhận được tin
	if len(reconciler.merged) != 1 {
		t.Errorf("agent2 phải vẫn được merge tin, merged=%d", len(reconciler.merged))
	}
}

func TestProcessEnvelope_SubEventLoiKhongChanSibling(t *testing.T) {
	pages := map[string][]fbmodels.FbPage{
		"page1": {{PageId: "page1", UserId: "agent1"}},
	}
	svc, reconciler, notifier, _ := newTestIngest(pages)
	reconciler.mergeErr = errors.New("write failed")

	// Một message lỗi + một comment change phải vẫn được xử lý
	env := messageEnvelope("page1", "cust1", "mid.1", "xin chào")
	env.Entry[0].Changes = []webhookdto.ChangeEvent{{
		Field: "feed",
		Value: webhookdto.ChangeValue{Item: "comment", Verb: "add", CommentID: "c1", PostID: "p1"},
	}}

	summary := svc.ProcessEnvelope(context.Background(), env)
	if summary.Events != 2 {
		t.Errorf("Events = %d, muốn 2", summary.Events)
	}
	if summary.Failed != 1 || summary.Processed != 1 {
		t.Errorf("summary = %+v, muốn Failed=1 Processed=1", summary)
	}
	if len(notifier.pageIDs) != 1 {
		t.Error("comment change phải vẫn được fan-out dù message sibling lỗi")
	}
}

func TestProcessEnvelope_DeliveryReceipt(t *testing.T) {
	svc, reconciler, _, _ := newTestIngest(map[string][]fbmodels.FbPage{})

	env := &webhookdto.Envelope{
		Object: "page",
		Entry: []webhookdto.Entry{{
			ID: "page1",
			Messaging: []webhookdto.MessagingEvent{{
				Sender:   webhookdto.Party{ID: "cust1"},
				Delivery: &webhookdto.DeliveryPayload{Mids: []string{"mid.1", "mid.la"}, Watermark: 1700000000000},
			}},
		}},
	}
	summary := svc.ProcessEnvelope(context.Background(), env)
	if summary.Processed != 1 {
		t.Errorf("delivery receipt phải được xử lý: %+v", summary)
	}
	if len(reconciler.delivered) != 2 {
		t.Errorf("MarkDelivered nhận %d mid, muốn 2", len(reconciler.delivered))
	}
}

func TestProcessEnvelope_ReadVaPostbackChiGhiNhan(t *testing.T) {
	svc, reconciler, _, publisher := newTestIngest(map[string][]fbmodels.FbPage{})

	env := &webhookdto.Envelope{
		Object: "page",
		Entry: []webhookdto.Entry{{
			ID: "page1",
			Messaging: []webhookdto.MessagingEvent{
				{Sender: webhookdto.Party{ID: "cust1"}, Read: &webhookdto.ReadPayload{Watermark: 1700000000000}},
				{Sender: webhookdto.Party{ID: "cust1"}, Postback: &webhookdto.PostbackPayload{Payload: "GET_STARTED"}},
			},
		}},
	}
	summary := svc.ProcessEnvelope(context.Background(), env)
	if summary.Processed != 2 {
		t.Errorf("read và postback phải được ghi nhận: %+v", summary)
	}
	if len(reconciler.merged) != 0 || len(publisher.events) != 0 {
		t.Error("read/postback không được merge tin hay fan-out")
	}
}

func TestProcessEnvelope_SubEventKhongNhanDien(t *testing.T) {
	svc, _, _, _ := newTestIngest(map[string][]fbmodels.FbPage{})

	env := &webhookdto.Envelope{
		Object: "page",
		Entry: []webhookdto.Entry{{
			ID:        "page1",
			Messaging: []webhookdto.MessagingEvent{{Sender: webhookdto.Party{ID: "cust1"}}},
		}},
	}
	summary := svc.ProcessEnvelope(context.Background(), env)
	if summary.Skipped != 1 {
		t.Errorf("sub-event rỗng phải bị bỏ qua: %+v", summary)
	}
}

func TestProcessEnvelope_ChangeKhongPhaiCommentBiBoQua(t *testing.T) {
	svc, _, notifier, _ := newTestIngest(map[string][]fbmodels.FbPage{})

	env := &webhookdto.Envelope{
		Object: "page",
		Entry: []webhookdto.Entry{{
			ID: "page1",
			Changes: []webhookdto.ChangeEvent{
				{Field: "feed", Value: webhookdto.ChangeValue{Item: "post", Verb: "add"}},
				{Field: "feed", Value: webhookdto.ChangeValue{Item: "comment", Verb: "add", CommentID: "c1"}},
			},
		}},
	}
	summary := svc.ProcessEnvelope(context.Background(), env)
	if summary.Skipped != 1 || summary.Processed != 1 {
		t.Errorf("summary = %+v, muốn Skipped=1 Processed=1", summary)
	}
	if len(notifier.summaries) != 1 || notifier.summaries[0]["commentId"] != "c1" {
		t.Errorf("fan-out sai: %+v", notifier.summaries)
	}
}

func TestNormalizeWebhookMessage_StickerVaFallback(t *testing.T) {
	event := &webhookdto.MessagingEvent{
		Sender:    webhookdto.Party{ID: "cust1"},
		Timestamp: 1700000000000,
		Message: &webhookdto.MessagePayload{
			Mid:       "mid.1",
			StickerID: 369239263222822,
			Attachments: []webhookdto.WebhookAttachment{
				{Type: "image", Payload: webhookdto.AttachmentPayload{URL: "https://cdn.fb.com/sticker.png", StickerID: 369239263222822}},
				{Type: "fallback", Payload: webhookdto.AttachmentPayload{URL: "https://example.com/doc"}},
			},
		},
	}

	in := normalizeWebhookMessage(event)
	if in.Sticker == "" {
		t.Error("sticker_id khác 0 phải đánh dấu tin là sticker")
	}
	if in.Attachments[0].Type != "sticker" {
		t.Errorf("attachment có sticker_id phải thành sticker, nhận được %q", in.Attachments[0].Type)
	}
	if in.Attachments[1].Type != "file" {
		t.Errorf("fallback phải thành file, nhận được %q", in.Attachments[1].Type)
	}
	if in.SentAt != 1700000000000 {
		t.Errorf("SentAt = %d, phải lấy timestamp của event", in.SentAt)
	}
}
