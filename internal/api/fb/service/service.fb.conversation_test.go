// Package fbsvc - Test reconciler: session window, merge idempotent, unread và summary.
package fbsvc

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	fbmodels "fb_helpdesk/internal/api/fb/models"
)

// fakeConversationStore giữ hội thoại trong memory cho test reconciler
type fakeConversationStore struct {
	convs       []fbmodels.FbConversation
	insertCalls int
}

func (f *fakeConversationStore) FindLatest(ctx context.Context, pageID, customerID, ownerUserID string) (*fbmodels.FbConversation, error) {
	var latest *fbmodels.FbConversation
	for i := range f.convs {
		c := &f.convs[i]
		if c.PageId != pageID || c.CustomerId != customerID || c.OwnerUserId != ownerUserID {
			continue
		}
		if latest == nil || c.LastMessageAt > latest.LastMessageAt {
			latest = c
		}
	}
	return latest, nil
}

func (f *fakeConversationStore) Insert(ctx context.Context, conv fbmodels.FbConversation) (fbmodels.FbConversation, error) {
	f.insertCalls++
	f.convs = append(f.convs, conv)
	return conv, nil
}

func (f *fakeConversationStore) find(conversationID string) *fbmodels.FbConversation {
	for i := range f.convs {
		if f.convs[i].ConversationId == conversationID {
			return &f.convs[i]
		}
	}
	return nil
}

func (f *fakeConversationStore) SetRemoteID(ctx context.Context, conversationID, remoteID string) error {
	if c := f.find(conversationID); c != nil {
		c.RemoteConversationId = remoteID
	}
	return nil
}

func (f *fakeConversationStore) AdvanceLastMessage(ctx context.Context, conversationID string, sentAt int64, summary string) error {
	c := f.find(conversationID)
	if c == nil || c.LastMessageAt >= sentAt {
		// Không match filter không phải lỗi, giống hành vi UpdateOne với guard
		return nil
	}
	c.LastMessageAt = sentAt
	c.LastMessageSummary = summary
	return nil
}

func (f *fakeConversationStore) ForceLastMessage(ctx context.Context, conversationID string, sentAt int64, summary string) error {
	if c := f.find(conversationID); c != nil {
		c.LastMessageAt = sentAt
		c.LastMessageSummary = summary
	}
	return nil
}

func (f *fakeConversationStore) IncUnread(ctx context.Context, conversationID string, n int64) error {
	if c := f.find(conversationID); c != nil {
		c.UnreadCount += n
	}
	return nil
}

func (f *fakeConversationStore) SetUnread(ctx context.Context, conversationID string, count int64) error {
	if c := f.find(conversationID); c != nil {
		c.UnreadCount = count
	}
	return nil
}

func (f *fakeConversationStore) FindByConversationId(ctx context.Context, conversationID string) (*fbmodels.FbConversation, error) {
	return f.find(conversationID), nil
}

// fakeMessageStore giữ tin nhắn trong memory, unique theo messageId
type fakeMessageStore struct {
	msgs      map[string]*fbmodels.FbMessage
	failMids  map[string]bool // messageId sẽ trả lỗi khi insert
	delivered []string
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{msgs: map[string]*fbmodels.FbMessage{}, failMids: map[string]bool{}}
}

func (f *fakeMessageStore) InsertIfAbsent(ctx context.Context, msg fbmodels.FbMessage) (bool, error) {
	if f.failMids[msg.MessageId] {
		return false, errors.New("write failed")
	}
	if _, ok := f.msgs[msg.MessageId]; ok {
		return false, nil
	}
	m := msg
	f.msgs[msg.MessageId] = &m
	return true, nil
}

func (f *fakeMessageStore) MarkConversationRead(ctx context.Context, conversationID, agentID string, readAt int64) (int64, error) {
	var marked int64
	for _, m := range f.msgs {
		if m.ConversationId == conversationID && m.SenderRole == fbmodels.SenderRoleCustomer && !m.IsRead {
			m.IsRead = true
			m.ReadAt = readAt
			m.ReadBy = agentID
			marked++
		}
	}
	return marked, nil
}

func (f *fakeMessageStore) CountUnread(ctx context.Context, conversationID string) (int64, error) {
	var n int64
	for _, m := range f.msgs {
		if m.ConversationId == conversationID && m.SenderRole == fbmodels.SenderRoleCustomer && !m.IsRead {
			n++
		}
	}
	return n, nil
}

func (f *fakeMessageStore) MarkDelivered(ctx context.Context, messageIDs []string) (int64, error) {
	var n int64
	for _, mid := range messageIDs {
		if m, ok := f.msgs[mid]; ok && m.DeliveryState != fbmodels.DeliveryStateDelivered {
			m.DeliveryState = fbmodels.DeliveryStateDelivered
			f.delivered = append(f.delivered, mid)
			n++
		}
	}
	return n, nil
}

func newTestReconciler() (*FbConversationService, *fakeConversationStore, *fakeMessageStore) {
	convs := &fakeConversationStore{}
	msgs := newFakeMessageStore()
	return NewFbConversationServiceWithStores(convs, msgs, 24*time.Hour), convs, msgs
}

func TestFindOrCreateConversation_TrongPhienDungLaiHoiThoaiCu(t *testing.T) {
	svc, convs, _ := newTestReconciler()
	ctx := context.Background()

	// Tin cuối mới 23h59m trước, vẫn trong cửa sổ 24h
	convs.convs = append(convs.convs, fbmodels.FbConversation{
		ConversationId: "conv_old",
		PageId:         "page1",
		CustomerId:     "cust1",
		OwnerUserId:    "agent1",
		LastMessageAt:  time.Now().Add(-23*time.Hour - 59*time.Minute).UnixMilli(),
	})

	got, err := svc.FindOrCreateConversation(ctx, "page1", "agent1", "cust1", nil)
	if err != nil {
		t.Fatalf("FindOrCreateConversation lỗi: %v", err)
	}
	if got.ConversationId != "conv_old" {
		t.Errorf("phải dùng lại hội thoại trong phiên, nhận được %s", got.ConversationId)
	}
	if convs.insertCalls != 0 {
		t.Errorf("không được insert hội thoại mới, insertCalls = %d", convs.insertCalls)
	}
}

func TestFindOrCreateConversation_HetPhienMoHoiThoaiMoi(t *testing.T) {
	svc, convs, _ := newTestReconciler()
	ctx := context.Background()

	convs.convs = append(convs.convs, fbmodels.FbConversation{
		ConversationId: "conv_old",
		PageId:         "page1",
		CustomerId:     "cust1",
		OwnerUserId:    "agent1",
		LastMessageAt:  time.Now().Add(-24*time.Hour - time.Minute).UnixMilli(),
	})

	got, err := svc.FindOrCreateConversation(ctx, "page1", "agent1", "cust1", nil)
	if err != nil {
		t.Fatalf("FindOrCreateConversation lỗi: %v", err)
	}
	if got.ConversationId == "conv_old" {
		t.Error("tin cuối cũ hơn session window phải mở hội thoại mới")
	}
	if convs.insertCalls != 1 {
		t.Errorf("insertCalls = %d, muốn 1", convs.insertCalls)
	}
	// Hội thoại cũ không bị sửa
	old := convs.find("conv_old")
	if old == nil || old.ConversationId != "conv_old" {
		t.Error("hội thoại cũ phải giữ nguyên định danh")
	}
}

func TestFindOrCreateConversation_ChuaCoTinVanTrongPhien(t *testing.T) {
	svc, convs, _ := newTestReconciler()
	ctx := context.Background()

	// lastMessageAt == 0: hội thoại vừa mở chưa có tin
	convs.convs = append(convs.convs, fbmodels.FbConversation{
		ConversationId: "conv_empty",
		PageId:         "page1",
		CustomerId:     "cust1",
		OwnerUserId:    "agent1",
		LastMessageAt:  0,
	})

	got, err := svc.FindOrCreateConversation(ctx, "page1", "agent1", "cust1", nil)
	if err != nil {
		t.Fatalf("FindOrCreateConversation lỗi: %v", err)
	}
	if got.ConversationId != "conv_empty" {
		t.Errorf("hội thoại chưa có tin phải được dùng lại, nhận được %s", got.ConversationId)
	}
}

func TestFindOrCreateConversation_ProfileLoiDungTenMacDinh(t *testing.T) {
	svc, convs, _ := newTestReconciler()
	ctx := context.Background()

	profile := func(ctx context.Context, customerID string) (string, string, error) {
		return "", "", errors.New("graph timeout")
	}
	got, err := svc.FindOrCreateConversation(ctx, "page1", "agent1", "cust1", profile)
	if err != nil {
		t.Fatalf("lỗi profile không được chặn tạo hội thoại: %v", err)
	}
	if got.CustomerName != "Unknown" {
		t.Errorf("CustomerName = %q, muốn Unknown khi profile lỗi", got.CustomerName)
	}
	if convs.insertCalls != 1 {
		t.Errorf("insertCalls = %d, muốn 1", convs.insertCalls)
	}
}

func TestMergeMessageBatch_IdempotentTheoMessageId(t *testing.T) {
	svc, convs, _ := newTestReconciler()
	ctx := context.Background()

	conv, _ := svc.FindOrCreateConversation(ctx, "page1", "agent1", "cust1", nil)
	batch := []IncomingMessage{
		{MessageID: "mid.1", SenderID: "cust1", SenderRole: fbmodels.SenderRoleCustomer, Body: "xin chào", SentAt: 1000},
	}

	first, err := svc.MergeMessageBatch(ctx, conv, batch)
	if err != nil {
		t.Fatalf("merge lần 1 lỗi: %v", err)
	}
	if first.Inserted != 1 || first.Skipped != 0 {
		t.Errorf("lần 1: Inserted=%d Skipped=%d, muốn 1/0", first.Inserted, first.Skipped)
	}

	second, err := svc.MergeMessageBatch(ctx, conv, batch)
	if err != nil {
		t.Fatalf("merge lần 2 lỗi: %v", err)
	}
	if second.Inserted != 0 || second.Skipped != 1 {
		t.Errorf("lần 2: Inserted=%d Skipped=%d, muốn 0/1", second.Inserted, second.Skipped)
	}

	// Replay không được cộng thêm unread
	c := convs.find(conv.ConversationId)
	if c.UnreadCount != 1 {
		t.Errorf("UnreadCount = %d sau replay, muốn 1", c.UnreadCount)
	}
}

func TestMergeMessageBatch_TraVeTinDaLuuKemMessageId(t *testing.T) {
	svc, _, _ := newTestReconciler()
	ctx := context.Background()

	conv, _ := svc.FindOrCreateConversation(ctx, "page1", "agent1", "cust1", nil)
	batch := []IncomingMessage{
		{MessageID: "mid.1", SenderID: "cust1", SenderRole: fbmodels.SenderRoleCustomer, Body: "có mid", SentAt: 1000},
		{MessageID: "", SenderID: "cust1", SenderRole: fbmodels.SenderRoleCustomer, Body: "không mid", SentAt: 2000},
	}

	result, err := svc.MergeMessageBatch(ctx, conv, batch)
	if err != nil {
		t.Fatalf("merge lỗi: %v", err)
	}
	if len(result.Messages) != 2 {
		t.Fatalf("result.Messages có %d tin, muốn 2 tin ghi mới", len(result.Messages))
	}
	if result.Messages[0].MessageId != "mid.1" {
		t.Errorf("tin có mid phải giữ nguyên mid: %q", result.Messages[0].MessageId)
	}
	// Tin không mid phải mang định danh sinh cục bộ để client dedup được
	if !strings.HasPrefix(result.Messages[1].MessageId, "mid_local_") {
		t.Errorf("tin không mid phải có messageId cục bộ, nhận được %q", result.Messages[1].MessageId)
	}
	for _, m := range result.Messages {
		if m.ConversationId != conv.ConversationId {
			t.Errorf("tin trả về phải gắn với hội thoại: %+v", m)
		}
	}
}

func TestMergeMessageBatch_SummaryTheoSentAtLonNhat(t *testing.T) {
	svc, convs, _ := newTestReconciler()
	ctx := context.Background()

	conv, _ := svc.FindOrCreateConversation(ctx, "page1", "agent1", "cust1", nil)

	// Batch đến lộn xộn: T+5 trước, T+1 và T+3 sau
	batch := []IncomingMessage{
		{MessageID: "mid.5", SenderID: "cust1", SenderRole: fbmodels.SenderRoleCustomer, Body: "tin mới nhất", SentAt: 5000},
		{MessageID: "mid.1", SenderID: "cust1", SenderRole: fbmodels.SenderRoleCustomer, Body: "tin cũ", SentAt: 1000},
		{MessageID: "mid.3", SenderID: "cust1", SenderRole: fbmodels.SenderRoleCustomer, Body: "tin giữa", SentAt: 3000},
	}
	if _, err := svc.MergeMessageBatch(ctx, conv, batch); err != nil {
		t.Fatalf("merge lỗi: %v", err)
	}

	c := convs.find(conv.ConversationId)
	if c.LastMessageAt != 5000 {
		t.Errorf("LastMessageAt = %d, muốn 5000", c.LastMessageAt)
	}
	if c.LastMessageSummary != "tin mới nhất" {
		t.Errorf("LastMessageSummary = %q, muốn tin có sentAt lớn nhất", c.LastMessageSummary)
	}

	// Batch đến muộn với sentAt cũ hơn không được kéo lùi summary
	late := []IncomingMessage{
		{MessageID: "mid.2", SenderID: "cust1", SenderRole: fbmodels.SenderRoleCustomer, Body: "tin trễ", SentAt: 2000},
	}
	if _, err := svc.MergeMessageBatch(ctx, conv, late); err != nil {
		t.Fatalf("merge batch trễ lỗi: %v", err)
	}
	c = convs.find(conv.ConversationId)
	if c.LastMessageAt != 5000 || c.LastMessageSummary != "tin mới nhất" {
		t.Errorf("batch trễ kéo lùi summary: LastMessageAt=%d Summary=%q", c.LastMessageAt, c.LastMessageSummary)
	}
}

func TestMergeMessageBatch_UnreadChiTinhTinKhach(t *testing.T) {
	svc, convs, _ := newTestReconciler()
	ctx := context.Background()

	conv, _ := svc.FindOrCreateConversation(ctx, "page1", "agent1", "cust1", nil)
	batch := []IncomingMessage{
		{MessageID: "mid.1", SenderID: "cust1", SenderRole: fbmodels.SenderRoleCustomer, Body: "a", SentAt: 1000},
		{MessageID: "mid.2", SenderID: "cust1", SenderRole: fbmodels.SenderRoleCustomer, Body: "b", SentAt: 2000},
		{MessageID: "mid.3", SenderID: "page1", SenderRole: fbmodels.SenderRoleAgent, Body: "trả lời", SentAt: 3000},
		{MessageID: "mid.4", SenderID: "cust1", SenderRole: fbmodels.SenderRoleCustomer, Body: "c", SentAt: 4000},
	}
	result, err := svc.MergeMessageBatch(ctx, conv, batch)
	if err != nil {
		t.Fatalf("merge lỗi: %v", err)
	}
	if result.UnreadAdded != 3 {
		t.Errorf("UnreadAdded = %d, muốn 3 (tin agent không tính)", result.UnreadAdded)
	}
	c := convs.find(conv.ConversationId)
	if c.UnreadCount != 3 {
		t.Errorf("UnreadCount = %d, muốn 3", c.UnreadCount)
	}
}

func TestMergeMessageBatch_TinLoiKhongChanTinKhac(t *testing.T) {
	svc, _, msgs := newTestReconciler()
	ctx := context.Background()

	conv, _ := svc.FindOrCreateConversation(ctx, "page1", "agent1", "cust1", nil)
	msgs.failMids["mid.bad"] = true

	batch := []IncomingMessage{
		{MessageID: "mid.ok1", SenderID: "cust1", SenderRole: fbmodels.SenderRoleCustomer, Body: "a", SentAt: 1000},
		{MessageID: "mid.bad", SenderID: "cust1", SenderRole: fbmodels.SenderRoleCustomer, Body: "b", SentAt: 2000},
		{MessageID: "mid.ok2", SenderID: "cust1", SenderRole: fbmodels.SenderRoleCustomer, Body: "c", SentAt: 3000},
	}
	result, err := svc.MergeMessageBatch(ctx, conv, batch)
	if err != nil {
		t.Fatalf("merge không được trả lỗi khi chỉ một tin fail: %v", err)
	}
	if result.Inserted != 2 || result.Failed != 1 {
		t.Errorf("Inserted=%d Failed=%d, muốn 2/1", result.Inserted, result.Failed)
	}
}

func TestMarkRead_DemLaiThayViGanKhong(t *testing.T) {
	svc, convs, msgs := newTestReconciler()
	ctx := context.Background()

	conv, _ := svc.FindOrCreateConversation(ctx, "page1", "agent1", "cust1", nil)
	batch := []IncomingMessage{
		{MessageID: "mid.1", SenderID: "cust1", SenderRole: fbmodels.SenderRoleCustomer, Body: "a", SentAt: 1000},
		{MessageID: "mid.2", SenderID: "cust1", SenderRole: fbmodels.SenderRoleCustomer, Body: "b", SentAt: 2000},
	}
	if _, err := svc.MergeMessageBatch(ctx, conv, batch); err != nil {
		t.Fatalf("merge lỗi: %v", err)
	}

	marked, err := svc.MarkRead(ctx, conv.ConversationId, "agent1")
	if err != nil {
		t.Fatalf("MarkRead lỗi: %v", err)
	}
	if marked != 2 {
		t.Errorf("marked = %d, muốn 2", marked)
	}
	c := convs.find(conv.ConversationId)
	if c.UnreadCount != 0 {
		t.Errorf("UnreadCount = %d sau MarkRead, muốn 0", c.UnreadCount)
	}
	for _, m := range msgs.msgs {
		if m.SenderRole == fbmodels.SenderRoleCustomer && !m.IsRead {
			t.Errorf("tin %s vẫn chưa đọc sau MarkRead", m.MessageId)
		}
		if m.IsRead && m.ReadBy != "agent1" {
			t.Errorf("ReadBy = %q, muốn agent1", m.ReadBy)
		}
	}
}

func TestRecordOutboundSend_KhongTangUnread(t *testing.T) {
	svc, convs, _ := newTestReconciler()
	ctx := context.Background()

	conv, _ := svc.FindOrCreateConversation(ctx, "page1", "agent1", "cust1", nil)
	msg, err := svc.RecordOutboundSend(ctx, conv, IncomingMessage{
		MessageID: "mid.out",
		SenderID:  "page1",
		Body:      "chúng tôi sẽ hỗ trợ ngay",
		SentAt:    9000,
	})
	if err != nil {
		t.Fatalf("RecordOutboundSend lỗi: %v", err)
	}
	if msg.SenderRole != fbmodels.SenderRoleAgent {
		t.Errorf("SenderRole = %q, tin outbound phải là agent", msg.SenderRole)
	}
	c := convs.find(conv.ConversationId)
	if c.UnreadCount != 0 {
		t.Errorf("UnreadCount = %d, tin outbound không được tăng unread", c.UnreadCount)
	}
	if c.LastMessageAt != 9000 {
		t.Errorf("LastMessageAt = %d, muốn 9000", c.LastMessageAt)
	}
}

func TestTrackRemoteConversation_ChiGhiKhiThayDoi(t *testing.T) {
	svc, convs, _ := newTestReconciler()
	ctx := context.Background()

	conv, _ := svc.FindOrCreateConversation(ctx, "page1", "agent1", "cust1", nil)
	if err := svc.TrackRemoteConversation(ctx, conv, "t_remote_1"); err != nil {
		t.Fatalf("TrackRemoteConversation lỗi: %v", err)
	}
	if conv.RemoteConversationId != "t_remote_1" {
		t.Errorf("RemoteConversationId = %q, muốn t_remote_1", conv.RemoteConversationId)
	}
	stored := convs.find(conv.ConversationId)
	if stored.RemoteConversationId != "t_remote_1" {
		t.Error("remote id chưa được ghi vào store")
	}

	// remoteID rỗng hoặc trùng là no-op
	if err := svc.TrackRemoteConversation(ctx, conv, ""); err != nil {
		t.Fatalf("remote id rỗng phải là no-op: %v", err)
	}
	if err := svc.TrackRemoteConversation(ctx, conv, "t_remote_1"); err != nil {
		t.Fatalf("remote id trùng phải là no-op: %v", err)
	}
}

func TestClassifyMessageKind(t *testing.T) {
	cases := []struct {
		name string
		in   IncomingMessage
		want string
	}{
		{"ảnh", IncomingMessage{Attachments: []fbmodels.MessageAttachment{{Type: "image"}}}, fbmodels.MessageKindImage},
		{"video gộp thành file", IncomingMessage{Attachments: []fbmodels.MessageAttachment{{Type: "video"}}}, fbmodels.MessageKindFile},
		{"audio gộp thành file", IncomingMessage{Attachments: []fbmodels.MessageAttachment{{Type: "audio"}}}, fbmodels.MessageKindFile},
		{"file", IncomingMessage{Attachments: []fbmodels.MessageAttachment{{Type: "file"}}}, fbmodels.MessageKindFile},
		{"sticker attachment", IncomingMessage{Attachments: []fbmodels.MessageAttachment{{Type: "sticker"}}}, fbmodels.MessageKindSticker},
		{"đính kèm đầu tiên quyết định", IncomingMessage{Body: "kèm chữ", Attachments: []fbmodels.MessageAttachment{{Type: "image"}, {Type: "file"}}}, fbmodels.MessageKindImage},
		{"sticker url", IncomingMessage{Sticker: "https://example.com/sticker.png"}, fbmodels.MessageKindSticker},
		{"text", IncomingMessage{Body: "xin chào"}, fbmodels.MessageKindText},
		{"rỗng", IncomingMessage{}, fbmodels.MessageKindOther},
		{"loại lạ", IncomingMessage{Attachments: []fbmodels.MessageAttachment{{Type: "template"}}}, fbmodels.MessageKindOther},
	}
	for _, tc := range cases {
		if got := classifyMessageKind(tc.in); got != tc.want {
			t.Errorf("%s: classifyMessageKind = %q, muốn %q", tc.name, got, tc.want)
		}
	}
}

func TestSummarizeMessage(t *testing.T) {
	if got := summarizeMessage("xin chào", fbmodels.MessageKindText); got != "xin chào" {
		t.Errorf("summary tin text = %q", got)
	}
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	if got := summarizeMessage(string(long), fbmodels.MessageKindText); len(got) != 120 {
		t.Errorf("summary dài %d ký tự, muốn cắt còn 120", len(got))
	}
	// Tiếng Việt nhiều byte: cắt theo rune, không để lại chuỗi UTF-8 hỏng
	longViet := strings.Repeat("chào bạn nhé ", 20)
	gotViet := summarizeMessage(longViet, fbmodels.MessageKindText)
	if utf8.RuneCountInString(gotViet) != 120 {
		t.Errorf("summary tiếng Việt dài %d ký tự, muốn 120", utf8.RuneCountInString(gotViet))
	}
	if !utf8.ValidString(gotViet) {
		t.Errorf("summary cắt giữa ký tự nhiều byte: %q", gotViet)
	}
	if got := summarizeMessage("", fbmodels.MessageKindImage); got != "[image]" {
		t.Errorf("summary ảnh = %q, muốn [image]", got)
	}
	if got := summarizeMessage("", fbmodels.MessageKindSticker); got != "[sticker]" {
		t.Errorf("summary sticker = %q, muốn [sticker]", got)
	}
	if got := summarizeMessage("", fbmodels.MessageKindOther); got != "[attachment]" {
		t.Errorf("summary loại khác = %q, muốn [attachment]", got)
	}
}
