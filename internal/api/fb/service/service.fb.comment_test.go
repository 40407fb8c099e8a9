// Package fbsvc - Test gom bình luận: flatten replies và nhóm theo người bình luận.
package fbsvc

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	fbmodels "fb_helpdesk/internal/api/fb/models"
	"fb_helpdesk/internal/fbclient"
)

// fakeCommentGraph trả dữ liệu cấu hình sẵn, lỗi theo postId
type fakeCommentGraph struct {
	posts          []fbclient.RemotePost
	commentsByPost map[string][]fbclient.RemoteComment
	failPosts      map[string]bool
}

func (f *fakeCommentGraph) ListPosts(ctx context.Context, pageID, accessToken string, limit int) ([]fbclient.RemotePost, error) {
	return f.posts, nil
}

func (f *fakeCommentGraph) ListComments(ctx context.Context, postID, accessToken string) ([]fbclient.RemoteComment, error) {
	if f.failPosts[postID] {
		return nil, errors.New("graph timeout")
	}
	return f.commentsByPost[postID], nil
}

func (f *fakeCommentGraph) ReplyToComment(ctx context.Context, accessToken, commentID, message string) (string, error) {
	return "", nil
}

func (f *fakeCommentGraph) SetCommentHidden(ctx context.Context, accessToken, commentID string, hidden bool) error {
	return nil
}

func (f *fakeCommentGraph) DeleteComment(ctx context.Context, accessToken, commentID string) error {
	return nil
}

func (f *fakeCommentGraph) SetCommentLike(ctx context.Context, accessToken, commentID string, like bool) error {
	return nil
}

func (f *fakeCommentGraph) SendPrivateReply(ctx context.Context, accessToken, commentID, text string) (string, error) {
	return "mid.private", nil
}

func (f *fakeCommentGraph) GetUserProfile(ctx context.Context, accessToken, psid string) (*fbclient.RemoteUserProfile, error) {
	return &fbclient.RemoteUserProfile{Name: "Khách"}, nil
}

// fakePageFinder coi mọi page là đã kết nối
type fakePageFinder struct{}

func (f *fakePageFinder) FindConnection(ctx context.Context, userID, pageID string) (*fbmodels.FbPage, error) {
	return &fbmodels.FbPage{PageId: pageID, UserId: userID, AccessToken: "tok", IsConnected: true}, nil
}

func TestAggregateComments_MotBaiVietLoiKhongChanBaiKhac(t *testing.T) {
	reconciler, _, _ := newTestReconciler()
	graph := &fakeCommentGraph{
		posts: []fbclient.RemotePost{
			{ID: "p1", Message: "bài một", CreatedTime: "2026-08-01T08:00:00+0700"},
			{ID: "p2", Message: "bài hai", CreatedTime: "2026-08-02T08:00:00+0700"},
			{ID: "p3", Message: "bài ba", CreatedTime: "2026-08-03T08:00:00+0700"},
		},
		commentsByPost: map[string][]fbclient.RemoteComment{
			"p1": {{ID: "c1", Message: "hỏi giá", From: fbclient.RemoteCommentAuthor{ID: "u1", Name: "An"}, CreatedTime: "2026-08-01T09:00:00+0700"}},
			"p3": {{ID: "c3", Message: "còn hàng không", From: fbclient.RemoteCommentAuthor{ID: "u2", Name: "Bình"}, CreatedTime: "2026-08-03T09:00:00+0700"}},
		},
		failPosts: map[string]bool{"p2": true},
	}
	svc := NewFbCommentServiceWith(reconciler, &fakePageFinder{}, graph, nil)

	groups, err := svc.AggregateComments(context.Background(), "agent1", "page1", 3)
	if err != nil {
		t.Fatalf("một bài viết lỗi không được làm cả aggregate lỗi: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("nhận được %d nhóm, muốn 2 (bài p2 lỗi bị bỏ qua)", len(groups))
	}
	// Bình có bình luận mới nhất nên nhóm đứng trước
	if groups[0].AuthorId != "u2" || groups[1].AuthorId != "u1" {
		t.Errorf("thứ tự nhóm sai: %s, %s", groups[0].AuthorId, groups[1].AuthorId)
	}
	for _, g := range groups {
		for _, c := range g.Comments {
			if c.PostContext.PostId == "p2" {
				t.Errorf("bình luận của bài lỗi không được vào kết quả: %+v", c)
			}
		}
	}
}

func TestFlattenComments_RepliesMangParentId(t *testing.T) {
	postCtx := PostContext{PostId: "post1", Snippet: "bài viết"}
	comments := []fbclient.RemoteComment{
		{
			ID:      "c1",
			Message: "bình luận gốc",
			From:    fbclient.RemoteCommentAuthor{ID: "u1", Name: "An"},
			Comments: &fbclient.RemoteCommentReplies{
				Data: []fbclient.RemoteComment{
					{ID: "c1r1", Message: "trả lời", From: fbclient.RemoteCommentAuthor{ID: "u2", Name: "Bình"}},
				},
			},
		},
		{ID: "c2", Message: "bình luận khác", From: fbclient.RemoteCommentAuthor{ID: "u1", Name: "An"}},
	}

	entries := flattenComments(comments, postCtx)
	if len(entries) != 3 {
		t.Fatalf("flatten trả về %d entries, muốn 3", len(entries))
	}

	var reply *CommentEntry
	for i := range entries {
		if entries[i].CommentId == "c1r1" {
			reply = &entries[i]
		}
		if entries[i].PostContext.PostId != "post1" {
			t.Errorf("entry %s thiếu postContext", entries[i].CommentId)
		}
	}
	if reply == nil {
		t.Fatal("reply c1r1 không có trong kết quả flatten")
	}
	if !reply.IsReply || reply.ParentCommentId != "c1" {
		t.Errorf("reply phải có IsReply=true và ParentCommentId=c1, nhận được %+v", reply)
	}
}

func TestGroupCommentsByAuthor_SapXepMoiNhatTruoc(t *testing.T) {
	entries := []CommentEntry{
		{CommentId: "c1", AuthorId: "u1", AuthorName: "An", CreatedAt: 1000},
		{CommentId: "c2", AuthorId: "u2", AuthorName: "Bình", CreatedAt: 5000},
		{CommentId: "c3", AuthorId: "u1", AuthorName: "An", CreatedAt: 3000},
		{CommentId: "c4", AuthorId: "u2", AuthorName: "Bình", CreatedAt: 2000},
	}

	groups := groupCommentsByAuthor(entries)
	if len(groups) != 2 {
		t.Fatalf("nhận được %d nhóm, muốn 2", len(groups))
	}

	// Nhóm của Bình có bình luận mới nhất (5000) nên đứng trước
	if groups[0].AuthorId != "u2" {
		t.Errorf("nhóm đầu là %s, muốn u2 (có bình luận mới nhất)", groups[0].AuthorId)
	}
	if groups[0].LatestAt != 5000 {
		t.Errorf("LatestAt nhóm đầu = %d, muốn 5000", groups[0].LatestAt)
	}

	// Trong nhóm: mới nhất trước
	an := groups[1]
	if an.Comments[0].CommentId != "c3" || an.Comments[1].CommentId != "c1" {
		t.Errorf("nhóm của An sai thứ tự: %s, %s", an.Comments[0].CommentId, an.Comments[1].CommentId)
	}
}

func TestGroupCommentsByAuthor_Rong(t *testing.T) {
	groups := groupCommentsByAuthor(nil)
	if len(groups) != 0 {
		t.Errorf("entries rỗng phải trả về 0 nhóm, nhận được %d", len(groups))
	}
}

func TestSnippet(t *testing.T) {
	if got := snippet("ngắn", 80); got != "ngắn" {
		t.Errorf("snippet = %q", got)
	}
	long := "một bài viết rất dài cần được cắt ngắn lại để hiển thị trong post context của bình luận"
	got := snippet(long, 20)
	if utf8.RuneCountInString(got) != 20 {
		t.Errorf("snippet dài %d ký tự, muốn 20", utf8.RuneCountInString(got))
	}
	// Cắt tiếng Việt không được để lại đuôi UTF-8 hỏng
	if !utf8.ValidString(got) {
		t.Errorf("snippet cắt giữa ký tự nhiều byte: %q", got)
	}
}
