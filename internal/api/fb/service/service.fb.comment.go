package fbsvc

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	fbdto "fb_helpdesk/internal/api/fb/dto"
	fbmodels "fb_helpdesk/internal/api/fb/models"
	"fb_helpdesk/internal/common"
	"fb_helpdesk/internal/fbclient"
	"fb_helpdesk/internal/global"
	"fb_helpdesk/internal/logger"
	"fb_helpdesk/internal/realtime"
)

// PostContext là thông tin bài viết đính kèm từng bình luận để hiển thị nhóm
type PostContext struct {
	PostId    string `json:"postId"`
	Snippet   string `json:"snippet"`
	CreatedAt int64  `json:"createdAt"`
}

// CommentEntry là một bình luận đã flatten, replies mang parentCommentId
type CommentEntry struct {
	CommentId       string      `json:"commentId"`
	Message         string      `json:"message"`
	AuthorId        string      `json:"authorId"`
	AuthorName      string      `json:"authorName"`
	CreatedAt       int64       `json:"createdAt"`
	IsHidden        bool        `json:"isHidden"`
	LikeCount       int         `json:"likeCount"`
	IsReply         bool        `json:"isReply"`
	ParentCommentId string      `json:"parentCommentId"`
	PostContext     PostContext `json:"postContext"`
}

// UserCommentGroup gom mọi bình luận của một người trên toàn bộ bài viết của page
type UserCommentGroup struct {
	AuthorId   string         `json:"authorId"`
	AuthorName string         `json:"authorName"`
	LatestAt   int64          `json:"latestAt"`
	Comments   []CommentEntry `json:"comments"` // mới nhất trước
}

// ModerateResult là kết quả của một thao tác trong batch moderation
type ModerateResult struct {
	Action    string `json:"action"`
	CommentId string `json:"commentId"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// CommentGraphAPI là phần Graph API mà comment service dùng,
// tách interface để test được nhánh lỗi từng bài viết mà không cần HTTP
type CommentGraphAPI interface {
	ListPosts(ctx context.Context, pageID, accessToken string, limit int) ([]fbclient.RemotePost, error)
	ListComments(ctx context.Context, postID, accessToken string) ([]fbclient.RemoteComment, error)
	ReplyToComment(ctx context.Context, accessToken, commentID, message string) (string, error)
	SetCommentHidden(ctx context.Context, accessToken, commentID string, hidden bool) error
	DeleteComment(ctx context.Context, accessToken, commentID string) error
	SetCommentLike(ctx context.Context, accessToken, commentID string, like bool) error
	SendPrivateReply(ctx context.Context, accessToken, commentID, text string) (string, error)
	GetUserProfile(ctx context.Context, accessToken, psid string) (*fbclient.RemoteUserProfile, error)
}

// PageConnectionFinder tra kết nối page đang hoạt động của một agent
type PageConnectionFinder interface {
	FindConnection(ctx context.Context, userID, pageID string) (*fbmodels.FbPage, error)
}

// FbCommentService gom và kiểm duyệt bình luận của page
type FbCommentService struct {
	reconciler *FbConversationService
	pages      PageConnectionFinder
	graph      CommentGraphAPI
	publisher  realtime.Publisher
	log        *logrus.Logger
}

// NewFbCommentService tạo mới FbCommentService
func NewFbCommentService(publisher realtime.Publisher) (*FbCommentService, error) {
	reconciler, err := NewFbConversationService()
	if err != nil {
		return nil, err
	}
	pages, err := NewFbPageService()
	if err != nil {
		return nil, err
	}
	return NewFbCommentServiceWith(reconciler, pages, fbclient.NewClient(global.ServerConfig.Facebook_GraphURL), publisher), nil
}

// NewFbCommentServiceWith tạo comment service với dependency tùy ý, dùng cho test
func NewFbCommentServiceWith(reconciler *FbConversationService, pages PageConnectionFinder, graph CommentGraphAPI, publisher realtime.Publisher) *FbCommentService {
	return &FbCommentService{
		reconciler: reconciler,
		pages:      pages,
		graph:      graph,
		publisher:  publisher,
		log:        logger.GetAppLogger(),
	}
}

// AggregateComments gom bình luận của postLimit bài viết gần nhất theo người bình luận.
// Một bài viết fetch lỗi được log và bỏ qua, các bài còn lại vẫn vào kết quả.
// Thứ tự: trong nhóm mới nhất trước, giữa các nhóm theo bình luận mới nhất của nhóm.
func (s *FbCommentService) AggregateComments(ctx context.Context, userID, pageID string, postLimit int) ([]UserCommentGroup, error) {
	page, err := s.pages.FindConnection(ctx, userID, pageID)
	if err != nil {
		return nil, err
	}
	if postLimit <= 0 {
		postLimit = global.ServerConfig.SyncConversationLimit
	}

	posts, err := s.graph.ListPosts(ctx, pageID, page.AccessToken, postLimit)
	if err != nil {
		return nil, err
	}

	var entries []CommentEntry
	for _, post := range posts {
		comments, err := s.graph.ListComments(ctx, post.ID, page.AccessToken)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"page_id": pageID,
				"post_id": post.ID,
				"error":   err.Error(),
			}).Warn("[COMMENT] Lỗi lấy bình luận của bài viết, bỏ qua bài này")
			continue
		}

		postCtx := PostContext{
			PostId:    post.ID,
			Snippet:   snippet(post.Message, 80),
			CreatedAt: fbclient.ParseGraphTime(post.CreatedTime),
		}
		entries = append(entries, flattenComments(comments, postCtx)...)
	}

	return groupCommentsByAuthor(entries), nil
}

// flattenComments trải phẳng bình luận gốc và replies lồng một cấp
func flattenComments(comments []fbclient.RemoteComment, postCtx PostContext) []CommentEntry {
	var entries []CommentEntry
	for _, c := range comments {
		entries = append(entries, CommentEntry{
			CommentId:   c.ID,
			Message:     c.Message,
			AuthorId:    c.From.ID,
			AuthorName:  c.From.Name,
			CreatedAt:   fbclient.ParseGraphTime(c.CreatedTime),
			IsHidden:    c.IsHidden,
			LikeCount:   c.LikeCount,
			PostContext: postCtx,
		})
		if c.Comments == nil {
			continue
		}
		for _, reply := range c.Comments.Data {
			entries = append(entries, CommentEntry{
				CommentId:       reply.ID,
				Message:         reply.Message,
				AuthorId:        reply.From.ID,
				AuthorName:      reply.From.Name,
				CreatedAt:       fbclient.ParseGraphTime(reply.CreatedTime),
				IsHidden:        reply.IsHidden,
				LikeCount:       reply.LikeCount,
				IsReply:         true,
				ParentCommentId: c.ID,
				PostContext:     postCtx,
			})
		}
	}
	return entries
}

// groupCommentsByAuthor gom entries theo người bình luận và sắp xếp mới nhất trước
func groupCommentsByAuthor(entries []CommentEntry) []UserCommentGroup {
	byAuthor := make(map[string]*UserCommentGroup)
	for _, e := range entries {
		group, ok := byAuthor[e.AuthorId]
		if !ok {
			group = &UserCommentGroup{AuthorId: e.AuthorId, AuthorName: e.AuthorName}
			byAuthor[e.AuthorId] = group
		}
		group.Comments = append(group.Comments, e)
		if e.CreatedAt > group.LatestAt {
			group.LatestAt = e.CreatedAt
		}
	}

	groups := make([]UserCommentGroup, 0, len(byAuthor))
	for _, group := range byAuthor {
		sort.Slice(group.Comments, func(i, j int) bool {
			return group.Comments[i].CreatedAt > group.Comments[j].CreatedAt
		})
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].LatestAt > groups[j].LatestAt
	})
	return groups
}

// ReplyToComment trả lời công khai một bình luận, trả về id bình luận mới
func (s *FbCommentService) ReplyToComment(ctx context.Context, userID, pageID, commentID, message string) (string, error) {
	page, err := s.pages.FindConnection(ctx, userID, pageID)
	if err != nil {
		return "", err
	}
	return s.graph.ReplyToComment(ctx, page.AccessToken, commentID, message)
}

// SetCommentHidden ẩn hoặc hiện một bình luận
func (s *FbCommentService) SetCommentHidden(ctx context.Context, userID, pageID, commentID string, hidden bool) error {
	page, err := s.pages.FindConnection(ctx, userID, pageID)
	if err != nil {
		return err
	}
	return s.graph.SetCommentHidden(ctx, page.AccessToken, commentID, hidden)
}

// DeleteComment xóa vĩnh viễn một bình luận
func (s *FbCommentService) DeleteComment(ctx context.Context, userID, pageID, commentID string) error {
	page, err := s.pages.FindConnection(ctx, userID, pageID)
	if err != nil {
		return err
	}
	return s.graph.DeleteComment(ctx, page.AccessToken, commentID)
}

// SetCommentLike like hoặc bỏ like một bình luận bằng danh tính page
func (s *FbCommentService) SetCommentLike(ctx context.Context, userID, pageID, commentID string, like bool) error {
	page, err := s.pages.FindConnection(ctx, userID, pageID)
	if err != nil {
		return err
	}
	return s.graph.SetCommentLike(ctx, page.AccessToken, commentID, like)
}

// SendPrivateMessage gửi tin riêng cho người bình luận: Graph gửi trước,
// thành công mới mở/tái dùng hội thoại và ghi tin, rồi fan-out đúng một lần.
func (s *FbCommentService) SendPrivateMessage(ctx context.Context, userID string, input *fbdto.PrivateMessageInput) (*fbmodels.FbMessage, error) {
	page, err := s.pages.FindConnection(ctx, userID, input.PageId)
	if err != nil {
		return nil, err
	}

	mid, err := s.graph.SendPrivateReply(ctx, page.AccessToken, input.CommentId, input.Text)
	if err != nil {
		return nil, err
	}

	profile := func(ctx context.Context, customerID string) (string, string, error) {
		if input.CustomerName != "" {
			return input.CustomerName, "", nil
		}
		p, perr := s.graph.GetUserProfile(ctx, page.AccessToken, customerID)
		if perr != nil {
			return "", "", perr
		}
		return p.Name, p.ProfilePic, nil
	}

	conv, err := s.reconciler.FindOrCreateConversation(ctx, input.PageId, userID, input.CustomerId, profile)
	if err != nil {
		return nil, err
	}

	msg, err := s.reconciler.RecordOutboundSend(ctx, conv, IncomingMessage{
		MessageID: mid,
		SenderID:  input.PageId,
		Body:      input.Text,
		SentAt:    time.Now().UnixMilli(),
	})
	if err != nil {
		return msg, err
	}

	if s.publisher != nil {
		fresh, ferr := s.reconciler.FindByConversationId(ctx, conv.ConversationId)
		if ferr != nil || fresh == nil {
			fresh = conv
		}
		s.publisher.Publish(realtime.UserRoom(fresh.OwnerUserId), realtime.EventNewMessage, NewMessagePayload{
			ConversationId: fresh.ConversationId,
			Message:        msg,
			Conversation:   fresh,
		})
		s.publisher.Publish(realtime.UserRoom(fresh.OwnerUserId), realtime.EventConversationUpdated, fresh)
	}
	return msg, nil
}

// BatchModerate chạy tuần tự các thao tác moderation, một thao tác lỗi
// không dừng các thao tác sau, kết quả trả về theo từng thao tác.
func (s *FbCommentService) BatchModerate(ctx context.Context, userID string, input *fbdto.BatchModerateInput) []ModerateResult {
	results := make([]ModerateResult, 0, len(input.Actions))
	for _, action := range input.Actions {
		var err error
		switch action.Action {
		case "reply":
			_, err = s.ReplyToComment(ctx, userID, input.PageId, action.CommentId, action.Message)
		case "hide":
			err = s.SetCommentHidden(ctx, userID, input.PageId, action.CommentId, true)
		case "unhide":
			err = s.SetCommentHidden(ctx, userID, input.PageId, action.CommentId, false)
		case "delete":
			err = s.DeleteComment(ctx, userID, input.PageId, action.CommentId)
		case "like":
			err = s.SetCommentLike(ctx, userID, input.PageId, action.CommentId, true)
		case "unlike":
			err = s.SetCommentLike(ctx, userID, input.PageId, action.CommentId, false)
		default:
			err = common.NewError(common.ErrCodeValidationInput, "Thao tác không được hỗ trợ: "+action.Action, common.StatusBadRequest, nil)
		}

		result := ModerateResult{Action: action.Action, CommentId: action.CommentId, Success: err == nil}
		if err != nil {
			result.Error = err.Error()
			s.log.WithFields(logrus.Fields{
				"action":     action.Action,
				"comment_id": action.CommentId,
				"error":      err.Error(),
			}).Warn("[COMMENT] Thao tác moderation lỗi, tiếp tục các thao tác sau")
		}
		results = append(results, result)
	}
	return results
}

// NotifyCommentChange fan-out gợi ý re-fetch khi webhook báo bình luận thay đổi.
// Payload chỉ là tóm tắt, client tự pull lại aggregate.
func (s *FbCommentService) NotifyCommentChange(pageID string, summary map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(realtime.PageRoom(pageID), realtime.EventNewComment, summary)
}

// snippet cắt nội dung bài viết cho postContext, cắt theo rune để không hỏng UTF-8
func snippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
