package utility

import (
	"strings"

	"github.com/google/uuid"
)

// NewLocalConversationID sinh định danh cục bộ cho hội thoại.
// Hội thoại tạo từ webhook chưa có id phía Facebook nên cần id cục bộ ổn định.
func NewLocalConversationID() string {
	return "conv_" + newCompactUUID()
}

// NewLocalMessageID sinh định danh cục bộ cho tin nhắn thiếu mid từ Facebook
func NewLocalMessageID() string {
	return "mid_local_" + newCompactUUID()
}

func newCompactUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
