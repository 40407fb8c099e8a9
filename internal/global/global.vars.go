package global

import (
	"fb_helpdesk/config"
	"fb_helpdesk/internal/registry"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
)

// CollectionName chứa tên các collection trong MongoDB
type CollectionName struct {
	Users           string // Tên collection cho người dùng
	FbPages         string // Tên collection cho kết nối trang Facebook
	FbConversations string // Tên collection cho hội thoại
	FbMessages      string // Tên collection cho tin nhắn
	WebhookLogs     string // Tên collection cho log webhook nhận từ Facebook
}

// Các biến toàn cục
var Validate *validator.Validate              // Biến để xác thực dữ liệu
var MongoDB_Session *mongo.Client             // Phiên kết nối tới MongoDB
var ServerConfig *config.Configuration        // Cấu hình của server
var MongoDB_ColNames CollectionName           // Tên các collection

// Các Registry
var RegistryCollections = registry.NewRegistry[*mongo.Collection]() // Registry chứa các collections
var RegistryDatabase = registry.NewRegistry[*mongo.Database]()      // Registry chứa các databases
