package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Configuration chứa thông tin tĩnh cần thiết để chạy ứng dụng.
// Các giá trị được đọc từ file env theo GO_ENV, thiếu giá trị required sẽ dừng khởi động.
type Configuration struct {
	Address       string `env:"ADDRESS" envDefault:":8080"`      // Địa chỉ server
	JwtSecret     string `env:"JWT_SECRET,required"`             // Bí mật ký JWT
	JwtExpireHour int    `env:"JWT_EXPIRE_HOUR" envDefault:"720"` // Thời hạn token (giờ)

	MongoDB_ConnectionURI string `env:"MONGODB_CONNECTION_URI,required"` // URL kết nối cơ sở dữ liệu
	MongoDB_DBName        string `env:"MONGODB_DBNAME,required"`         // Tên cơ sở dữ liệu

	// Cấu hình gọi Facebook Graph API
	Facebook_GraphURL    string `env:"FACEBOOK_GRAPH_URL" envDefault:"https://graph.facebook.com/v23.0"` // Base URL Graph API
	Facebook_VerifyToken string `env:"FACEBOOK_VERIFY_TOKEN,required"`                                   // Token xác minh webhook
	Facebook_AppSecret   string `env:"FACEBOOK_APP_SECRET"`                                              // App secret (optional, dùng verify chữ ký)

	// Cửa sổ phiên hội thoại: tin nhắn đến sau tin cuối quá số giờ này sẽ mở hội thoại mới
	SessionWindowHours int `env:"SESSION_WINDOW_HOURS" envDefault:"24"`

	// Số lượng mặc định khi kéo dữ liệu từ Graph API
	SyncConversationLimit int `env:"SYNC_CONVERSATION_LIMIT" envDefault:"25"`
	SyncMessageLimit      int `env:"SYNC_MESSAGE_LIMIT" envDefault:"50"`

	CORS_Origins          string `env:"CORS_ORIGINS" envDefault:"*"`               // Các origins được phép (phân cách bởi dấu phẩy, * = tất cả)
	CORS_AllowCredentials bool   `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"` // Cho phép gửi credentials

	RateLimit_Max     int  `env:"RATE_LIMIT_MAX" envDefault:"100"`      // Số request tối đa trong window
	RateLimit_Window  int  `env:"RATE_LIMIT_WINDOW" envDefault:"60"`    // Thời gian window (giây)
	RateLimit_Enabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"` // Bật/tắt rate limiting

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"` // Mức log: debug, info, warn, error
	LogDir   string `env:"LOG_DIR" envDefault:"logs"`   // Thư mục chứa file log
}

// getEnvPath trả về đường dẫn đến file env dựa trên môi trường
func getEnvPath() string {
	// Mặc định sử dụng môi trường development
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	currentDir, err := os.Getwd()
	if err != nil {
		// Sử dụng fmt.Printf vì logger có thể chưa được init ở đây
		fmt.Printf("Không thể lấy được thư mục hiện tại: %v\n", err)
		return ""
	}

	// Tìm thư mục config/env, đi ngược lên cây thư mục để chạy được từ root hoặc cmd/server
	for {
		envDir := filepath.Join(currentDir, "config", "env")
		if _, err := os.Stat(envDir); err == nil {
			return filepath.Join(envDir, fmt.Sprintf("%s.env", env))
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return ""
		}
		currentDir = parentDir
	}
}

// NewConfig sẽ đọc dữ liệu cấu hình từ file env theo GO_ENV.
// Nếu không tìm thấy file env, vẫn tiếp tục với các biến môi trường có sẵn của process.
func NewConfig() *Configuration {
	envPath := getEnvPath()
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			// Sử dụng fmt.Printf vì logger có thể chưa được init ở đây
			fmt.Printf("Không thể load file env tại %s: %v\n", envPath, err)
		}
	}

	cfg := Configuration{}
	if err := env.Parse(&cfg); err != nil {
		fmt.Printf("Lỗi khi parse config: %+v\n", err)
		return nil
	}

	return &cfg
}
