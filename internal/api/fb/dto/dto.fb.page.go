package dto

// PageConnectInput là dữ liệu đầu vào để kết nối một Facebook Page.
// Metadata của page (tên, avatar, category) được lấy từ Graph API khi kết nối.
type PageConnectInput struct {
	PageId      string `json:"pageId" validate:"required"`
	AccessToken string `json:"accessToken" validate:"required"`
}

// PageDisconnectInput là dữ liệu đầu vào để ngắt kết nối page
type PageDisconnectInput struct {
	PageId string `json:"pageId" validate:"required"`
}

// PageCreateInput dùng cho CRUD insert trực tiếp
type PageCreateInput struct {
	PageId      string `json:"pageId" validate:"required"`
	PageName    string `json:"pageName" validate:"omitempty" maxLength:"200"`
	AccessToken string `json:"accessToken" validate:"required"`
	Avatar      string `json:"avatar" validate:"omitempty"`
	Category    string `json:"category" validate:"omitempty"`
}

// PageUpdateInput dùng cho CRUD update, chỉ các trường cho phép sửa
type PageUpdateInput struct {
	PageName    string `json:"pageName" validate:"omitempty" maxLength:"200"`
	AccessToken string `json:"accessToken" validate:"omitempty"`
	Avatar      string `json:"avatar" validate:"omitempty"`
	Category    string `json:"category" validate:"omitempty"`
}
