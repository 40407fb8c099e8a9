package authhdl

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"

	authdto "fb_helpdesk/internal/api/auth/dto"
	models "fb_helpdesk/internal/api/auth/models"
	authsvc "fb_helpdesk/internal/api/auth/service"
	basehdl "fb_helpdesk/internal/api/base/handler"
	basesvc "fb_helpdesk/internal/api/base/service"
	"fb_helpdesk/internal/common"
	"fb_helpdesk/internal/logger"
)

// UserHandler xử lý các request xác thực và quản lý người dùng
type UserHandler struct {
	*basehdl.BaseHandler[models.User, authdto.UserCreateInput, authdto.UserChangeInfoInput]
	userService *authsvc.UserService
}

// NewUserHandler tạo instance mới của UserHandler
func NewUserHandler() (*UserHandler, error) {
	userService, err := authsvc.NewUserService()
	if err != nil {
		return nil, fmt.Errorf("failed to create user service: %v", err)
	}
	baseHandler := basehdl.NewBaseHandler[models.User, authdto.UserCreateInput, authdto.UserChangeInfoInput](userService)
	return &UserHandler{
		BaseHandler: baseHandler,
		userService: userService,
	}, nil
}

// HandleRegister xử lý đăng ký người dùng mới
func (h *UserHandler) HandleRegister(c fiber.Ctx) error {
	var input authdto.UserRegisterInput
	if err := h.ParseRequestBody(c, &input); err != nil {
		h.HandleResponse(c, nil, err)
		return nil
	}
	if err := h.ValidateInput(&input); err != nil {
		h.HandleResponse(c, nil, err)
		return nil
	}

	user, err := h.userService.Register(c.Context(), &input)
	if err == nil {
		logger.LogAuth("register", c, map[string]interface{}{"email": input.Email})
	}
	h.HandleResponse(c, user, err)
	return nil
}

// HandleLogin xử lý đăng nhập bằng email + mật khẩu
func (h *UserHandler) HandleLogin(c fiber.Ctx) error {
	var input authdto.UserLoginInput
	if err := h.ParseRequestBody(c, &input); err != nil {
		h.HandleResponse(c, nil, err)
		return nil
	}
	if err := h.ValidateInput(&input); err != nil {
		h.HandleResponse(c, nil, err)
		return nil
	}

	user, err := h.userService.Login(c.Context(), &input)
	if err != nil {
		logger.LogAuth("login_failed", c, map[string]interface{}{"email": input.Email})
		h.HandleResponse(c, nil, err)
		return nil
	}

	logger.LogAuth("login", c, map[string]interface{}{"email": input.Email})
	h.HandleResponse(c, fiber.Map{
		"user":  user,
		"token": user.Token,
	}, nil)
	return nil
}

// HandleLogout xử lý đăng xuất người dùng
func (h *UserHandler) HandleLogout(c fiber.Ctx) error {
	objID, err := h.currentUserID(c)
	if err != nil {
		h.HandleResponse(c, nil, err)
		return nil
	}
	err = h.userService.Logout(c.Context(), objID)
	if err == nil {
		logger.LogAuth("logout", c, nil)
	}
	h.HandleResponse(c, nil, err)
	return nil
}

// HandleGetProfile lấy thông tin profile của người dùng
func (h *UserHandler) HandleGetProfile(c fiber.Ctx) error {
	objID, err := h.currentUserID(c)
	if err != nil {
		h.HandleResponse(c, nil, err)
		return nil
	}
	user, err := h.userService.BaseServiceMongoImpl.FindOneById(c.Context(), objID)
	if err != nil {
		h.HandleResponse(c, nil, err)
		return nil
	}
	user.Password = ""
	user.Token = ""
	h.HandleResponse(c, user, nil)
	return nil
}

// HandleUpdateProfile cập nhật thông tin profile
func (h *UserHandler) HandleUpdateProfile(c fiber.Ctx) error {
	objID, err := h.currentUserID(c)
	if err != nil {
		h.HandleResponse(c, nil, err)
		return nil
	}
	var input authdto.UserChangeInfoInput
	if err := h.ParseRequestBody(c, &input); err != nil {
		h.HandleResponse(c, nil, err)
		return nil
	}
	update := &basesvc.UpdateData{Set: map[string]interface{}{"name": input.Name}}
	updatedUser, err := h.userService.BaseServiceMongoImpl.UpdateById(c.Context(), objID, update)
	if err != nil {
		h.HandleResponse(c, nil, err)
		return nil
	}
	updatedUser.Password = ""
	updatedUser.Token = ""
	h.HandleResponse(c, updatedUser, nil)
	return nil
}

// HandleChangePassword đổi mật khẩu của chính người dùng
func (h *UserHandler) HandleChangePassword(c fiber.Ctx) error {
	objID, err := h.currentUserID(c)
	if err != nil {
		h.HandleResponse(c, nil, err)
		return nil
	}
	var input authdto.UserChangePasswordInput
	if err := h.ParseRequestBody(c, &input); err != nil {
		h.HandleResponse(c, nil, err)
		return nil
	}
	if err := h.ValidateInput(&input); err != nil {
		h.HandleResponse(c, nil, err)
		return nil
	}
	err = h.userService.ChangePassword(c.Context(), objID, &input)
	if err == nil {
		logger.LogAuth("change_password", c, nil)
	}
	h.HandleResponse(c, nil, err)
	return nil
}

// HandleBlockUser khóa một tài khoản theo email
func (h *UserHandler) HandleBlockUser(c fiber.Ctx) error {
	var input authdto.BlockUserInput
	if err := h.ParseRequestBody(c, &input); err != nil {
		h.HandleResponse(c, nil, err)
		return nil
	}
	if err := h.ValidateInput(&input); err != nil {
		h.HandleResponse(c, nil, err)
		return nil
	}
	user, err := h.userService.BlockUser(c.Context(), &input)
	if err == nil {
		logger.LogAuth("block_user", c, map[string]interface{}{"email": input.Email, "note": input.Note})
	}
	h.HandleResponse(c, user, err)
	return nil
}

// HandleUnBlockUser mở khóa một tài khoản theo email
func (h *UserHandler) HandleUnBlockUser(c fiber.Ctx) error {
	var input authdto.UnBlockUserInput
	if err := h.ParseRequestBody(c, &input); err != nil {
		h.HandleResponse(c, nil, err)
		return nil
	}
	if err := h.ValidateInput(&input); err != nil {
		h.HandleResponse(c, nil, err)
		return nil
	}
	user, err := h.userService.UnBlockUser(c.Context(), &input)
	if err == nil {
		logger.LogAuth("unblock_user", c, map[string]interface{}{"email": input.Email})
	}
	h.HandleResponse(c, user, err)
	return nil
}

// currentUserID lấy ObjectID của user đang đăng nhập từ context (do AuthMiddleware set)
func (h *UserHandler) currentUserID(c fiber.Ctx) (primitive.ObjectID, error) {
	userID := c.Locals("user_id")
	if userID == nil {
		return primitive.NilObjectID, common.NewError(common.ErrCodeAuth, "User not authenticated", common.StatusUnauthorized, nil)
	}
	objID, err := primitive.ObjectIDFromHex(userID.(string))
	if err != nil {
		return primitive.NilObjectID, common.NewError(common.ErrCodeValidationFormat, "Invalid user ID", common.StatusBadRequest, err)
	}
	return objID, nil
}
