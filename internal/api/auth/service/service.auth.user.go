// Package authsvc - service người dùng (User).
package authsvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	authdto "fb_helpdesk/internal/api/auth/dto"
	models "fb_helpdesk/internal/api/auth/models"
	basesvc "fb_helpdesk/internal/api/base/service"
	"fb_helpdesk/internal/common"
	"fb_helpdesk/internal/global"
	"fb_helpdesk/internal/utility"
)

// UserService là cấu trúc chứa các phương thức liên quan đến người dùng
type UserService struct {
	*basesvc.BaseServiceMongoImpl[models.User]
}

// NewUserService tạo mới UserService
func NewUserService() (*UserService, error) {
	userCollection, exist := global.RegistryCollections.Get(global.MongoDB_ColNames.Users)
	if !exist {
		return nil, fmt.Errorf("failed to get users collection: %v", common.ErrNotFound)
	}

	return &UserService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[models.User](userCollection),
	}, nil
}

// Register đăng ký người dùng mới với mật khẩu được hash bằng bcrypt
func (s *UserService) Register(ctx context.Context, input *authdto.UserRegisterInput) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, common.NewError(common.ErrCodeInternalServer, "Lỗi mã hóa mật khẩu", common.StatusInternalServerError, err)
	}

	user := models.User{
		Name:     input.Name,
		Email:    input.Email,
		Password: string(hashed),
	}

	created, err := s.BaseServiceMongoImpl.InsertOne(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrMongoDuplicate) {
			return nil, common.NewError(common.ErrCodeAuthCredentials, "Email đã được đăng ký", common.StatusConflict, nil)
		}
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"user_id": created.ID.Hex(), "email": created.Email}).Info("Register: Đăng ký thành công")
	created.Password = ""
	return &created, nil
}

// Login xác thực email + mật khẩu, phát hành JWT mới và lưu lên user.
// Token cũ bị thay thế nên mỗi user chỉ có một phiên đăng nhập còn hiệu lực.
func (s *UserService) Login(ctx context.Context, input *authdto.UserLoginInput) (*models.User, error) {
	user, err := s.BaseServiceMongoImpl.FindOne(ctx, bson.M{"email": input.Email}, nil)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return nil, common.ErrInvalidCredentials
	}

	if user.IsBlock {
		return nil, common.NewError(common.ErrCodeAuthCredentials, "Tài khoản đã bị khóa: "+user.BlockNote, common.StatusForbidden, nil)
	}

	token, err := utility.CreateToken(global.ServerConfig.JwtSecret, user.ID.Hex(), global.ServerConfig.JwtExpireHour)
	if err != nil {
		return nil, common.NewError(common.ErrCodeInternalServer, "Lỗi phát hành token", common.StatusInternalServerError, err)
	}

	updated, err := s.BaseServiceMongoImpl.UpdateById(ctx, user.ID, &basesvc.UpdateData{
		Set: map[string]interface{}{"token": token},
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{"user_id": user.ID.Hex(), "error": err.Error()}).Error("Login: Lỗi khi lưu token vào user")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"user_id": updated.ID.Hex(), "email": updated.Email}).Info("Login: Đăng nhập thành công")
	updated.Password = ""
	updated.Token = token
	return &updated, nil
}

// Logout đăng xuất người dùng (xóa token đang hiệu lực)
func (s *UserService) Logout(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.BaseServiceMongoImpl.UpdateById(ctx, userID, &basesvc.UpdateData{
		Unset: map[string]interface{}{"token": ""},
	})
	return err
}

// ChangePassword đổi mật khẩu sau khi xác thực mật khẩu cũ, đồng thời hủy token hiện tại
func (s *UserService) ChangePassword(ctx context.Context, userID primitive.ObjectID, input *authdto.UserChangePasswordInput) error {
	user, err := s.BaseServiceMongoImpl.FindOneById(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.OldPassword)); err != nil {
		return common.NewError(common.ErrCodeAuthCredentials, "Mật khẩu cũ không chính xác", common.StatusUnauthorized, nil)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return common.NewError(common.ErrCodeInternalServer, "Lỗi mã hóa mật khẩu", common.StatusInternalServerError, err)
	}

	_, err = s.BaseServiceMongoImpl.UpdateById(ctx, userID, &basesvc.UpdateData{
		Set: map[string]interface{}{
			"password": string(hashed),
			"token":    "",
		},
	})
	return err
}

// BlockUser khóa người dùng theo email và hủy token đang hiệu lực
func (s *UserService) BlockUser(ctx context.Context, input *authdto.BlockUserInput) (*models.User, error) {
	updated, err := s.BaseServiceMongoImpl.UpdateOne(ctx, bson.M{"email": input.Email}, &basesvc.UpdateData{
		Set: map[string]interface{}{
			"isBlock":   true,
			"blockNote": input.Note,
			"token":     "",
		},
	}, nil)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"email": input.Email, "note": input.Note}).Warn("BlockUser: Đã khóa tài khoản")
	return &updated, nil
}

// UnBlockUser mở khóa người dùng theo email
func (s *UserService) UnBlockUser(ctx context.Context, input *authdto.UnBlockUserInput) (*models.User, error) {
	updated, err := s.BaseServiceMongoImpl.UpdateOne(ctx, bson.M{"email": input.Email}, &basesvc.UpdateData{
		Set: map[string]interface{}{
			"isBlock":   false,
			"blockNote": "",
		},
	}, nil)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
