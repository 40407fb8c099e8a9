package main

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	authsvc "fb_helpdesk/internal/api/auth/service"
	"fb_helpdesk/internal/logger"
)

// InitDefaultData kiểm tra dữ liệu khởi đầu của hệ thống.
// Hệ thống không seed tài khoản sẵn: agent đầu tiên tự đăng ký qua /auth/register.
func InitDefaultData() {
	log := logger.GetAppLogger()

	userService, err := authsvc.NewUserService()
	if err != nil {
		log.Fatalf("Failed to initialize user service: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	count, err := userService.CountDocuments(ctx, bson.M{})
	if err != nil {
		log.Warnf("Failed to count users: %v", err)
		return
	}

	if count == 0 {
		log.Info("Chưa có tài khoản nào, đăng ký agent đầu tiên qua POST /api/v1/auth/register")
	} else {
		log.Infof("Found %d user account(s)", count)
	}
}
