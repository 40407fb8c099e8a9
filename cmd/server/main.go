package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fb_helpdesk/internal/database"
	"fb_helpdesk/internal/global"
	"fb_helpdesk/internal/logger"
	"fb_helpdesk/internal/realtime"
)

// initLogger khởi tạo và cấu hình logger cho toàn bộ ứng dụng
func initLogger() {
	if err := logger.Init(nil); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	logger.GetAppLogger().Info("Logger system initialized successfully")
}

// main_thread khởi tạo và chạy Fiber server
func main_thread() {
	log := logger.GetAppLogger()

	hub := realtime.NewHub()
	app := InitFiberApp(hub)

	addr := global.ServerConfig.Address

	// Tắt server khi nhận SIGINT/SIGTERM để đóng sạch connection
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		log.Infof("Received signal %s, shutting down...", sig)
		if err := app.Shutdown(); err != nil {
			log.Errorf("Error during shutdown: %v", err)
		}
	}()

	log.Infof("Starting Fiber server on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Error starting server: %v", err)
	}

	if err := database.CloseInstance(global.MongoDB_Session); err != nil {
		log.Errorf("Error closing MongoDB connection: %v", err)
	}
	log.Info("Server stopped")
}

func main() {
	initLogger()      // Khởi tạo logger
	InitGlobal()      // Khởi tạo các biến toàn cục
	InitRegistry()    // Khởi tạo registry các collection
	InitDefaultData() // Kiểm tra dữ liệu khởi đầu
	main_thread()     // Chạy server
}
