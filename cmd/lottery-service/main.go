// cmd/lottery-service/main.go
package main

import (
	"promo-lottery/internal/pkg/bootstrap"
	"promo-lottery/internal/pkg/logger"
)

const (
	serviceName = "lottery-service"
)

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	cfg := bootstrap.Init()
	logger.Init(cfg.App.LogLevel, serviceName)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:      serviceName,
		Port:             cfg.App.Port,
		RegisterHandlers: registerLottery,
	})
}
