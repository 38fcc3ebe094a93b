// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"promo-lottery/internal/pkg/logger"
	"promo-lottery/internal/pkg/nacos"
	"promo-lottery/internal/pkg/tracing"
	"promo-lottery/internal/pkg/utils"
)

type AppCtx struct {
	Mux    *http.ServeMux
	Nacos  *nacos.Client // 未启用 Nacos 时为 nil
	Config Config
}

// AppInfo 包含了启动一个微服务所需的所有特定信息。
type AppInfo struct {
	ServiceName string
	Port        int
	// RegisterHandlers 注册服务自己的 HTTP 路由，返回的 cleanup 在关停时调用
	RegisterHandlers func(appCtx AppCtx) (cleanup func(ctx context.Context), err error)
}

// StartService 封装了所有微服务的通用启动和优雅关停逻辑。
func StartService(info AppInfo) {
	cfg := GetCurrentConfig()
	log := logger.L()

	// 1. Tracer
	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	// 2. 服务注册 (可选)
	var namingClient *nacos.Client
	var ip string
	if cfg.Nacos.Enabled {
		namingClient, err = nacos.NewNacosClient(cfg.Nacos.Addrs, cfg.Nacos.Namespace, cfg.Nacos.Group)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize nacos client")
		}
		if ip, err = utils.GetOutboundIP(); err != nil {
			log.Fatal().Err(err).Msg("failed to get outbound IP address")
		}
		if err := namingClient.RegisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to register service with nacos")
		}
	}

	// 3. 创建并启动 HTTP Server
	mux := http.NewServeMux()
	var cleanup func(ctx context.Context)
	if info.RegisterHandlers != nil {
		cleanup, err = info.RegisterHandlers(AppCtx{Mux: mux, Nacos: namingClient, Config: cfg})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to wire service")
		}
	}
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(info.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("service", info.ServiceName).Int("port", info.Port).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Str("addr", server.Addr).Msg("could not listen")
		}
	}()

	// 4. 优雅关停
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// 阻塞主 goroutine，直到接收到退出信号
	<-quit
	log.Info().Str("service", info.ServiceName).Msg("Shutting down service")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 按启动的逆序清理
	if namingClient != nil {
		if err := namingClient.DeregisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
			log.Error().Err(err).Msg("Error deregistering from Nacos")
		}
	}

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error shutting down http server")
	} else {
		log.Info().Msg("HTTP server shut down.")
	}

	if cleanup != nil {
		cleanup(ctx)
	}

	// 关闭 Tracer Provider，确保所有缓冲的 trace 都被发送出去
	if err := tp.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error shutting down tracer provider")
	}

	log.Info().Str("service", info.ServiceName).Msg("Service gracefully shut down")
}
