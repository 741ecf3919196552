package main

import (
	"AviationEmission/src/config"
	"AviationEmission/src/dashboard"
	"AviationEmission/src/datasource/file"
	"AviationEmission/src/processor"
	"AviationEmission/src/storage"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron"
)

func main() {
	jsonFolder := "./config"
	jsonFile := "config.json"
	cfg, err := config.LoadConfig(jsonFolder, jsonFile)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	sources := file.NewSources(cfg)
	preparer := processor.NewPreparer(sources, processor.Options{
		OriginCode:  cfg.OriginCode,
		OriginLabel: cfg.OriginLabel,
	}, logger)

	t1 := time.Now()
	session, err := dashboard.NewSession(preparer, cfg.ShortHaulKm, logger)
	if err != nil {
		logger.Fatal("会话数据准备失败: " + err.Error())
		log.Fatal("Failed to prepare session:", err)
	}
	logger.Info(fmt.Sprintf("数据处理时间：%v", time.Since(t1)))

	// 定时检查日志大小
	c := cron.New()
	cronSpec := fmt.Sprintf("@every %s", time.Duration(cfg.RotateInterval))
	if err := c.AddFunc(cronSpec, func() { logger.CheckRotate(cfg) }); err != nil {
		logger.Error("创建定时任务失败: " + err.Error())
		return
	}
	c.Start()
	defer c.Stop()

	if cfg.WatchSources {
		monitor, err := file.NewFileMonitor(sources.Files())
		if err != nil {
			logger.Warning("数据文件监控启动失败: " + err.Error())
		} else {
			defer monitor.Close()
			go monitorSources(monitor, session, logger)
		}
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: dashboard.NewServer(session, logger, cfg.RatingImagePath()).Handler(),
	}
	go waitForSignals(srv, logger)

	logger.Info(fmt.Sprintf("仪表盘服务已启动: %s，按Ctrl+C退出", cfg.Server.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP服务异常退出: " + err.Error())
	}
	logger.Close()
}

func monitorSources(monitor *file.FileMonitor, session *dashboard.Session, logger *storage.Logger) {
	err := monitor.Watch(func(path string, op fsnotify.Op) {
		session.MarkStale(path)
		logger.Info(fmt.Sprintf("数据文件变化: %s (%s)", path, op))
	})
	if err != nil {
		logger.Error("数据文件监控错误: " + err.Error())
	}
}

// waitForSignals SIGHUP重新打开日志文件，SIGINT/SIGTERM停止服务
func waitForSignals(srv *http.Server, logger *storage.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			if err := logger.Reopen(); err != nil {
				log.Println("Failed to reopen log file:", err)
			}
			continue
		}

		logger.Info("Received signal: " + sig.String() + ", shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("HTTP服务关闭失败: " + err.Error())
		}
		cancel()
		return
	}
}
