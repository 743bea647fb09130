package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"onboard-agent-go/internal/agent"
	"onboard-agent-go/internal/api/handler"
	"onboard-agent-go/internal/api/router"
	"onboard-agent-go/internal/config"
	"onboard-agent-go/internal/constants"
	applogger "onboard-agent-go/internal/logger"
	"onboard-agent-go/internal/outbox"
	"onboard-agent-go/internal/parser"
	"onboard-agent-go/internal/processor"
	"onboard-agent-go/internal/storage"
	"onboard-agent-go/internal/tracing"

	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"
)

const serviceName = "onboard-agent-go"

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "配置文件路径")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("加载配置失败: %v", err)
	}

	initLogger(cfg)
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 链路追踪
	shutdownTracing, err := tracing.InitTracerProvider(ctx, serviceName, cfg.Tracing.OTLPEndpoint, cfg.Tracing.SamplingRate)
	if err != nil {
		glog.Warnf("初始化链路追踪失败，继续无追踪运行: %v", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	// 存储层
	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	if storageManager.RabbitMQ != nil {
		if err := storageManager.RabbitMQ.SetupOnboardingTopology(); err != nil {
			glog.Fatalf("声明RabbitMQ拓扑失败: %v", err)
		}
		glog.Info("RabbitMQ拓扑声明完成")
	}

	// 共享组件：HTML转PDF转换器（流水线与下载接口共用一个实例）
	var pdfConverter processor.HTMLToPDFConverter
	if cfg.PDFConverter.PrimaryURL != "" || cfg.PDFConverter.FallbackURL != "" {
		converter, convErr := parser.NewPDFConverter(cfg.PDFConverter)
		if convErr != nil {
			glog.Warnf("初始化PDF转换器失败: %v", convErr)
		} else {
			pdfConverter = converter
		}
	}

	// 业务服务层
	var compOpts []processor.ComponentOpt
	if pdfConverter != nil {
		compOpts = append(compOpts, processor.WithcompPDFConverter(pdfConverter))
	}
	svc, err := processor.NewOnboardingService(cfg, storageManager, &applogger.Logger, compOpts)
	if err != nil {
		glog.Fatalf("初始化入职处理服务失败: %v", err)
	}
	glog.Info("入职处理服务初始化成功")

	// 岗位处理器，向量化组件缺配置时仅保留规则匹配
	var jobEmbedder processor.TextEmbedder
	if cfg.Aliyun.APIKey != "" && cfg.Aliyun.Embedding.Model != "" {
		embedder, embErr := parser.NewAliyunEmbedder(cfg.Aliyun.APIKey, cfg.Aliyun.Embedding)
		if embErr != nil {
			glog.Warnf("初始化Embedder失败，岗位向量功能不可用: %v", embErr)
		} else {
			jobEmbedder = embedder
		}
	}
	jobProcessor, err := processor.NewJobProcessor(storageManager, jobEmbedder, cfg.Aliyun.Embedding.Model, &applogger.Logger)
	if err != nil {
		glog.Fatalf("初始化岗位处理器失败: %v", err)
	}

	// 消息中继：把发件箱记录投递到RabbitMQ
	var messageRelay *outbox.MessageRelay
	if storageManager.MySQL != nil && storageManager.RabbitMQ != nil {
		messageRelay = outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ, &applogger.Logger)
		messageRelay.Start()
		glog.Info("消息中继服务已启动")
	}

	// 消费者
	consumerStops := startConsumers(ctx, cfg, storageManager, svc)

	// 问答聊天记忆，Redis不可用时退化为不记录
	var chatMemory agent.ChatMemory
	if storageManager.Redis != nil && storageManager.Redis.Client != nil {
		memory, memErr := agent.NewRedisChatMemory(storageManager.Redis.Client, constants.ChatMemoryKeyPrefix, 24*time.Hour)
		if memErr != nil {
			glog.Warnf("初始化聊天记忆失败: %v", memErr)
		} else {
			chatMemory = memory
		}
	}

	// HTTP服务
	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		tracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	router.RegisterRoutes(h, cfg, router.Handlers{
		Worker:     handler.NewWorkerHandler(cfg, storageManager),
		Document:   handler.NewDocumentHandler(cfg, storageManager),
		Review:     handler.NewReviewHandler(cfg, storageManager, svc),
		Voice:      handler.NewVoiceHandler(cfg, storageManager, svc),
		Experience: handler.NewExperienceHandler(cfg, storageManager, svc, chatMemory),
		Job:        handler.NewJobHandler(cfg, storageManager, jobProcessor),
		CV:         handler.NewCVHandler(cfg, storageManager, svc, pdfConverter),
		Admin:      handler.NewAdminHandler(cfg, storageManager, svc, jobProcessor),
	})
	glog.Info("HTTP路由注册成功")

	go func() {
		glog.Infof("HTTP服务器启动中，监听地址: %s", cfg.Server.Address)
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	for _, stop := range consumerStops {
		close(stop)
	}
	if messageRelay != nil {
		messageRelay.Stop()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("服务器关闭失败: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		glog.Warnf("关闭追踪上报失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// initLogger 初始化zerolog并把Hertz的全局日志接到同一个输出上
func initLogger(cfg *config.Config) {
	applogger.Init(applogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	applogger.Logger = applogger.Logger.With().
		Str("app", serviceName).
		Logger()

	glog.SetLogger(hertzadapter.From(applogger.Logger))
}

// startConsumers 启动四条队列的消费者，返回全部stop通道
func startConsumers(ctx context.Context, cfg *config.Config, storageManager *storage.Storage, svc processor.OnboardingService) []chan<- struct{} {
	if storageManager.RabbitMQ == nil {
		glog.Warn("RabbitMQ未配置，跳过消费者启动")
		return nil
	}
	rmq := storageManager.RabbitMQ
	prefetch := cfg.RabbitMQ.PrefetchCount
	if prefetch <= 0 {
		prefetch = 5
	}

	var stops []chan<- struct{}
	start := func(queue, workerKey string, handle func([]byte) bool) {
		workers := rmq.ConsumerWorkerCount(workerKey)
		for i := 0; i < workers; i++ {
			stop, err := rmq.StartConsumer(queue, prefetch, handle)
			if err != nil {
				glog.Fatalf("启动消费者失败 (队列 %s): %v", queue, err)
			}
			stops = append(stops, stop)
		}
		glog.Infof("消费者已启动，队列: %s, 工作线程数: %d", queue, workers)
	}

	// 证件提取
	start(cfg.RabbitMQ.DocumentExtractionQueue, "document_consumer_workers", func(body []byte) bool {
		var msg storage.DocumentUploadedMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			glog.Errorf("证件消息解析失败，丢弃: %v", err)
			return true
		}
		if err := svc.ProcessUploadedDocument(ctx, msg); err != nil {
			glog.Errorf("证件处理失败 (worker %s): %v", msg.WorkerID, err)
			return false
		}
		return true
	})

	// 经验整合
	start(cfg.RabbitMQ.ExperienceExtractionQueue, "experience_consumer_workers", func(body []byte) bool {
		var msg storage.TranscriptReceivedMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			glog.Errorf("转写消息解析失败，丢弃: %v", err)
			return true
		}
		if err := svc.ProcessTranscript(ctx, msg); err != nil {
			glog.Errorf("转写处理失败 (worker %s): %v", msg.WorkerID, err)
			return false
		}
		return true
	})

	// CV生成
	start(cfg.RabbitMQ.CVGenerationQueue, "cv_consumer_workers", func(body []byte) bool {
		var msg storage.CVRequestedMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			glog.Errorf("CV请求消息解析失败，丢弃: %v", err)
			return true
		}
		if _, err := svc.GenerateCV(ctx, msg.WorkerID); err != nil {
			glog.Errorf("CV生成失败 (worker %s): %v", msg.WorkerID, err)
			// 工人或经验数据缺失属于业务性失败，重回队列也无法恢复
			return true
		}
		return true
	})

	// 语音外呼调度
	dispatchClient := &http.Client{Timeout: voiceDispatchTimeout(cfg)}
	start(cfg.RabbitMQ.VoiceDispatchQueue, "voice_dispatch_workers", func(body []byte) bool {
		var msg storage.VoiceCallRequestedMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			glog.Errorf("外呼消息解析失败，丢弃: %v", err)
			return true
		}
		if cfg.VoiceAgent.DispatchURL == "" {
			glog.Warn("语音Agent未配置，丢弃外呼消息")
			return true
		}
		if err := dispatchVoiceCall(ctx, dispatchClient, cfg.VoiceAgent.DispatchURL, &msg); err != nil {
			glog.Errorf("外呼调度失败 (worker %s): %v", msg.WorkerID, err)
			return false
		}
		glog.Infof("外呼已调度 (worker %s)", msg.WorkerID)
		return true
	})

	return stops
}

func voiceDispatchTimeout(cfg *config.Config) time.Duration {
	if cfg.VoiceAgent.Timeout > 0 {
		return time.Duration(cfg.VoiceAgent.Timeout) * time.Second
	}
	return 15 * time.Second
}

// dispatchVoiceCall 向语音Agent发起外呼请求
func dispatchVoiceCall(ctx context.Context, client *http.Client, url string, msg *storage.VoiceCallRequestedMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return &voiceDispatchError{status: resp.StatusCode}
	}
	return nil
}

type voiceDispatchError struct {
	status int
}

func (e *voiceDispatchError) Error() string {
	return "voice agent returned status " + http.StatusText(e.status)
}
