package main

import (
	"context"
	"encoding/json"
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"onboard-agent-go/internal/config"
	applogger "onboard-agent-go/internal/logger"
	"onboard-agent-go/internal/parser"
	"onboard-agent-go/internal/processor"
	"onboard-agent-go/internal/storage"
	"onboard-agent-go/pkg/agent"

	"github.com/spf13/pflag"
)

const usage = `onboardctl - 入职流水线运维工具

用法:
  onboardctl [flags] extract <file>     对本地证件文件做Tika+LLM提取预演
  onboardctl [flags] verify <worker_id> 对指定工人重新执行身份核验
  onboardctl [flags] seed-jobs          灌入岗位种子目录

Flags:
`

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "配置文件路径")
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pflag.PrintDefaults()
	}
	pflag.Parse()

	args := pflag.Args()
	if len(args) == 0 {
		pflag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fatalf("加载配置失败: %v", err)
	}
	applogger.Init(applogger.Config{
		Level:  cfg.Logger.Level,
		Format: "pretty",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch args[0] {
	case "extract":
		if len(args) < 2 {
			fatalf("extract需要一个文件路径参数")
		}
		runExtract(ctx, cfg, args[1])
	case "verify":
		if len(args) < 2 {
			fatalf("verify需要一个worker_id参数")
		}
		runVerify(ctx, cfg, args[1])
	case "seed-jobs":
		runSeedJobs(ctx, cfg)
	default:
		fatalf("未知子命令: %s", args[0])
	}
}

// runExtract 读取本地文件，走与消费者相同的提取链路，结果打印到标准输出
func runExtract(ctx context.Context, cfg *config.Config, filePath string) {
	extractor, docExtractor := buildExtractors(cfg)
	if extractor == nil {
		fatalf("Tika未配置 (tika.server_url)")
	}
	if docExtractor == nil {
		fatalf("LLM提取器未配置 (aliyun.api_key)")
	}

	text, _, err := extractor.ExtractFromFile(ctx, filePath)
	if err != nil {
		fatalf("文本提取失败: %v", err)
	}
	fmt.Printf("提取文本 %d 字符\n", len(text))

	ext := strings.ToLower(filepath.Ext(filePath))
	fmt.Printf("文件类型: %s\n\n", ext)

	personal, err := docExtractor.ExtractPersonal(ctx, text)
	if err != nil {
		fmt.Printf("个人证件提取失败: %v\n", err)
	} else {
		printJSON("personal", personal)
	}

	educational, err := docExtractor.ExtractEducational(ctx, text)
	if err != nil {
		fmt.Printf("学历证件提取失败: %v\n", err)
	} else {
		printJSON("educational", educational)
	}
}

// runVerify 重跑指定工人的身份核验并打印结果
func runVerify(ctx context.Context, cfg *config.Config, workerID string) {
	storageManager, svc := buildService(ctx, cfg)
	defer storageManager.Close()

	outcome, err := svc.RunVerification(ctx, workerID)
	if err != nil {
		fatalf("核验失败: %v", err)
	}
	printJSON("verification", outcome.Result)
}

// runSeedJobs 灌入岗位种子目录
func runSeedJobs(ctx context.Context, cfg *config.Config) {
	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()

	jobs, err := processor.NewJobProcessor(storageManager, nil, cfg.Aliyun.Embedding.Model, &applogger.Logger)
	if err != nil {
		fatalf("初始化岗位处理器失败: %v", err)
	}
	inserted, err := jobs.SeedJobs(ctx)
	if err != nil {
		fatalf("岗位种子灌入失败: %v", err)
	}
	fmt.Printf("已插入 %d 个岗位\n", inserted)
}

func buildService(ctx context.Context, cfg *config.Config) (*storage.Storage, processor.OnboardingService) {
	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		fatalf("初始化存储失败: %v", err)
	}
	svc, err := processor.NewOnboardingService(cfg, storageManager, &applogger.Logger, nil)
	if err != nil {
		storageManager.Close()
		fatalf("初始化入职处理服务失败: %v", err)
	}
	return storageManager, svc
}

// buildExtractors 只组装extract子命令需要的两个组件，不连存储
func buildExtractors(cfg *config.Config) (processor.TextExtractor, processor.DocumentExtractor) {
	var extractor processor.TextExtractor
	if cfg.Tika.ServerURL != "" {
		tikaOptions := []parser.TikaOption{parser.WithMinimalMetadata(true)}
		if cfg.Tika.Timeout > 0 {
			tikaOptions = append(tikaOptions, parser.WithTimeout(time.Duration(cfg.Tika.Timeout)*time.Second))
		}
		extractor = parser.NewTikaTextExtractor(cfg.Tika.ServerURL, tikaOptions...)
	}

	var docExtractor processor.DocumentExtractor
	if cfg.Aliyun.APIKey != "" {
		model, err := agent.NewAliyunQwenChatModel(
			cfg.Aliyun.APIKey,
			cfg.GetModelForTask("document_extraction"),
			cfg.Aliyun.APIURL,
		)
		if err != nil {
			fatalf("初始化LLM模型失败: %v", err)
		}
		docExtractor = parser.NewLLMDocumentExtractor(model, stdlog.New(os.Stderr, "[Extract] ", stdlog.LstdFlags))
	}
	return extractor, docExtractor
}

func printJSON(label string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatalf("序列化%s结果失败: %v", label, err)
	}
	fmt.Printf("--- %s ---\n%s\n\n", label, data)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
