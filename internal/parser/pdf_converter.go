package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"onboard-agent-go/internal/config"
)

// pdfMagic PDF文件头，用于校验转换产物
var pdfMagic = []byte("%PDF")

// PDFConverter 将渲染好的CV HTML转换为PDF
// 主引擎为浏览器内核服务，产物非法或失败时回退到库内核服务
type PDFConverter struct {
	primaryURL  string
	fallbackURL string
	httpClient  *http.Client
	logger      *log.Logger
}

// PDFConverterOption 是PDF转换器的配置选项
type PDFConverterOption func(*PDFConverter)

// WithConverterTimeout 设置单次转换的超时时间
func WithConverterTimeout(timeout time.Duration) PDFConverterOption {
	return func(c *PDFConverter) {
		c.httpClient.Timeout = timeout
	}
}

// WithConverterLogger 设置日志记录器
func WithConverterLogger(logger *log.Logger) PDFConverterOption {
	return func(c *PDFConverter) {
		c.logger = logger
	}
}

// NewPDFConverter 创建新的HTML转PDF转换器
func NewPDFConverter(cfg config.PDFConverterConfig, options ...PDFConverterOption) (*PDFConverter, error) {
	if cfg.PrimaryURL == "" && cfg.FallbackURL == "" {
		return nil, fmt.Errorf("PDF转换服务地址不能全为空")
	}

	timeout := 30 * time.Second
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	converter := &PDFConverter{
		primaryURL:  cfg.PrimaryURL,
		fallbackURL: cfg.FallbackURL,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      log.New(io.Discard, "", 0),
	}

	for _, opt := range options {
		opt(converter)
	}

	return converter, nil
}

// IsValidPDF 校验字节流是否为合法PDF
func IsValidPDF(data []byte) bool {
	return len(data) > len(pdfMagic) && bytes.HasPrefix(data, pdfMagic)
}

// ConvertHTMLToPDF 将HTML转换为PDF字节流
// 先走主服务，产物未通过魔数校验或请求失败时回退到备用服务
func (c *PDFConverter) ConvertHTMLToPDF(ctx context.Context, html string) ([]byte, error) {
	var lastErr error

	if c.primaryURL != "" {
		data, err := c.convertOnce(ctx, c.primaryURL, html)
		if err == nil && IsValidPDF(data) {
			return data, nil
		}
		if err != nil {
			lastErr = err
			c.logger.Printf("主PDF转换服务失败: %v", err)
		} else {
			lastErr = fmt.Errorf("主PDF转换服务返回非PDF产物 (%d 字节)", len(data))
			c.logger.Printf("%v", lastErr)
		}
	}

	if c.fallbackURL != "" {
		data, err := c.convertOnce(ctx, c.fallbackURL, html)
		if err == nil && IsValidPDF(data) {
			return data, nil
		}
		if err != nil {
			lastErr = err
			c.logger.Printf("备用PDF转换服务失败: %v", err)
		} else {
			lastErr = fmt.Errorf("备用PDF转换服务返回非PDF产物 (%d 字节)", len(data))
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("没有可用的PDF转换服务")
	}
	return nil, fmt.Errorf("HTML转PDF失败: %w", lastErr)
}

// convertOnce 向单个转换服务发起请求
func (c *PDFConverter) convertOnce(ctx context.Context, url string, html string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(html))
	if err != nil {
		return nil, fmt.Errorf("创建转换请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "text/html; charset=utf-8")
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送转换请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("转换服务返回非200状态 %d: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取转换产物失败: %w", err)
	}
	return data, nil
}
