package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TextExtractor 证件文本提取器接口，PDF与图片统一走这里
type TextExtractor interface {
	// ExtractFromFile 从本地文件提取文本和元数据
	ExtractFromFile(ctx context.Context, filePath string) (string, map[string]interface{}, error)

	// ExtractTextFromReader 从io.Reader提取文本和元数据，fileName用于推断内容类型
	ExtractTextFromReader(ctx context.Context, reader io.Reader, fileName string) (string, map[string]interface{}, error)

	// ExtractTextFromBytes 从字节数组提取文本和元数据
	ExtractTextFromBytes(ctx context.Context, data []byte, fileName string) (string, map[string]interface{}, error)
}

// TikaTextExtractor 是基于Apache Tika的文本提取器
// Tika服务端需启用Tesseract，图片证件走OCR路径
type TikaTextExtractor struct {
	// Tika服务器地址，例如 http://localhost:9998
	ServerURL string
	// HTTP客户端，可配置超时等参数
	Client *http.Client
	// 是否提取完整元数据
	extractFullMetadata bool
	// 是否提取精简元数据
	extractMinimalMetadata bool
	// OCR语言，例如 "eng" 或 "eng+hin"
	ocrLanguage string
	// 日志记录
	logger *log.Logger
}

// TikaOption 定义配置选项函数
type TikaOption func(*TikaTextExtractor)

// WithFullMetadata 配置是否提取完整元数据
func WithFullMetadata(extract bool) TikaOption {
	return func(e *TikaTextExtractor) {
		e.extractFullMetadata = extract
	}
}

// WithMinimalMetadata 配置是否提取精简的关键元数据
func WithMinimalMetadata(extract bool) TikaOption {
	return func(e *TikaTextExtractor) {
		e.extractMinimalMetadata = extract
	}
}

// WithOCRLanguage 配置OCR识别语言
func WithOCRLanguage(lang string) TikaOption {
	return func(e *TikaTextExtractor) {
		e.ocrLanguage = lang
	}
}

// WithTikaLogger 配置自定义日志记录器
func WithTikaLogger(logger *log.Logger) TikaOption {
	return func(e *TikaTextExtractor) {
		e.logger = logger
	}
}

// WithTimeout 配置HTTP客户端超时时间
func WithTimeout(timeout time.Duration) TikaOption {
	return func(e *TikaTextExtractor) {
		e.Client.Timeout = timeout
	}
}

// 确保TikaTextExtractor实现了TextExtractor接口
var _ TextExtractor = (*TikaTextExtractor)(nil)

// NewTikaTextExtractor 创建一个新的Tika文本提取器
func NewTikaTextExtractor(serverURL string, options ...TikaOption) *TikaTextExtractor {
	// 设置默认的HTTP客户端，OCR可能很慢
	client := &http.Client{
		Timeout: 60 * time.Second,
	}

	extractor := &TikaTextExtractor{
		ServerURL:              serverURL,
		Client:                 client,
		extractFullMetadata:    false, // 默认不提取完整元数据
		extractMinimalMetadata: true,  // 默认提取精简元数据
		ocrLanguage:            "eng",
		logger:                 log.New(os.Stderr, "[TikaExtractor] ", log.LstdFlags),
	}

	// 应用选项
	for _, option := range options {
		option(extractor)
	}

	return extractor
}

// contentTypeForFile 按扩展名推断请求的Content-Type
func contentTypeForFile(fileName string) string {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".bmp":
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}

// ExtractTextFromReader 从io.Reader提取文本内容
func (e *TikaTextExtractor) ExtractTextFromReader(ctx context.Context, reader io.Reader, fileName string) (string, map[string]interface{}, error) {
	startTime := time.Now()
	e.logger.Printf("开始从Reader提取证件文本 (文件: %s)", fileName)

	// 读取所有内容到内存
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", nil, fmt.Errorf("读取证件内容失败: %w", err)
	}

	// 提取文本和元数据
	text, metadata, err := e.ExtractTextFromBytes(ctx, data, fileName)

	duration := time.Since(startTime)
	if err != nil {
		e.logger.Printf("从Reader提取证件文本失败: %s (用时 %.2f秒)", err, duration.Seconds())
		return "", nil, err
	}

	e.logger.Printf("证件文本提取完成: 提取了 %d 个字符 (用时 %.2f秒)", len(text), duration.Seconds())
	return text, metadata, nil
}

// ExtractTextFromBytes 从字节数组提取文本内容
func (e *TikaTextExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, fileName string) (string, map[string]interface{}, error) {
	startTime := time.Now()
	contentType := contentTypeForFile(fileName)

	// 基本元数据，无论如何都会包含
	baseMetadata := map[string]interface{}{
		"extraction_time":  time.Now().Format(time.RFC3339),
		"source_file_name": fileName,
		"content_type":     contentType,
	}

	// 构建请求URL - 纯文本模式
	url := fmt.Sprintf("%s/tika", e.ServerURL)

	// 创建请求
	req, err := http.NewRequestWithContext(ctx, "PUT", url, bytes.NewReader(data))
	if err != nil {
		return "", baseMetadata, fmt.Errorf("创建HTTP请求失败: %w", err)
	}

	// 设置头信息
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/plain")

	// 如果有文件名，添加到请求头
	if fileName != "" {
		req.Header.Set("X-Tika-Resource-Name", fileName)
	}

	// 图片证件走OCR路径，设置识别语言
	if strings.HasPrefix(contentType, "image/") && e.ocrLanguage != "" {
		req.Header.Set("X-Tika-OCRLanguage", e.ocrLanguage)
	}

	// 发送请求
	resp, err := e.Client.Do(req)
	if err != nil {
		return "", baseMetadata, fmt.Errorf("发送请求到Tika服务器失败: %w", err)
	}
	defer resp.Body.Close()

	// 检查响应状态
	if resp.StatusCode != http.StatusOK {
		return "", baseMetadata, fmt.Errorf("tika服务器返回错误状态码: %d", resp.StatusCode)
	}

	// 读取响应内容
	textBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", baseMetadata, fmt.Errorf("读取Tika响应失败: %w", err)
	}

	text := strings.TrimSpace(string(textBytes))

	// 添加文本长度到基本元数据
	baseMetadata["text_length"] = len(text)
	baseMetadata["processing_duration_ms"] = time.Since(startTime).Milliseconds()

	// 如果不需要任何元数据，直接返回基本元数据
	if !e.extractMinimalMetadata && !e.extractFullMetadata {
		return text, baseMetadata, nil
	}

	// 提取元数据
	metadataStartTime := time.Now()
	rawMetadata, err := e.extractMetadata(ctx, data, fileName, contentType)

	if err == nil {
		if e.extractFullMetadata {
			// 合并所有元数据
			for k, v := range rawMetadata {
				baseMetadata[k] = v
			}
		} else if e.extractMinimalMetadata {
			// 只添加重要的元数据
			for k, v := range rawMetadata {
				if isImportantMetadata(k) {
					baseMetadata[k] = v
				}
			}
		}
	} else {
		e.logger.Printf("元数据提取失败: %v, 继续使用基本元数据", err)
	}

	baseMetadata["metadata_processing_ms"] = time.Since(metadataStartTime).Milliseconds()

	return text, baseMetadata, nil
}

// 判断元数据字段是否重要
func isImportantMetadata(key string) bool {
	importantKeys := map[string]bool{
		"pdf:PDFVersion":                true,
		"xmpTPg:NPages":                 true,
		"dcterms:created":               true,
		"language":                      true,
		"dc:title":                      true,
		"Content-Type":                  true,
		"tiff:ImageWidth":               true,
		"tiff:ImageLength":              true,
		"pdf:docinfo:created":           true,
		"pdf:totalUnmappedUnicodeChars": true,
	}
	return importantKeys[key]
}

// extractMetadata 提取文档元数据
func (e *TikaTextExtractor) extractMetadata(ctx context.Context, data []byte, fileName, contentType string) (map[string]interface{}, error) {
	// 构建请求URL - 元数据
	url := fmt.Sprintf("%s/meta", e.ServerURL)

	// 创建请求
	req, err := http.NewRequestWithContext(ctx, "PUT", url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}

	// 设置头信息
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	// 如果有文件名，添加到请求头
	if fileName != "" {
		req.Header.Set("X-Tika-Resource-Name", fileName)
	}

	// 发送请求
	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求到Tika服务器失败: %w", err)
	}
	defer resp.Body.Close()

	// 检查响应状态
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tika服务器返回错误状态码: %d", resp.StatusCode)
	}

	// 读取响应内容
	metadataBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取Tika响应失败: %w", err)
	}

	// 解析JSON元数据
	var metadata map[string]interface{}
	if err := json.Unmarshal(metadataBytes, &metadata); err != nil {
		return nil, fmt.Errorf("解析元数据JSON失败: %w", err)
	}

	return metadata, nil
}

// ExtractFromFile 从本地文件提取文本内容
func (e *TikaTextExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, map[string]interface{}, error) {
	startTime := time.Now()
	e.logger.Printf("开始处理证件文件: %s", filePath)

	file, err := os.Open(filePath)
	if err != nil {
		return "", nil, fmt.Errorf("打开文件 %s 失败: %w", filePath, err)
	}
	defer file.Close()

	// 获取文件大小，用于日志记录
	fileInfo, err := file.Stat()
	if err == nil {
		e.logger.Printf("文件大小: %.2f MB", float64(fileInfo.Size())/1024/1024)
	}

	text, metadata, err := e.ExtractTextFromReader(ctx, file, filepath.Base(filePath))

	duration := time.Since(startTime)
	if err != nil {
		e.logger.Printf("证件处理失败: %s (用时 %.2f秒)", err, duration.Seconds())
		return "", nil, err
	}

	e.logger.Printf("证件处理完成: 提取了 %d 个字符 (用时 %.2f秒)", len(text), duration.Seconds())
	return text, metadata, nil
}
