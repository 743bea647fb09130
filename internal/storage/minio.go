package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"onboard-agent-go/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
)

// ObjectStorage 对象存储接口
type ObjectStorage interface {
	// UploadDocumentStreaming 流式上传证件文件并同时计算MD5
	UploadDocumentStreaming(ctx context.Context, workerID, kind, fileExt string, reader io.Reader, fileSize int64) (string, string, error)

	// UploadVideo 上传自我介绍视频
	UploadVideo(ctx context.Context, workerID, fileExt string, reader io.Reader, fileSize int64) (string, error)

	// UploadExtractedText 上传OCR提取出的文本产物
	UploadExtractedText(ctx context.Context, workerID string, documentID string, text string) (string, error)

	// UploadCVArtifact 上传CV产物（html/txt/pdf）
	UploadCVArtifact(ctx context.Context, objectKey string, data []byte, contentType string) (string, error)

	// GetDocument 下载证件文件
	GetDocument(ctx context.Context, objectKey string) ([]byte, error)

	// GetCVArtifact 下载CV产物
	GetCVArtifact(ctx context.Context, objectKey string) ([]byte, error)

	// DeleteDocument 删除证件文件
	DeleteDocument(ctx context.Context, objectKey string) error

	// GetPresignedURL 获取预签名URL
	GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

// 确保MinIO实现了ObjectStorage接口
var _ ObjectStorage = (*MinIO)(nil)

// MinIO 提供对象存储功能
type MinIO struct {
	client          *minio.Client
	cfg             *config.MinIOConfig
	documentsBucket string
	videosBucket    string
	cvBucket        string
	logger          *log.Logger
}

// NewMinIO 创建MinIO客户端
func NewMinIO(cfg *config.MinIOConfig, logger *log.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	logger.Printf("[MinIO] Initializing MinIO client with endpoint: %s, documentsBucket: %s, cvBucket: %s", cfg.Endpoint, cfg.DocumentsBucket, cfg.CVBucket)

	// 创建MinIO客户端
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		logger.Printf("[MinIO] Initialization failed: %v", err)
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	// 设置存储桶名称
	documentsBucket := cfg.DocumentsBucket
	if documentsBucket == "" {
		documentsBucket = "worker-documents"
	}
	videosBucket := cfg.VideosBucket
	if videosBucket == "" {
		videosBucket = "worker-videos"
	}
	cvBucket := cfg.CVBucket
	if cvBucket == "" {
		cvBucket = "worker-cvs"
	}

	m := &MinIO{
		client:          client,
		cfg:             cfg,
		documentsBucket: documentsBucket,
		videosBucket:    videosBucket,
		cvBucket:        cvBucket,
		logger:          logger,
	}

	// 确保存储桶存在
	for _, bucket := range []string{documentsBucket, videosBucket, cvBucket} {
		if err := m.ensureBucketExists(bucket, cfg.Location); err != nil {
			logger.Printf("[MinIO] Failed to ensure bucket %s exists: %v", bucket, err)
			return nil, fmt.Errorf("确保存储桶 %s 存在失败: %w", bucket, err)
		}
	}

	// 设置生命周期规则
	if cfg.DocumentExpireDays > 0 || cfg.CVExpireDays > 0 {
		err = m.setupLifecycleRules(context.Background())
		if err != nil {
			logger.Printf("[MinIO] Warning: Failed to set up lifecycle rules: %v", err)
		}
	}

	logger.Printf("[MinIO] Client initialized successfully for endpoint: %s", cfg.Endpoint)
	return m, nil
}

// ensureBucketExists 确保存储桶存在
func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	m.logger.Printf("[MinIO] Ensuring bucket exists: %s (Location: %s)", bucketName, location)
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		m.logger.Printf("[MinIO] Error checking if bucket %s exists: %v", bucketName, err)
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if !exists {
		m.logger.Printf("[MinIO] Bucket %s does not exist, attempting to create...", bucketName)
		err = m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location})
		if err != nil {
			m.logger.Printf("[MinIO] Error creating bucket %s: %v", bucketName, err)
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
		}
		m.logger.Printf("[MinIO] Bucket %s created successfully.", bucketName)
	} else {
		m.logger.Printf("[MinIO] Bucket %s already exists.", bucketName)
	}
	return nil
}

// setupLifecycleRules 设置对象生命周期规则
func (m *MinIO) setupLifecycleRules(ctx context.Context) error {
	m.logger.Printf("[MinIO] Setting up lifecycle rules...")
	if m.cfg.DocumentExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.documentsBucket, "expire-documents", m.cfg.DocumentExpireDays); err != nil {
			return fmt.Errorf("为证件存储桶 %s 设置生命周期失败: %w", m.documentsBucket, err)
		}
		if err := m.setupBucketLifecycle(ctx, m.videosBucket, "expire-videos", m.cfg.DocumentExpireDays); err != nil {
			return fmt.Errorf("为视频存储桶 %s 设置生命周期失败: %w", m.videosBucket, err)
		}
	}
	if m.cfg.CVExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.cvBucket, "expire-cvs", m.cfg.CVExpireDays); err != nil {
			return fmt.Errorf("为CV存储桶 %s 设置生命周期失败: %w", m.cvBucket, err)
		}
	}
	m.logger.Printf("[MinIO] Lifecycle rules setup completed.")
	return nil
}

// setupBucketLifecycle 为指定存储桶设置生命周期规则
func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	m.logger.Printf("[MinIO] Setting lifecycle rule for bucket %s: ID=%s, ExpiryDays=%d", bucketName, ruleID, expiryDays)
	config := lifecycle.NewConfiguration()
	config.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}

	err := m.client.SetBucketLifecycle(ctx, bucketName, config)
	if err != nil {
		m.logger.Printf("[MinIO] Error setting lifecycle for bucket %s: %v", bucketName, err)
		return err
	}
	m.logger.Printf("[MinIO] Successfully set lifecycle for bucket %s.", bucketName)
	return nil
}

// testLogf 仅在启用测试日志时输出
func (m *MinIO) testLogf(format string, args ...interface{}) {
	if m.cfg.EnableTestLogging && m.logger != nil && m.logger.Writer() != io.Discard {
		m.logger.Printf(format, args...)
	}
}

// UploadDocumentStreaming 流式上传证件文件并同时计算MD5
// kind 为 personal / educational，对象键形如 documents/{workerID}/{kind}_{ts}{ext}
// 返回: objectKey, md5Hex, error
func (m *MinIO) UploadDocumentStreaming(ctx context.Context, workerID, kind, fileExt string, reader io.Reader, fileSize int64) (string, string, error) {
	objectName := fmt.Sprintf("documents/%s/%s_%d%s", workerID, kind, time.Now().UnixMilli(), fileExt)
	contentType := getContentType(fileExt)

	// 使用TeeReader边上传边计算MD5
	md5Hash := md5.New()
	teeReader := io.TeeReader(reader, md5Hash)

	m.testLogf("[MinIO-UploadDocument] Uploading: WorkerID='%s', Kind='%s', ObjectName='%s', Bucket='%s'",
		workerID, kind, objectName, m.documentsBucket)

	info, err := m.client.PutObject(ctx, m.documentsBucket, objectName, teeReader,
		fileSize, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", "", fmt.Errorf("流式上传证件到MinIO失败: %w", err)
	}

	md5Hex := hex.EncodeToString(md5Hash.Sum(nil))
	m.testLogf("[MinIO-UploadDocument] Successfully uploaded %s, ETag: %s, Size: %d, MD5: %s",
		objectName, info.ETag, info.Size, md5Hex)

	return objectName, md5Hex, nil
}

// UploadVideo 上传自我介绍视频到视频存储桶
func (m *MinIO) UploadVideo(ctx context.Context, workerID, fileExt string, reader io.Reader, fileSize int64) (string, error) {
	objectName := fmt.Sprintf("videos/%s/intro_%d%s", workerID, time.Now().UnixMilli(), fileExt)
	contentType := getContentType(fileExt)

	m.testLogf("[MinIO-UploadVideo] Uploading: WorkerID='%s', ObjectName='%s', Bucket='%s'", workerID, objectName, m.videosBucket)

	_, err := m.client.PutObject(ctx, m.videosBucket, objectName, reader, fileSize,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("上传视频 %s 到存储桶 %s 失败: %w", objectName, m.videosBucket, err)
	}
	return objectName, nil
}

// UploadExtractedText 上传OCR提取文本到证件存储桶的text/前缀下
func (m *MinIO) UploadExtractedText(ctx context.Context, workerID string, documentID string, text string) (string, error) {
	objectName := fmt.Sprintf("text/%s/%s.txt", workerID, documentID)

	m.testLogf("[MinIO-UploadExtractedText] Uploading: WorkerID='%s', ObjectName='%s', TextLength=%d", workerID, objectName, len(text))

	_, err := m.client.PutObject(ctx, m.documentsBucket, objectName, strings.NewReader(text), int64(len(text)),
		minio.PutObjectOptions{ContentType: "text/plain"})
	if err != nil {
		return "", fmt.Errorf("上传提取文本 %s 到存储桶 %s 失败: %w", objectName, m.documentsBucket, err)
	}
	return objectName, nil
}

// UploadCVArtifact 上传CV产物到CV存储桶，objectKey由调用方构造
func (m *MinIO) UploadCVArtifact(ctx context.Context, objectKey string, data []byte, contentType string) (string, error) {
	m.testLogf("[MinIO-UploadCVArtifact] Uploading: ObjectKey='%s', Size=%d, ContentType='%s'", objectKey, len(data), contentType)

	_, err := m.client.PutObject(ctx, m.cvBucket, objectKey, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("上传CV产物 %s 到存储桶 %s 失败: %w", objectKey, m.cvBucket, err)
	}
	return objectKey, nil
}

// GetDocument 下载证件文件（也用于text/前缀下的提取文本）
func (m *MinIO) GetDocument(ctx context.Context, objectKey string) ([]byte, error) {
	return m.getObject(ctx, m.documentsBucket, objectKey)
}

// GetCVArtifact 下载CV产物
func (m *MinIO) GetCVArtifact(ctx context.Context, objectKey string) ([]byte, error) {
	return m.getObject(ctx, m.cvBucket, objectKey)
}

// ListCVArtifacts 按前缀列出CV产物对象键，按名称升序
// 时间戳命名的产物由此取最新一个
func (m *MinIO) ListCVArtifacts(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range m.client.ListObjects(ctx, m.cvBucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("列举CV产物失败: %w", obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// getObject 从指定存储桶读取完整对象
func (m *MinIO) getObject(ctx context.Context, bucketName, objectKey string) ([]byte, error) {
	m.testLogf("[MinIO-GetObject] Getting: ObjectKey='%s', Bucket='%s'", objectKey, bucketName)

	obj, err := m.client.GetObject(ctx, bucketName, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", bucketName, objectKey, err)
	}
	defer obj.Close()

	// Stat确认对象存在且可读
	stat, err := obj.Stat()
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 状态失败: %w", bucketName, objectKey, err)
	}
	m.testLogf("[MinIO-GetObject] Object %s/%s stats: Size=%d, ContentType=%s", bucketName, objectKey, stat.Size, stat.ContentType)

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s/%s 数据失败: %w", bucketName, objectKey, err)
	}
	return data, nil
}

// DeleteDocument 删除证件文件
func (m *MinIO) DeleteDocument(ctx context.Context, objectKey string) error {
	m.testLogf("[MinIO-DeleteDocument] Deleting: ObjectKey='%s', Bucket='%s'", objectKey, m.documentsBucket)

	err := m.client.RemoveObject(ctx, m.documentsBucket, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("删除对象 %s 失败: %w", objectKey, err)
	}
	return nil
}

// GetPresignedURL 获取证件对象的预签名URL
func (m *MinIO) GetPresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	m.testLogf("[MinIO-GetPresignedURL] Generating for: ObjectName='%s', Bucket='%s', Expiry=%s", objectName, m.documentsBucket, expiry)

	presignedURL, err := m.client.PresignedGetObject(ctx, m.documentsBucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成MinIO预签名URL失败: %w", err)
	}
	return presignedURL.String(), nil
}

// StatObject 暴露底层的StatObject方法，用于测试或特定场景
func (m *MinIO) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return m.client.StatObject(ctx, bucketName, objectName, opts)
}

// RemoveObject 暴露底层的RemoveObject方法，用于测试或特定场景
func (m *MinIO) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return m.client.RemoveObject(ctx, bucketName, objectName, opts)
}

// 获取内容类型
func getContentType(ext string) string {
	ext = strings.ToLower(ext)
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".bmp":
		return "image/bmp"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".avi":
		return "video/x-msvideo"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	case ".txt":
		return "text/plain"
	case ".html", ".htm":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}
