package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTikaTextExtractor(t *testing.T) {
	extractor := NewTikaTextExtractor("http://localhost:9998")

	require.NotNil(t, extractor, "创建的Tika文本提取器不应为nil")
	assert.Equal(t, "http://localhost:9998", extractor.ServerURL, "ServerURL应该被正确设置")
	require.NotNil(t, extractor.Client, "HTTP客户端不应为nil")
	assert.Equal(t, 60*time.Second, extractor.Client.Timeout, "HTTP客户端超时应为60秒")
	assert.True(t, extractor.extractMinimalMetadata, "默认应提取精简元数据")
	assert.False(t, extractor.extractFullMetadata, "默认不应提取完整元数据")
	assert.Equal(t, "eng", extractor.ocrLanguage, "默认OCR语言应为eng")

	// 测试选项
	custom := NewTikaTextExtractor("http://tika:9998",
		WithFullMetadata(true),
		WithMinimalMetadata(false),
		WithOCRLanguage("eng+hin"),
		WithTimeout(10*time.Second),
	)
	assert.True(t, custom.extractFullMetadata)
	assert.False(t, custom.extractMinimalMetadata)
	assert.Equal(t, "eng+hin", custom.ocrLanguage)
	assert.Equal(t, 10*time.Second, custom.Client.Timeout)
}

func TestContentTypeForFile(t *testing.T) {
	cases := map[string]string{
		"aadhaar.pdf":    "application/pdf",
		"marksheet.JPG":  "image/jpeg",
		"marksheet.jpeg": "image/jpeg",
		"photo.png":      "image/png",
		"scan.bmp":       "image/bmp",
		"unknown.docx":   "application/octet-stream",
	}
	for fileName, want := range cases {
		assert.Equal(t, want, contentTypeForFile(fileName), "文件: %s", fileName)
	}
}

func TestTikaTextExtractor_ExtractTextFromBytes(t *testing.T) {
	var gotContentType, gotOCRLang string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tika":
			gotContentType = r.Header.Get("Content-Type")
			gotOCRLang = r.Header.Get("X-Tika-OCRLanguage")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("  RAHUL KUMAR\nDOB: 15-06-1998\n"))
		case "/meta":
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"Content-Type": "image/jpeg", "tiff:ImageWidth": "1200"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	extractor := NewTikaTextExtractor(server.URL, WithOCRLanguage("eng"))

	text, metadata, err := extractor.ExtractTextFromBytes(context.Background(), []byte("fake-image"), "aadhaar.jpg")
	require.NoError(t, err)

	// 首尾空白应被去除
	assert.Equal(t, "RAHUL KUMAR\nDOB: 15-06-1998", text)
	assert.Equal(t, "image/jpeg", gotContentType, "图片应按image/jpeg上传")
	assert.Equal(t, "eng", gotOCRLang, "图片提取应带OCR语言头")

	// 精简元数据应包含白名单字段
	assert.Equal(t, "image/jpeg", metadata["Content-Type"])
	assert.Equal(t, "1200", metadata["tiff:ImageWidth"])
	assert.Equal(t, "aadhaar.jpg", metadata["source_file_name"])
}

func TestTikaTextExtractor_PDFNoOCRHeader(t *testing.T) {
	var gotOCRLang = "unset"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/tika" {
			gotOCRLang = r.Header.Get("X-Tika-OCRLanguage")
			w.Write([]byte("marksheet text"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	extractor := NewTikaTextExtractor(server.URL)
	text, _, err := extractor.ExtractTextFromBytes(context.Background(), []byte("%PDF-1.4"), "marksheet.pdf")
	require.NoError(t, err)
	assert.Equal(t, "marksheet text", text)
	assert.Empty(t, gotOCRLang, "PDF提取不应设置OCR语言头")
}

func TestTikaTextExtractor_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	extractor := NewTikaTextExtractor(server.URL)
	_, _, err := extractor.ExtractTextFromBytes(context.Background(), []byte("data"), "doc.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "错误状态码")
}
