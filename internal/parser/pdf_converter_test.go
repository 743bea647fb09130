package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"onboard-agent-go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pdfStubServer(t *testing.T, body []byte, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(status)
		w.Write(body)
	}))
}

func TestIsValidPDF(t *testing.T) {
	assert.True(t, IsValidPDF([]byte("%PDF-1.7\n...")))
	assert.False(t, IsValidPDF([]byte("<html>oops</html>")))
	assert.False(t, IsValidPDF([]byte("%PDF")))
	assert.False(t, IsValidPDF(nil))
}

func TestPDFConverter_Primary(t *testing.T) {
	primary := pdfStubServer(t, []byte("%PDF-1.7 primary"), http.StatusOK)
	defer primary.Close()

	converter, err := NewPDFConverter(config.PDFConverterConfig{PrimaryURL: primary.URL})
	require.NoError(t, err)

	data, err := converter.ConvertHTMLToPDF(context.Background(), "<html><body>CV</body></html>")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7 primary"), data)
}

func TestPDFConverter_FallbackOnInvalidArtifact(t *testing.T) {
	// 主服务返回200但产物不是PDF，应回退
	primary := pdfStubServer(t, []byte("<html>error page</html>"), http.StatusOK)
	defer primary.Close()
	fallback := pdfStubServer(t, []byte("%PDF-1.4 fallback"), http.StatusOK)
	defer fallback.Close()

	converter, err := NewPDFConverter(config.PDFConverterConfig{
		PrimaryURL:  primary.URL,
		FallbackURL: fallback.URL,
	})
	require.NoError(t, err)

	data, err := converter.ConvertHTMLToPDF(context.Background(), "<html></html>")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 fallback"), data)
}

func TestPDFConverter_FallbackOnPrimaryError(t *testing.T) {
	primary := pdfStubServer(t, []byte("boom"), http.StatusInternalServerError)
	defer primary.Close()
	fallback := pdfStubServer(t, []byte("%PDF-1.4 fallback"), http.StatusOK)
	defer fallback.Close()

	converter, err := NewPDFConverter(config.PDFConverterConfig{
		PrimaryURL:  primary.URL,
		FallbackURL: fallback.URL,
	})
	require.NoError(t, err)

	data, err := converter.ConvertHTMLToPDF(context.Background(), "<html></html>")
	require.NoError(t, err)
	assert.True(t, IsValidPDF(data))
}

func TestPDFConverter_AllFail(t *testing.T) {
	primary := pdfStubServer(t, []byte("not a pdf"), http.StatusOK)
	defer primary.Close()

	converter, err := NewPDFConverter(config.PDFConverterConfig{PrimaryURL: primary.URL})
	require.NoError(t, err)

	_, err = converter.ConvertHTMLToPDF(context.Background(), "<html></html>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTML转PDF失败")
}

func TestNewPDFConverter_NoEndpoints(t *testing.T) {
	_, err := NewPDFConverter(config.PDFConverterConfig{})
	require.Error(t, err)
}
