package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"小写转大写", "rahul kumar", "RAHUL KUMAR"},
		{"剔除OCR噪声", "RAHUL | KUMAR *SHARMA.", "RAHUL KUMAR SHARMA"},
		{"折叠多余空白", "  PRIYA   DEVI  ", "PRIYA DEVI"},
		{"剔除数字与非拉丁字符", "RAHUL123 कुमार KUMAR", "RAHUL KUMAR"},
		{"空串", "", ""},
		{"纯噪声", "###123", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"斜杠分隔", "15/06/1998", "15-06-1998"},
		{"点分隔", "15.06.1998", "15-06-1998"},
		{"空格分隔", "15 06 1998", "15-06-1998"},
		{"已是标准格式", "15-06-1998", "15-06-1998"},
		{"补齐前导零", "5/6/1998", "05-06-1998"},
		{"ISO格式调换顺序", "1998-06-15", "15-06-1998"},
		{"两位年份回退19xx", "15/06/98", "15-06-1998"},
		{"两位年份推到20xx", "15/06/05", "15-06-2005"},
		{"两位年份边界50", "01/01/50", "01-01-2050"},
		{"两位年份边界51", "01/01/51", "01-01-1951"},
		{"无法解析原样返回", "June 15 1998", "June 15 1998"},
		{"段数不对原样返回", "15/06", "15/06"},
		{"空串", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeDate(tt.input))
		})
	}
}
