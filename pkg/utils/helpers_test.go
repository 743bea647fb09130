package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateMD5(t *testing.T) {
	// 空输入也要有稳定哈希，去重逻辑依赖这一点
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", CalculateMD5(nil))
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", CalculateMD5([]byte{}))
	assert.Equal(t, "ed076287532e86365e841e92bfc50d8c", CalculateMD5([]byte("Hello World!")))

	// 内容不同哈希必须不同
	assert.NotEqual(t, CalculateMD5([]byte("a")), CalculateMD5([]byte("b")))
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "919876543210", DigitsOnly("+91 98765-43210"))
	assert.Equal(t, "9876543210", DigitsOnly("9876543210"))
	assert.Equal(t, "", DigitsOnly("no digits here"))
	assert.Equal(t, "", DigitsOnly(""))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "Rahul_Kumar", SanitizeFilename("Rahul Kumar"))
	assert.Equal(t, "Rahul_Kumar", SanitizeFilename("Rahul. Kumar/"))
	assert.Equal(t, "", SanitizeFilename("../../"))
}

func TestConvertArrayToJSON(t *testing.T) {
	assert.Equal(t, "[]", string(ConvertArrayToJSON(nil)))
	assert.Equal(t, `["wiring","motor repair"]`, string(ConvertArrayToJSON([]string{"wiring", "motor repair"})))
}

func TestTimePtr(t *testing.T) {
	assert.Nil(t, TimePtr(time.Time{}))

	now := time.Now()
	got := TimePtr(now)
	if assert.NotNil(t, got) {
		assert.Equal(t, now, *got)
	}
}
