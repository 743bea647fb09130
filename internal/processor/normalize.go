package processor

import (
	"fmt"
	"strconv"
	"strings"
)

// NormalizeName 将证件姓名规范化为大写拉丁字母加空格
// OCR噪声、标点和非拉丁字符全部剔除，多余空白折叠
func NormalizeName(raw string) string {
	upper := strings.ToUpper(raw)

	var b strings.Builder
	for _, r := range upper {
		if (r >= 'A' && r <= 'Z') || r == ' ' {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeDate 将日期规范化为 DD-MM-YYYY
// 支持 / . 空格 作为分隔符；YYYY-MM-DD 会被调换顺序；两位年份按>50回退到19xx
// 无法规范化时原样返回，调用方以"不是DD-MM-YYYY"判断失败
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}

	replacer := strings.NewReplacer("/", "-", ".", "-", " ", "-")
	s = replacer.Replace(s)

	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return raw
	}

	day, month, year := parts[0], parts[1], parts[2]

	// 前导四位数字说明输入是 YYYY-MM-DD
	if len(day) == 4 {
		if _, err := strconv.Atoi(day); err == nil {
			day, year = parts[2], parts[0]
		}
	}

	dayN, errD := strconv.Atoi(day)
	monthN, errM := strconv.Atoi(month)
	if errD != nil || errM != nil {
		return raw
	}

	// 两位年份：大于50回退到19xx，否则推到20xx
	if len(year) == 2 {
		yearN, err := strconv.Atoi(year)
		if err != nil {
			return raw
		}
		if yearN > 50 {
			year = "19" + year
		} else {
			year = "20" + year
		}
	}
	if _, err := strconv.Atoi(year); err != nil {
		return raw
	}

	return fmt.Sprintf("%02d-%02d-%s", dayN, monthN, year)
}
