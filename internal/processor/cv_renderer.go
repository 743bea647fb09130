package processor

import (
	"fmt"
	"html/template"
	"strings"

	"onboard-agent-go/internal/types"
)

// indianCities 展示清洗用的城市白名单，命中即取Title Case城市名
var indianCities = map[string]string{
	"delhi":         "Delhi",
	"new delhi":     "New Delhi",
	"mumbai":        "Mumbai",
	"pune":          "Pune",
	"bangalore":     "Bangalore",
	"bengaluru":     "Bangalore",
	"hyderabad":     "Hyderabad",
	"chennai":       "Chennai",
	"kolkata":       "Kolkata",
	"gurgaon":       "Gurgaon",
	"gurugram":      "Gurgaon",
	"noida":         "Noida",
	"greater noida": "Greater Noida",
	"faridabad":     "Faridabad",
	"ghaziabad":     "Ghaziabad",
	"jaipur":        "Jaipur",
	"lucknow":       "Lucknow",
	"kanpur":        "Kanpur",
	"patna":         "Patna",
	"ahmedabad":     "Ahmedabad",
	"surat":         "Surat",
	"indore":        "Indore",
	"bhopal":        "Bhopal",
	"nagpur":        "Nagpur",
	"chandigarh":    "Chandigarh",
}

// hinglishFillers 转写里常见的口语填充词，清洗地点时剔除
var hinglishFillers = map[string]struct{}{
	"mein":  {},
	"me":    {},
	"hun":   {},
	"hoon":  {},
	"abhi":  {},
	"se":    {},
	"ka":    {},
	"ki":    {},
	"ke":    {},
	"hai":   {},
	"main":  {},
	"wala":  {},
	"side":  {},
	"area":  {},
	"sector": {},
}

// CleanLocationForDisplay 把LLM提取出的地点清洗成可展示的城市名
// 优先命中城市白名单，否则剔除口语填充词，都不行时原样裁剪返回
func CleanLocationForDisplay(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	lower := strings.ToLower(trimmed)
	for key, display := range indianCities {
		if strings.Contains(lower, key) {
			return display
		}
	}

	var kept []string
	for _, word := range strings.Fields(trimmed) {
		if _, filler := hinglishFillers[strings.ToLower(word)]; filler {
			continue
		}
		if len(word) > 2 {
			kept = append(kept, word)
		}
	}
	if len(kept) > 0 {
		return strings.Join(kept, " ")
	}
	return trimmed
}

// SanitizeNameForFilename 生成下载文件名用的姓名：保留字母数字，空格转下划线
func SanitizeNameForFilename(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "Worker"
	}
	return b.String()
}

// capitalizeSkill 技能词首字母大写
func capitalizeSkill(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// displaySkills 技能列表去空、首字母大写、截断到上限
func displaySkills(items []string, max int) []string {
	var out []string
	for _, item := range items {
		display := capitalizeSkill(item)
		if display == "" {
			continue
		}
		out = append(out, display)
		if len(out) >= max {
			break
		}
	}
	return out
}

// cvTemplateData 模板渲染输入
type cvTemplateData struct {
	FirstName       string
	RestName        string
	Mobile          string
	DOB             string
	Address         string
	PrimarySkill    string
	ExperienceText  string
	Skills          []string
	Tools           []string
	Location        string
	Availability    string
	Workplaces      []types.WorkplaceEntry
	Education       []types.CVEducationRow
	HasEducation    bool
	HasExperience   bool
}

var cvHTMLTemplate = template.Must(template.New("cv").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.FirstName}} {{.RestName}} - Resume</title>
<style>
  body { font-family: 'Segoe UI', Arial, sans-serif; margin: 0; color: #2b2b2b; }
  .header { background: #1a4f8b; color: #fff; padding: 28px 36px; }
  .header h1 { margin: 0; font-size: 30px; font-weight: 300; }
  .header h1 b { font-weight: 700; }
  .header .skill { margin-top: 6px; font-size: 16px; opacity: 0.9; }
  .section { padding: 16px 36px; }
  .section h2 { font-size: 15px; letter-spacing: 1px; text-transform: uppercase; color: #1a4f8b; border-bottom: 2px solid #1a4f8b; padding-bottom: 4px; }
  .tags span { display: inline-block; background: #eef3fa; border: 1px solid #c5d5ea; border-radius: 12px; padding: 3px 10px; margin: 3px; font-size: 13px; }
  table { width: 100%; border-collapse: collapse; font-size: 14px; }
  th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #ddd; }
  .verified { color: #217a3c; font-size: 12px; }
  .meta { font-size: 14px; line-height: 1.6; }
  .note { font-size: 11px; color: #888; }
</style>
</head>
<body>
<div class="header">
  <h1>{{.FirstName}} <b>{{.RestName}}</b></h1>
  {{if .PrimarySkill}}<div class="skill">{{.PrimarySkill}}{{if .ExperienceText}} &middot; {{.ExperienceText}}{{end}}</div>{{end}}
</div>
<div class="section meta">
  {{if .Mobile}}<div>Mobile: {{.Mobile}}</div>{{end}}
  {{if .DOB}}<div>Date of Birth: {{.DOB}}</div>{{end}}
  {{if .Location}}<div>Location: {{.Location}}</div>{{end}}
  {{if .Address}}<div>Address: {{.Address}}</div>{{end}}
  {{if .Availability}}<div>Availability: {{.Availability}}</div>{{end}}
</div>
{{if .Skills}}
<div class="section">
  <h2>Skills</h2>
  <div class="tags">{{range .Skills}}<span>{{.}}</span>{{end}}</div>
  <div class="note">Self-declared</div>
</div>
{{end}}
{{if .Tools}}
<div class="section">
  <h2>Tools</h2>
  <div class="tags">{{range .Tools}}<span>{{.}}</span>{{end}}</div>
  <div class="note">Self-declared</div>
</div>
{{end}}
{{if .HasExperience}}
<div class="section">
  <h2>Work History</h2>
  <table>
    <tr><th>Workplace</th><th>Location</th><th>Duration</th></tr>
    {{range .Workplaces}}<tr><td>{{.WorkplaceName}}</td><td>{{.WorkLocation}}</td><td>{{.WorkDuration}}</td></tr>
    {{end}}
  </table>
</div>
{{end}}
{{if .HasEducation}}
<div class="section">
  <h2>Education</h2>
  <table>
    <tr><th>Qualification</th><th>Board</th><th>Year</th><th>School</th><th>Marks</th><th></th></tr>
    {{range .Education}}<tr><td>{{.Qualification}}</td><td>{{.Board}}</td><td>{{.YearOfPassing}}</td><td>{{.SchoolName}}</td><td>{{.Marks}}</td><td>{{if .Verified}}<span class="verified">&#10003; Verified</span>{{end}}</td></tr>
    {{end}}
  </table>
</div>
{{end}}
</body>
</html>
`))

// buildCVData 把领域数据拼成模板输入
func buildCVData(personal types.CVPersonal, experience *types.ExperienceProfile, months int, education []types.CVEducationRow) cvTemplateData {
	firstName := strings.TrimSpace(personal.Name)
	restName := ""
	if idx := strings.Index(firstName, " "); idx > 0 {
		restName = strings.TrimSpace(firstName[idx+1:])
		firstName = firstName[:idx]
	}

	data := cvTemplateData{
		FirstName: firstName,
		RestName:  restName,
		Mobile:    personal.Mobile,
		DOB:       personal.DOB,
		Address:   personal.Address,
		Education: education,
	}
	data.HasEducation = len(education) > 0

	if experience != nil {
		data.PrimarySkill = capitalizeSkill(experience.PrimarySkill)
		data.Skills = displaySkills(experience.Skills, 15)
		data.Tools = displaySkills(experience.Tools, 15)
		data.Location = CleanLocationForDisplay(experience.PreferredLocation)
		if data.Location == "" {
			data.Location = CleanLocationForDisplay(experience.CurrentLocation)
		}
		data.Availability = experience.Availability
		data.Workplaces = experience.Workplaces
		data.HasExperience = len(experience.Workplaces) > 0

		// 有月数时优先展示月数换算的年限
		if months > 0 {
			data.ExperienceText = fmt.Sprintf("%.1f years experience", ExperienceYearsFloat(months))
		} else if experience.ExperienceYears > 0 {
			data.ExperienceText = fmt.Sprintf("%.1f years experience", experience.ExperienceYears)
		}
	}

	return data
}

// RenderHTML 渲染CV的HTML版本
func RenderHTML(personal types.CVPersonal, experience *types.ExperienceProfile, months int, education []types.CVEducationRow) (string, error) {
	if strings.TrimSpace(personal.Name) == "" {
		return "", fmt.Errorf("渲染CV需要工人姓名")
	}

	var b strings.Builder
	if err := cvHTMLTemplate.Execute(&b, buildCVData(personal, experience, months, education)); err != nil {
		return "", fmt.Errorf("渲染CV HTML失败: %w", err)
	}
	return b.String(), nil
}

// RenderText 渲染CV的纯文本版本，供搜索与调试使用
func RenderText(personal types.CVPersonal, experience *types.ExperienceProfile, months int, education []types.CVEducationRow) string {
	data := buildCVData(personal, experience, months, education)

	var b strings.Builder
	b.WriteString(strings.TrimSpace(data.FirstName + " " + data.RestName))
	b.WriteString("\n")
	if data.PrimarySkill != "" {
		b.WriteString(data.PrimarySkill)
		if data.ExperienceText != "" {
			b.WriteString(" | " + data.ExperienceText)
		}
		b.WriteString("\n")
	}
	if data.Mobile != "" {
		b.WriteString("Mobile: " + data.Mobile + "\n")
	}
	if data.DOB != "" {
		b.WriteString("Date of Birth: " + data.DOB + "\n")
	}
	if data.Location != "" {
		b.WriteString("Location: " + data.Location + "\n")
	}
	if data.Address != "" {
		b.WriteString("Address: " + data.Address + "\n")
	}
	if len(data.Skills) > 0 {
		b.WriteString("Skills: " + strings.Join(data.Skills, ", ") + "\n")
	}
	if len(data.Tools) > 0 {
		b.WriteString("Tools: " + strings.Join(data.Tools, ", ") + "\n")
	}
	if data.HasExperience {
		b.WriteString("Work History:\n")
		for _, wp := range data.Workplaces {
			line := "  - " + wp.WorkplaceName
			if wp.WorkLocation != "" {
				line += ", " + wp.WorkLocation
			}
			if wp.WorkDuration != "" {
				line += " (" + wp.WorkDuration + ")"
			}
			b.WriteString(line + "\n")
		}
	}
	if data.HasEducation {
		b.WriteString("Education:\n")
		for _, row := range data.Education {
			line := "  - " + row.Qualification
			if row.Board != "" {
				line += ", " + row.Board
			}
			if row.YearOfPassing != "" {
				line += " (" + row.YearOfPassing + ")"
			}
			if row.Verified {
				line += " [verified]"
			}
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}
