package models

import (
	"encoding/json"

	"onboard-agent-go/internal/types"

	"gorm.io/datatypes"
)

// EducationalPathList 解析Worker上的学历证件对象键数组
// 字段为空或损坏时返回空切片，调用方无需判空
func (w *Worker) EducationalPathList() []string {
	var paths []string
	if len(w.EducationalDocumentPaths) > 0 {
		_ = json.Unmarshal(w.EducationalDocumentPaths, &paths)
	}
	if paths == nil {
		paths = []string{}
	}
	return paths
}

// SetEducationalPaths 覆盖写入学历证件对象键数组
func (w *Worker) SetEducationalPaths(paths []string) error {
	data, err := json.Marshal(paths)
	if err != nil {
		return err
	}
	w.EducationalDocumentPaths = datatypes.JSON(data)
	return nil
}

// PersonalIdentity 返回个人证件抽取出的身份信息（已规范化）
func (w *Worker) PersonalIdentity() types.Identity {
	return types.Identity{
		Name: w.PersonalExtractedName,
		DOB:  w.PersonalExtractedDOB,
	}
}

// DocumentIdentity 返回该学历证件的身份比对视图
func (d *EducationalDocument) DocumentIdentity() types.DocumentIdentity {
	return types.DocumentIdentity{
		DocumentID:    uint(d.ID),
		Qualification: d.Qualification,
		Name:          d.ExtractedName,
		DOB:           d.ExtractedDOB,
	}
}

// WorkplaceEntries 解析工作经验记录中的工作地点JSON数组
func (e *WorkExperience) WorkplaceEntries() []types.WorkplaceEntry {
	var entries []types.WorkplaceEntry
	if len(e.Workplaces) > 0 {
		_ = json.Unmarshal(e.Workplaces, &entries)
	}
	return entries
}

// SetWorkplaces 序列化并写入工作地点数组
func (e *WorkExperience) SetWorkplaces(entries []types.WorkplaceEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	e.Workplaces = datatypes.JSON(data)
	return nil
}

// ToJSON 把任意领域结构序列化为datatypes.JSON，失败时返回空JSON对象
func ToJSON(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(data)
}
