package template

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"flowform/authority"

	"github.com/fundwit/go-commons/types"
)

type TaskTemplate struct {
	ID types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`

	Name        string `json:"name" binding:"required,lte=255"`
	Description string `json:"description"`
	Category    string `json:"category"`

	AssignedRoleType  authority.Role `json:"assignedRoleType"`
	DueDateOffsetDays *int           `json:"dueDateOffsetDays"`

	// optional schema attached to tasks materialized from this template
	DynamicTableID types.ID `json:"dynamicTableId" sql:"type:BIGINT UNSIGNED NOT NULL"`

	IsArchived bool `json:"isArchived"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (r *TaskTemplate) TableName() string {
	return "task_templates"
}

type WorkflowTemplate struct {
	ID types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`

	Name        string `json:"name" binding:"required,lte=255"`
	Description string `json:"description"`

	// TaskTemplateIDs order is the execution and display sequence
	TaskTemplateIDs TaskTemplateIDList `json:"taskTemplateIds" gorm:"column:task_template_ids" sql:"type:VARCHAR(2048)"`

	IsArchived bool `json:"isArchived"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (r *WorkflowTemplate) TableName() string {
	return "workflow_templates"
}

type WorkflowTemplateDetail struct {
	WorkflowTemplate

	TaskTemplates []TaskTemplate `json:"taskTemplates" gorm:"-"`
}

type TaskTemplateIDList []types.ID

func (t TaskTemplateIDList) Value() (driver.Value, error) {
	jsonBytes, err := json.Marshal(&t)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (c *TaskTemplateIDList) Scan(v interface{}) error {
	jsonString, ok := v.(string)
	if !ok {
		jsonByte, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("type is neither string nor []byte: %T %v", v, v)
		}
		jsonString = string(jsonByte)
	}
	return json.Unmarshal([]byte(jsonString), c)
}
