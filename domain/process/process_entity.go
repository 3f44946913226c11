package process

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"flowform/domain/state"
	"flowform/domain/table"

	"github.com/fundwit/go-commons/types"
)

type WorkflowInstance struct {
	ID types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`

	Name               string               `json:"name" binding:"required,lte=255"`
	WorkflowTemplateID types.ID             `json:"workflowTemplateId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	Status             state.InstanceStatus `json:"status"`

	StartedByUserID types.ID        `json:"startedByUserId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	StartDatetime   types.Timestamp `json:"startDatetime" sql:"type:DATETIME(6) NOT NULL"`
	FinishDatetime  types.Timestamp `json:"finishDatetime" sql:"type:DATETIME(6)"`

	// chosen table-entry association per dynamic table, fixed at creation
	AssociatedData AssociationMap `json:"associatedData" gorm:"column:associated_data" sql:"type:VARCHAR(2048)"`

	IsArchived bool `json:"isArchived"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (r *WorkflowInstance) TableName() string {
	return "workflow_instances"
}

type Task struct {
	ID types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`

	Name               string   `json:"name"`
	TaskTemplateID     types.ID `json:"taskTemplateId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	WorkflowInstanceID types.ID `json:"workflowInstanceId" gorm:"index:idx_task_instance" sql:"type:BIGINT UNSIGNED NOT NULL"`

	AssignedToUserID types.ID         `json:"assignedToUserId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	Status           state.TaskStatus `json:"status"`

	DueDate        types.Timestamp `json:"dueDate" sql:"type:DATETIME(6)"`
	StartDatetime  types.Timestamp `json:"startDatetime" sql:"type:DATETIME(6)"`
	FinishDatetime types.Timestamp `json:"finishDatetime" sql:"type:DATETIME(6)"`

	Notes string `json:"notes" sql:"type:TEXT"`

	// working copy of the form, detached from the source entry at creation
	DynamicTableID   types.ID      `json:"dynamicTableId" sql:"type:BIGINT UNSIGNED NOT NULL"`
	DynamicTableData table.RowData `json:"dynamicTableData" gorm:"column:dynamic_table_data" sql:"type:TEXT"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (r *Task) TableName() string {
	return "tasks"
}

type InstanceDetail struct {
	WorkflowInstance

	Tasks []Task `json:"tasks" gorm:"-"`
	// display names of the starter and task assignees, keyed by user id
	AssigneeNames map[types.ID]string `json:"assigneeNames" gorm:"-"`
}

// AssociationMap maps a dynamic table id to the entry chosen for it.
type AssociationMap map[types.ID]types.ID

func (t AssociationMap) Value() (driver.Value, error) {
	jsonBytes, err := json.Marshal(&t)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (c *AssociationMap) Scan(v interface{}) error {
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
