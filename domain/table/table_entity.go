package table

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"flowform/domain/field"

	"github.com/fundwit/go-commons/types"
)

type DynamicTable struct {
	ID types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`

	Name        string `json:"name" binding:"required,lte=64" gorm:"unique_index:uni_table_name"`
	Label       string `json:"label" binding:"required,lte=255"`
	Description string `json:"description"`

	// FieldIDs order is the display and form order
	FieldIDs FieldIDList `json:"fieldIds" gorm:"column:field_ids" sql:"type:VARCHAR(2048)"`

	IsArchived bool `json:"isArchived"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (r *DynamicTable) TableName() string {
	return "dynamic_tables"
}

type TableDetail struct {
	DynamicTable

	Fields []field.DynamicField `json:"fields" gorm:"-"`
}

type FieldIDList []types.ID

func (t FieldIDList) Value() (driver.Value, error) {
	jsonBytes, err := json.Marshal(&t)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (c *FieldIDList) Scan(v interface{}) error {
	return scanJSONColumn(v, c)
}

// RowData maps field names to stored values: scalars, string arrays, or
// storage-path strings for document fields.
type RowData map[string]interface{}

func (t RowData) Value() (driver.Value, error) {
	jsonBytes, err := json.Marshal(&t)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (c *RowData) Scan(v interface{}) error {
	return scanJSONColumn(v, c)
}

type TableEntry struct {
	ID      types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	TableID types.ID `json:"tableId" gorm:"index:idx_entry_table" sql:"type:BIGINT UNSIGNED NOT NULL"`

	Data RowData `json:"data" sql:"type:TEXT"`

	IsArchived bool `json:"isArchived"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (r *TableEntry) TableName() string {
	return "dynamic_table_entries"
}

func scanJSONColumn(v interface{}, target interface{}) error {
	jsonString, ok := v.(string)
	if !ok {
		jsonByte, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("type is neither string nor []byte: %T %v", v, v)
		}
		jsonString = string(jsonByte)
	}
	return json.Unmarshal([]byte(jsonString), target)
}
