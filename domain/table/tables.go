package table

import (
	"flowform/bizerror"
	"flowform/domain/field"
	"flowform/idgen"
	"flowform/persistence"
	"flowform/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	tableIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	QueryTablesFunc  = QueryTables
	DetailTableFunc  = DetailTable
	CreateTableFunc  = CreateTable
	UpdateTableFunc  = UpdateTable
	ArchiveTableFunc = ArchiveTable
)

type TableCreation struct {
	Name        string `json:"name" binding:"required,lte=64"`
	Label       string `json:"label" binding:"required,lte=255"`
	Description string `json:"description"`

	FieldIDs FieldIDList `json:"fieldIds" binding:"required,min=1"`
}

type TableUpdating struct {
	Label       string `json:"label" binding:"required,lte=255"`
	Description string `json:"description"`

	FieldIDs FieldIDList `json:"fieldIds" binding:"required,min=1"`
}

type TableQuery struct {
	IncludeArchived bool `json:"includeArchived" form:"includeArchived"`
}

func QueryTables(q TableQuery, s *session.Session) ([]DynamicTable, error) {
	records := []DynamicTable{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)

	query := db.Order("name ASC")
	if !q.IncludeArchived {
		query = query.Where("is_archived = ?", false)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func DetailTable(id types.ID, s *session.Session) (*TableDetail, error) {
	detail := TableDetail{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&DynamicTable{ID: id}).First(&detail.DynamicTable).Error; err != nil {
			return err
		}
		fields, err := field.LoadFieldsByIds(detail.FieldIDs, tx)
		if err != nil {
			return err
		}
		detail.Fields = fields
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func CreateTable(c *TableCreation, s *session.Session) (*DynamicTable, error) {
	if !s.Identity.Role.IsAdministrator() {
		return nil, bizerror.ErrForbidden
	}

	now := types.CurrentTimestamp()
	record := DynamicTable{
		ID:          idgen.NextID(tableIdWorker),
		Name:        c.Name,
		Label:       c.Label,
		Description: c.Description,
		FieldIDs:    c.FieldIDs,
		CreateTime:  now,
		UpdateTime:  now,
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := checkComposableFields(record.FieldIDs, nil, tx); err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func UpdateTable(id types.ID, u *TableUpdating, s *session.Session) (*DynamicTable, error) {
	if !s.Identity.Role.IsAdministrator() {
		return nil, bizerror.ErrForbidden
	}

	record := DynamicTable{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&DynamicTable{ID: id}).First(&record).Error; err != nil {
			return err
		}
		// archived fields already on the table stay referable, only newly
		// added ones must be available for composition
		if err := checkComposableFields(u.FieldIDs, record.FieldIDs, tx); err != nil {
			return err
		}

		record.Label = u.Label
		record.Description = u.Description
		record.FieldIDs = u.FieldIDs
		record.UpdateTime = types.CurrentTimestamp()

		return tx.Model(&DynamicTable{}).Where(&DynamicTable{ID: id}).Update(map[string]interface{}{
			"label":       record.Label,
			"description": record.Description,
			"field_ids":   record.FieldIDs,
			"update_time": record.UpdateTime,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func ArchiveTable(id types.ID, archived bool, s *session.Session) error {
	if !s.Identity.Role.IsAdministrator() {
		return bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	return db.Transaction(func(tx *gorm.DB) error {
		record := DynamicTable{ID: id}
		if err := tx.Where(&record).First(&record).Error; err != nil {
			return err
		}
		return tx.Model(&record).
			Update(map[string]interface{}{"is_archived": archived, "update_time": types.CurrentTimestamp()}).Error
	})
}

func checkComposableFields(wanted FieldIDList, existing FieldIDList, tx *gorm.DB) error {
	if len(wanted) == 0 {
		return bizerror.ErrEmptyComposition
	}

	kept := map[types.ID]bool{}
	for _, id := range existing {
		kept[id] = true
	}

	fields, err := field.LoadFieldsByIds(wanted, tx)
	if err != nil {
		return err
	}
	index := map[types.ID]field.DynamicField{}
	for _, f := range fields {
		index[f.ID] = f
	}

	for _, id := range wanted {
		f, found := index[id]
		if !found {
			return bizerror.ErrNotFound
		}
		if f.IsArchived && !kept[id] {
			return bizerror.ErrArchived
		}
	}
	return nil
}
