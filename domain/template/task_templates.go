package template

import (
	"time"

	"flowform/authority"
	"flowform/bizerror"
	"flowform/domain/table"
	"flowform/idgen"
	"flowform/persistence"
	"flowform/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

type TaskTemplateCreation struct {
	Name        string `json:"name" binding:"required,lte=255"`
	Description string `json:"description"`
	Category    string `json:"category"`

	AssignedRoleType  string   `json:"assignedRoleType" binding:"omitempty,oneof=Administrator TaskExecutor StandardUser"`
	DueDateOffsetDays *int     `json:"dueDateOffsetDays"`
	DynamicTableID    types.ID `json:"dynamicTableId"`
}

type TaskTemplateUpdating struct {
	Name        string `json:"name" binding:"required,lte=255"`
	Description string `json:"description"`
	Category    string `json:"category"`

	AssignedRoleType  string   `json:"assignedRoleType" binding:"omitempty,oneof=Administrator TaskExecutor StandardUser"`
	DueDateOffsetDays *int     `json:"dueDateOffsetDays"`
	DynamicTableID    types.ID `json:"dynamicTableId"`
}

type TaskTemplateQuery struct {
	Category        string `form:"category"`
	IncludeArchived bool   `form:"includeArchived"`
}

var (
	taskTemplateIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	QueryTaskTemplatesFunc  = QueryTaskTemplates
	DetailTaskTemplateFunc  = DetailTaskTemplate
	CreateTaskTemplateFunc  = CreateTaskTemplate
	UpdateTaskTemplateFunc  = UpdateTaskTemplate
	ArchiveTaskTemplateFunc = ArchiveTaskTemplate
)

func QueryTaskTemplates(q TaskTemplateQuery, s *session.Session) ([]TaskTemplate, error) {
	var records []TaskTemplate
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	query := db.Model(&TaskTemplate{})
	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}
	if !q.IncludeArchived {
		query = query.Where("is_archived = ?", false)
	}
	if err := query.Order("create_time asc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func DetailTaskTemplate(id types.ID, s *session.Session) (*TaskTemplate, error) {
	record := TaskTemplate{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Where(&TaskTemplate{ID: id}).First(&record).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func CreateTaskTemplate(c TaskTemplateCreation, s *session.Session) (*TaskTemplate, error) {
	if !s.Identity.Role.IsAdministrator() {
		return nil, bizerror.ErrForbidden
	}

	now := types.CurrentTimestamp()
	record := TaskTemplate{
		ID:                idgen.NextID(taskTemplateIdWorker),
		Name:              c.Name,
		Description:       c.Description,
		Category:          c.Category,
		AssignedRoleType:  authority.Role(c.AssignedRoleType),
		DueDateOffsetDays: c.DueDateOffsetDays,
		DynamicTableID:    c.DynamicTableID,
		CreateTime:        now,
		UpdateTime:        now,
	}

	err := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := checkTableReference(record.DynamicTableID, tx); err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func UpdateTaskTemplate(id types.ID, u TaskTemplateUpdating, s *session.Session) (*TaskTemplate, error) {
	if !s.Identity.Role.IsAdministrator() {
		return nil, bizerror.ErrForbidden
	}

	record := TaskTemplate{}
	err := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&TaskTemplate{ID: id}).First(&record).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return bizerror.ErrNotFound
			}
			return err
		}
		// a table newly referenced must exist and not be archived
		if u.DynamicTableID != record.DynamicTableID {
			if err := checkTableReference(u.DynamicTableID, tx); err != nil {
				return err
			}
		}

		changes := map[string]interface{}{
			"name": u.Name, "description": u.Description, "category": u.Category,
			"assigned_role_type": u.AssignedRoleType, "due_date_offset_days": u.DueDateOffsetDays,
			"dynamic_table_id": u.DynamicTableID, "update_time": types.CurrentTimestamp(),
		}
		db := tx.Model(&TaskTemplate{}).Where(&TaskTemplate{ID: id}).Update(changes)
		if db.Error != nil {
			return db.Error
		}
		return tx.Where(&TaskTemplate{ID: id}).First(&record).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func ArchiveTaskTemplate(id types.ID, archived bool, s *session.Session) error {
	if !s.Identity.Role.IsAdministrator() {
		return bizerror.ErrForbidden
	}

	return persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		record := TaskTemplate{}
		if err := tx.Where(&TaskTemplate{ID: id}).First(&record).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return bizerror.ErrNotFound
			}
			return err
		}
		if record.IsArchived == archived {
			return nil
		}
		return tx.Model(&TaskTemplate{}).Where(&TaskTemplate{ID: id}).
			Update(map[string]interface{}{"is_archived": archived, "update_time": types.CurrentTimestamp()}).Error
	})
}

func checkTableReference(tableId types.ID, tx *gorm.DB) error {
	if tableId == 0 {
		return nil
	}
	record := table.DynamicTable{}
	if err := tx.Where("id = ?", tableId).First(&record).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return bizerror.ErrNotFound
		}
		return err
	}
	if record.IsArchived {
		return bizerror.ErrArchived
	}
	return nil
}

// DueDateOf computes a task due date from the template offset, zero when no offset is set.
func (r *TaskTemplate) DueDateOf(start types.Timestamp) types.Timestamp {
	if r.DueDateOffsetDays == nil {
		return types.Timestamp{}
	}
	d := time.Duration(*r.DueDateOffsetDays) * 24 * time.Hour
	return types.Timestamp(start.Time().Add(d))
}
