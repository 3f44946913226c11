package template

import (
	"flowform/bizerror"
	"flowform/idgen"
	"flowform/persistence"
	"flowform/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

type WorkflowTemplateCreation struct {
	Name        string `json:"name" binding:"required,lte=255"`
	Description string `json:"description"`

	TaskTemplateIDs []types.ID `json:"taskTemplateIds" binding:"required,gt=0"`
}

type WorkflowTemplateUpdating struct {
	Name        string `json:"name" binding:"required,lte=255"`
	Description string `json:"description"`

	TaskTemplateIDs []types.ID `json:"taskTemplateIds" binding:"required,gt=0"`
}

type WorkflowTemplateQuery struct {
	IncludeArchived bool `form:"includeArchived"`
}

var (
	workflowTemplateIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	QueryWorkflowTemplatesFunc  = QueryWorkflowTemplates
	DetailWorkflowTemplateFunc  = DetailWorkflowTemplate
	CreateWorkflowTemplateFunc  = CreateWorkflowTemplate
	UpdateWorkflowTemplateFunc  = UpdateWorkflowTemplate
	ArchiveWorkflowTemplateFunc = ArchiveWorkflowTemplate
)

func QueryWorkflowTemplates(q WorkflowTemplateQuery, s *session.Session) ([]WorkflowTemplate, error) {
	var records []WorkflowTemplate
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	query := db.Model(&WorkflowTemplate{})
	if !q.IncludeArchived {
		query = query.Where("is_archived = ?", false)
	}
	if err := query.Order("create_time asc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func DetailWorkflowTemplate(id types.ID, s *session.Session) (*WorkflowTemplateDetail, error) {
	detail := WorkflowTemplateDetail{}
	err := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&detail.WorkflowTemplate).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return bizerror.ErrNotFound
			}
			return err
		}
		taskTemplates, err := LoadTaskTemplatesByIds(detail.TaskTemplateIDs, tx)
		if err != nil {
			return err
		}
		detail.TaskTemplates = taskTemplates
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func CreateWorkflowTemplate(c WorkflowTemplateCreation, s *session.Session) (*WorkflowTemplate, error) {
	if !s.Identity.Role.IsAdministrator() {
		return nil, bizerror.ErrForbidden
	}

	now := types.CurrentTimestamp()
	record := WorkflowTemplate{
		ID:              idgen.NextID(workflowTemplateIdWorker),
		Name:            c.Name,
		Description:     c.Description,
		TaskTemplateIDs: c.TaskTemplateIDs,
		CreateTime:      now,
		UpdateTime:      now,
	}

	err := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := checkComposableTaskTemplates(record.TaskTemplateIDs, nil, tx); err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func UpdateWorkflowTemplate(id types.ID, u WorkflowTemplateUpdating, s *session.Session) (*WorkflowTemplate, error) {
	if !s.Identity.Role.IsAdministrator() {
		return nil, bizerror.ErrForbidden
	}

	record := WorkflowTemplate{}
	err := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&record).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return bizerror.ErrNotFound
			}
			return err
		}
		if err := checkComposableTaskTemplates(u.TaskTemplateIDs, record.TaskTemplateIDs, tx); err != nil {
			return err
		}

		changes := map[string]interface{}{
			"name": u.Name, "description": u.Description,
			"task_template_ids": TaskTemplateIDList(u.TaskTemplateIDs),
			"update_time":       types.CurrentTimestamp(),
		}
		db := tx.Model(&WorkflowTemplate{}).Where(&WorkflowTemplate{ID: id}).Update(changes)
		if db.Error != nil {
			return db.Error
		}
		return tx.Where("id = ?", id).First(&record).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func ArchiveWorkflowTemplate(id types.ID, archived bool, s *session.Session) error {
	if !s.Identity.Role.IsAdministrator() {
		return bizerror.ErrForbidden
	}

	return persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		record := WorkflowTemplate{}
		if err := tx.Where("id = ?", id).First(&record).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return bizerror.ErrNotFound
			}
			return err
		}
		if record.IsArchived == archived {
			return nil
		}
		return tx.Model(&WorkflowTemplate{}).Where(&WorkflowTemplate{ID: id}).
			Update(map[string]interface{}{"is_archived": archived, "update_time": types.CurrentTimestamp()}).Error
	})
}

// LoadTaskTemplatesByIds resolves task templates in the order of the given ids,
// archived templates included so that existing compositions keep resolving.
func LoadTaskTemplatesByIds(ids []types.ID, tx *gorm.DB) ([]TaskTemplate, error) {
	if len(ids) == 0 {
		return []TaskTemplate{}, nil
	}
	var records []TaskTemplate
	if err := tx.Where("id IN (?)", ids).Find(&records).Error; err != nil {
		return nil, err
	}
	byId := map[types.ID]TaskTemplate{}
	for _, r := range records {
		byId[r.ID] = r
	}
	ordered := make([]TaskTemplate, 0, len(ids))
	for _, id := range ids {
		if r, found := byId[id]; found {
			ordered = append(ordered, r)
		}
	}
	return ordered, nil
}

func checkComposableTaskTemplates(wanted []types.ID, current TaskTemplateIDList, tx *gorm.DB) error {
	if len(wanted) == 0 {
		return bizerror.ErrEmptyComposition
	}
	currentSet := map[types.ID]bool{}
	for _, id := range current {
		currentSet[id] = true
	}
	records, err := LoadTaskTemplatesByIds(wanted, tx)
	if err != nil {
		return err
	}
	resolved := map[types.ID]TaskTemplate{}
	for _, r := range records {
		resolved[r.ID] = r
	}
	for _, id := range wanted {
		r, found := resolved[id]
		if !found {
			return bizerror.ErrNotFound
		}
		// templates already in the composition may stay archived
		if r.IsArchived && !currentSet[id] {
			return bizerror.ErrArchived
		}
	}
	return nil
}
