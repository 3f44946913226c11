package process

import (
	"flowform/account"
	"flowform/bizerror"
	"flowform/domain/state"
	"flowform/domain/table"
	"flowform/domain/template"
	"flowform/event"
	"flowform/idgen"
	"flowform/persistence"
	"flowform/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

type InstanceCreation struct {
	Name               string   `json:"name" binding:"required,lte=255"`
	WorkflowTemplateID types.ID `json:"workflowTemplateId" binding:"required"`

	// table id -> entry id chosen as the working data source
	AssociatedData map[types.ID]types.ID `json:"associatedData"`
	// task template id -> user id
	Assignments map[types.ID]types.ID `json:"assignments"`
}

type InstanceQuery struct {
	Status          string `form:"status"`
	TemplateID      string `form:"templateId"`
	IncludeArchived bool   `form:"includeArchived"`
}

var (
	instanceIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	QueryInstancesFunc    = QueryInstances
	DetailInstanceFunc    = DetailInstance
	CreateInstanceFunc    = CreateInstance
	ArchiveInstanceFunc   = ArchiveInstance
	QueryAccountNamesFunc = account.QueryAccountNames
)

func QueryInstances(q InstanceQuery, s *session.Session) ([]WorkflowInstance, error) {
	var records []WorkflowInstance
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	query := db.Model(&WorkflowInstance{})
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.TemplateID != "" {
		templateId, err := types.ParseID(q.TemplateID)
		if err != nil {
			return nil, &bizerror.ErrBadParam{Cause: err}
		}
		query = query.Where("workflow_template_id = ?", templateId)
	}
	if !q.IncludeArchived {
		query = query.Where("is_archived = ?", false)
	}
	if err := query.Order("start_datetime desc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func DetailInstance(id types.ID, s *session.Session) (*InstanceDetail, error) {
	detail := InstanceDetail{}
	err := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&detail.WorkflowInstance).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return bizerror.ErrNotFound
			}
			return err
		}
		var tasks []Task
		if err := tx.Where("workflow_instance_id = ?", id).Order("create_time asc").Find(&tasks).Error; err != nil {
			return err
		}
		detail.Tasks = tasks
		return nil
	})
	if err != nil {
		return nil, err
	}
	resolveDisplayedStatuses(detail.Tasks)

	names, err := QueryAccountNamesFunc(collectAssigneeIds(&detail), s)
	if err != nil {
		return nil, err
	}
	detail.AssigneeNames = names
	return &detail, nil
}

func collectAssigneeIds(detail *InstanceDetail) []types.ID {
	seen := map[types.ID]bool{}
	var ids []types.ID
	if detail.StartedByUserID != 0 {
		seen[detail.StartedByUserID] = true
		ids = append(ids, detail.StartedByUserID)
	}
	for _, task := range detail.Tasks {
		if task.AssignedToUserID == 0 || seen[task.AssignedToUserID] {
			continue
		}
		seen[task.AssignedToUserID] = true
		ids = append(ids, task.AssignedToUserID)
	}
	return ids
}

// CreateInstance materializes a workflow template: the Active instance record
// plus one Pending task per non-archived task template, in one transaction.
func CreateInstance(c InstanceCreation, s *session.Session) (*InstanceDetail, error) {
	now := types.CurrentTimestamp()
	detail := &InstanceDetail{
		WorkflowInstance: WorkflowInstance{
			ID:                 idgen.NextID(instanceIdWorker),
			Name:               c.Name,
			WorkflowTemplateID: c.WorkflowTemplateID,
			Status:             state.InstanceActive,
			StartedByUserID:    s.Identity.ID,
			StartDatetime:      now,
			AssociatedData:     c.AssociatedData,
			CreateTime:         now,
			UpdateTime:         now,
		},
	}

	var events []*event.EventRecord
	err := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		workflowTemplate := template.WorkflowTemplate{}
		if err := tx.Where("id = ?", c.WorkflowTemplateID).First(&workflowTemplate).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return bizerror.ErrNotFound
			}
			return err
		}
		if workflowTemplate.IsArchived {
			return bizerror.ErrArchived
		}

		taskTemplates, err := template.LoadTaskTemplatesByIds(workflowTemplate.TaskTemplateIDs, tx)
		if err != nil {
			return err
		}

		if err := tx.Create(&detail.WorkflowInstance).Error; err != nil {
			return err
		}
		ev, err := CreateInstanceCreatedEvent(&detail.WorkflowInstance, &s.Identity, now, tx)
		if err != nil {
			return err
		}
		events = append(events, ev)

		for _, tt := range taskTemplates {
			if tt.IsArchived {
				continue
			}
			task := Task{
				ID:                 idgen.NextID(instanceIdWorker),
				Name:               tt.Name,
				TaskTemplateID:     tt.ID,
				WorkflowInstanceID: detail.ID,
				AssignedToUserID:   c.Assignments[tt.ID],
				Status:             state.TaskPending,
				DueDate:            tt.DueDateOf(now),
				DynamicTableID:     tt.DynamicTableID,
				CreateTime:         now,
				UpdateTime:         now,
			}
			data, err := seedTaskData(tt, c.AssociatedData, tx)
			if err != nil {
				return err
			}
			task.DynamicTableData = data

			if err := tx.Create(&task).Error; err != nil {
				return err
			}
			ev, err := CreateTaskCreatedEvent(&task, &s.Identity, now, tx)
			if err != nil {
				return err
			}
			events = append(events, ev)
			detail.Tasks = append(detail.Tasks, task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if event.InvokeHandlersFunc != nil {
		for _, ev := range events {
			event.InvokeHandlersFunc(ev)
		}
	}
	return detail, nil
}

func ArchiveInstance(id types.ID, archived bool, s *session.Session) error {
	if !s.Identity.Role.IsAdministrator() {
		return bizerror.ErrForbidden
	}

	var ev *event.EventRecord
	err := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		record := WorkflowInstance{}
		if err := tx.Where("id = ?", id).First(&record).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return bizerror.ErrNotFound
			}
			return err
		}
		if record.IsArchived == archived {
			return nil
		}
		now := types.CurrentTimestamp()
		if err := tx.Model(&WorkflowInstance{}).Where(&WorkflowInstance{ID: id}).
			Update(map[string]interface{}{"is_archived": archived, "update_time": now}).Error; err != nil {
			return err
		}
		var err error
		ev, err = CreateInstanceArchivedEvent(&record, nil, &s.Identity, now, tx)
		return err
	})
	if err != nil {
		return err
	}
	if ev != nil && event.InvokeHandlersFunc != nil {
		event.InvokeHandlersFunc(ev)
	}
	return nil
}

// seedTaskData copies the associated entry data when the template references a
// table, an association for that table was supplied and the entry still
// belongs to it. Missing or archived references degrade to no association.
func seedTaskData(tt template.TaskTemplate, associations map[types.ID]types.ID, tx *gorm.DB) (table.RowData, error) {
	if tt.DynamicTableID == 0 {
		return nil, nil
	}
	entryId, found := associations[tt.DynamicTableID]
	if !found {
		return nil, nil
	}
	entry := table.TableEntry{}
	if err := tx.Where("id = ?", entryId).First(&entry).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	if entry.IsArchived || entry.TableID != tt.DynamicTableID {
		return nil, nil
	}
	data := table.RowData{}
	for k, v := range entry.Data {
		data[k] = v
	}
	return data, nil
}

func resolveDisplayedStatuses(tasks []Task) {
	now := types.CurrentTimestamp()
	for i := range tasks {
		tasks[i].Status = state.ResolveTaskStatus(tasks[i].Status, tasks[i].DueDate, now)
	}
}
