package process

import (
	"io/ioutil"

	"flowform/bizerror"
	"flowform/client/s3"
	"flowform/domain/attachment"
	"flowform/domain/field"
	"flowform/domain/forms"
	"flowform/domain/state"
	"flowform/domain/table"
	"flowform/event"
	"flowform/persistence"
	"flowform/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

type TaskQuery struct {
	InstanceID      string `form:"instanceId"`
	AssignedTo      string `form:"assignedTo"`
	Status          string `form:"status"`
	IncludeArchived bool   `form:"includeArchived"`
}

type TaskDetail struct {
	Task

	Fields             []field.DynamicField `json:"fields" gorm:"-"`
	AssignedToUserName string               `json:"assignedToUserName" gorm:"-"`
}

type TaskAssignmentUpdating struct {
	AssignedToUserID types.ID `json:"assignedToUserId"`
}

var (
	QueryTasksFunc           = QueryTasks
	DetailTaskFunc           = DetailTask
	SaveTaskDataFunc         = SaveTaskData
	CompleteTaskFunc         = CompleteTask
	SkipTaskFunc             = SkipTask
	UpdateTaskAssignmentFunc = UpdateTaskAssignment
	TaskFileURLFunc          = TaskFileURL
	TaskFileContentFunc      = TaskFileContent
)

func QueryTasks(q TaskQuery, s *session.Session) ([]Task, error) {
	var records []Task
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	query := db.Model(&Task{})
	if q.InstanceID != "" {
		instanceId, err := types.ParseID(q.InstanceID)
		if err != nil {
			return nil, &bizerror.ErrBadParam{Cause: err}
		}
		query = query.Where("workflow_instance_id = ?", instanceId)
	}
	if q.AssignedTo != "" {
		userId, err := types.ParseID(q.AssignedTo)
		if err != nil {
			return nil, &bizerror.ErrBadParam{Cause: err}
		}
		query = query.Where("assigned_to_user_id = ?", userId)
	}
	if !q.IncludeArchived {
		query = query.Where("workflow_instance_id IN (SELECT id FROM workflow_instances WHERE is_archived = ?)", false)
	}
	if err := query.Order("due_date asc, create_time asc").Find(&records).Error; err != nil {
		return nil, err
	}
	resolveDisplayedStatuses(records)

	// Overdue exists only after resolution, so the status filter applies here
	if q.Status != "" {
		filtered := make([]Task, 0, len(records))
		for _, r := range records {
			if string(r.Status) == q.Status {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}
	return records, nil
}

func DetailTask(id types.ID, s *session.Session) (*TaskDetail, error) {
	detail := TaskDetail{}
	err := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&detail.Task).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return bizerror.ErrNotFound
			}
			return err
		}
		fields, err := loadTaskFields(&detail.Task, tx)
		if err != nil {
			return err
		}
		detail.Fields = fields
		return nil
	})
	if err != nil {
		return nil, err
	}
	detail.Status = state.ResolveTaskStatus(detail.Status, detail.DueDate, types.CurrentTimestamp())

	if detail.AssignedToUserID != 0 {
		names, err := QueryAccountNamesFunc([]types.ID{detail.AssignedToUserID}, s)
		if err != nil {
			return nil, err
		}
		detail.AssignedToUserName = names[detail.AssignedToUserID]
	}
	return &detail, nil
}

// SaveTaskData validates the submitted form against the task's table schema,
// reconciles document fields and stores the working copy. The first save of a
// pending task begins it.
func SaveTaskData(id types.ID, values map[string]interface{}, s *session.Session) (*Task, error) {
	var evs []*event.EventRecord
	record := Task{}
	err := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := loadMutableTask(id, &record, s, tx); err != nil {
			return err
		}

		fields, err := loadTaskFields(&record, tx)
		if err != nil {
			return err
		}

		notes, formValues := splitNotes(values, fields)
		merged := mergeStoredDocuments(fields, formValues, record.DynamicTableData)
		validated, err := forms.BuildValidator(fields).Validate(merged)
		if err != nil {
			return err
		}
		scope := attachment.Scope{Kind: attachment.ScopeKindTask, ID: record.ID}
		data, err := attachment.ReconcileDocumentValuesFunc(scope, fields, validated, record.DynamicTableData, s)
		if err != nil {
			return err
		}

		now := types.CurrentTimestamp()
		changes := map[string]interface{}{"dynamic_table_data": table.RowData(data), "update_time": now}
		if notes != nil {
			changes["notes"] = *notes
		}
		oldStatus := record.Status
		if record.Status == state.TaskPending {
			changes["status"] = state.TaskInProgress
			changes["start_datetime"] = now
			record.Status = state.TaskInProgress
			record.StartDatetime = now
		}
		if err := tx.Model(&Task{}).Where(&Task{ID: id}).Update(changes).Error; err != nil {
			return err
		}
		record.DynamicTableData = data
		record.UpdateTime = now
		if notes != nil {
			record.Notes = *notes
		}

		updates := []event.UpdatedProperty{{PropertyName: "dynamicTableData"}}
		if oldStatus != record.Status {
			updates = append(updates, event.UpdatedProperty{
				PropertyName: "status", OldValue: string(oldStatus), NewValue: string(record.Status)})
		}
		ev, err := CreateTaskUpdatedEvent(&record, updates, &s.Identity, now, tx)
		if err != nil {
			return err
		}
		evs = append(evs, ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	invokeEventHandlers(evs)
	return &record, nil
}

// CompleteTask is terminal. The completion transaction also re-checks the
// instance so it cannot stay Active once its last task resolves.
func CompleteTask(id types.ID, s *session.Session) (*Task, error) {
	return resolveTask(id, state.TaskCompleted, s)
}

// SkipTask closes a task without completing it. A skipped task counts as
// resolved for instance completion.
func SkipTask(id types.ID, s *session.Session) (*Task, error) {
	return resolveTask(id, state.TaskSkipped, s)
}

func resolveTask(id types.ID, to state.TaskStatus, s *session.Session) (*Task, error) {
	var evs []*event.EventRecord
	record := Task{}
	err := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := loadMutableTask(id, &record, s, tx); err != nil {
			return err
		}
		if !state.TaskStatusMachine.CanTransit(record.Status, to) {
			return bizerror.ErrInvalidStatusTransition
		}

		now := types.CurrentTimestamp()
		oldStatus := record.Status
		changes := map[string]interface{}{"status": to, "update_time": now}
		if to == state.TaskCompleted {
			changes["finish_datetime"] = now
			record.FinishDatetime = now
		}
		if record.StartDatetime.IsZero() {
			changes["start_datetime"] = now
			record.StartDatetime = now
		}
		if err := tx.Model(&Task{}).Where(&Task{ID: id}).Update(changes).Error; err != nil {
			return err
		}
		record.Status = to
		record.UpdateTime = now

		ev, err := CreateTaskStatusUpdatedEvent(&record, []event.UpdatedProperty{
			{PropertyName: "status", OldValue: string(oldStatus), NewValue: string(to)}}, &s.Identity, now, tx)
		if err != nil {
			return err
		}
		evs = append(evs, ev)

		instanceEv, err := completeInstanceWhenResolved(record.WorkflowInstanceID, &s.Identity, now, tx)
		if err != nil {
			return err
		}
		if instanceEv != nil {
			evs = append(evs, instanceEv)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	invokeEventHandlers(evs)
	return &record, nil
}

func UpdateTaskAssignment(id types.ID, u TaskAssignmentUpdating, s *session.Session) (*Task, error) {
	if !s.Identity.Role.IsAdministrator() {
		return nil, bizerror.ErrForbidden
	}

	var evs []*event.EventRecord
	record := Task{}
	err := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&record).Error; err != nil {
			if gorm.IsRecordNotFoundError(err) {
				return bizerror.ErrNotFound
			}
			return err
		}
		if state.TaskStatusMachine.IsTerminal(record.Status) {
			return bizerror.ErrTaskCompleted
		}

		now := types.CurrentTimestamp()
		oldAssignee := record.AssignedToUserID
		if err := tx.Model(&Task{}).Where(&Task{ID: id}).
			Update(map[string]interface{}{"assigned_to_user_id": u.AssignedToUserID, "update_time": now}).Error; err != nil {
			return err
		}
		record.AssignedToUserID = u.AssignedToUserID
		record.UpdateTime = now

		ev, err := CreateTaskUpdatedEvent(&record, []event.UpdatedProperty{
			{PropertyName: "assignedToUserId", OldValue: oldAssignee.String(), NewValue: u.AssignedToUserID.String()}},
			&s.Identity, now, tx)
		if err != nil {
			return err
		}
		evs = append(evs, ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	invokeEventHandlers(evs)
	return &record, nil
}

// TaskFileURL resolves the stored document of a task form field to a fetch URL.
func TaskFileURL(id types.ID, fieldName string, s *session.Session) (string, error) {
	record := Task{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Where("id = ?", id).First(&record).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return "", bizerror.ErrNotFound
		}
		return "", err
	}
	path, _ := record.DynamicTableData[fieldName].(string)
	return attachment.DownloadURLFunc(path, s)
}

// TaskFileContent reads the stored document of a task form field out of the
// object store.
func TaskFileContent(id types.ID, fieldName string, s *session.Session) ([]byte, error) {
	record := Task{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Where("id = ?", id).First(&record).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}
	path, _ := record.DynamicTableData[fieldName].(string)
	if path == "" {
		return nil, bizerror.ErrNotFound
	}
	r, err := s3.GetObjectFunc(path, s)
	if err != nil {
		if s3.IsNoSuchKey(err) {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}
	defer r.Close()
	return ioutil.ReadAll(r)
}

// loadMutableTask loads a task for a data or status mutation: the caller must
// be an administrator, or its assignee holding a role that can execute tasks.
// The task must not be terminal and its instance must still be Active.
func loadMutableTask(id types.ID, record *Task, s *session.Session, tx *gorm.DB) error {
	if err := tx.Where("id = ?", id).First(record).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return bizerror.ErrNotFound
		}
		return err
	}
	if !s.Identity.Role.IsAdministrator() &&
		(s.Identity.ID != record.AssignedToUserID || !s.Identity.Role.CanExecuteTasks()) {
		return bizerror.ErrForbidden
	}
	if state.TaskStatusMachine.IsTerminal(record.Status) {
		return bizerror.ErrTaskCompleted
	}

	instance := WorkflowInstance{}
	if err := tx.Where("id = ?", record.WorkflowInstanceID).First(&instance).Error; err != nil {
		return err
	}
	if instance.Status != state.InstanceActive || instance.IsArchived {
		return bizerror.ErrInstanceNotActive
	}
	return nil
}

func loadTaskFields(record *Task, tx *gorm.DB) ([]field.DynamicField, error) {
	if record.DynamicTableID == 0 {
		return []field.DynamicField{}, nil
	}
	t := table.DynamicTable{}
	if err := tx.Where("id = ?", record.DynamicTableID).First(&t).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			// a table archived or gone after materialization degrades to no form
			return []field.DynamicField{}, nil
		}
		return nil, err
	}
	return field.LoadFieldsByIds(t.FieldIDs, tx)
}

func completeInstanceWhenResolved(instanceId types.ID, identity *session.Identity,
	now types.Timestamp, tx *gorm.DB) (*event.EventRecord, error) {

	var remaining int
	if err := tx.Model(&Task{}).Where("workflow_instance_id = ? AND status NOT IN (?)",
		instanceId, []state.TaskStatus{state.TaskCompleted, state.TaskSkipped}).Count(&remaining).Error; err != nil {
		return nil, err
	}
	if remaining > 0 {
		return nil, nil
	}

	instance := WorkflowInstance{}
	if err := tx.Where("id = ?", instanceId).First(&instance).Error; err != nil {
		return nil, err
	}
	if instance.Status != state.InstanceActive {
		return nil, nil
	}
	if err := tx.Model(&WorkflowInstance{}).Where(&WorkflowInstance{ID: instanceId}).
		Update(map[string]interface{}{"status": state.InstanceCompleted, "finish_datetime": now, "update_time": now}).
		Error; err != nil {
		return nil, err
	}
	instance.Status = state.InstanceCompleted
	return CreateInstanceStatusUpdatedEvent(&instance, []event.UpdatedProperty{
		{PropertyName: "status", OldValue: string(state.InstanceActive), NewValue: string(state.InstanceCompleted)}},
		identity, now, tx)
}

// splitNotes lifts the reserved "notes" key out of a submission unless the
// schema declares a field of that name.
func splitNotes(values map[string]interface{}, fields []field.DynamicField) (*string, map[string]interface{}) {
	for _, f := range fields {
		if f.Name == "notes" {
			return nil, values
		}
	}
	raw, present := values["notes"]
	if !present {
		return nil, values
	}
	text, ok := raw.(string)
	if !ok {
		return nil, values
	}
	formValues := map[string]interface{}{}
	for k, v := range values {
		if k == "notes" {
			continue
		}
		formValues[k] = v
	}
	return &text, formValues
}

func mergeStoredDocuments(fields []field.DynamicField, values map[string]interface{},
	stored table.RowData) map[string]interface{} {

	merged := map[string]interface{}{}
	for k, v := range values {
		merged[k] = v
	}
	for _, f := range fields {
		if f.Type != field.TypeDocument {
			continue
		}
		if _, present := merged[f.Name]; !present {
			if path, ok := stored[f.Name].(string); ok && path != "" {
				merged[f.Name] = path
			}
		}
	}
	return merged
}

func invokeEventHandlers(evs []*event.EventRecord) {
	if event.InvokeHandlersFunc == nil {
		return
	}
	for _, ev := range evs {
		event.InvokeHandlersFunc(ev)
	}
}
