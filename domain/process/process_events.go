package process

import (
	"flowform/event"
	"flowform/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

func CreateTaskCreatedEvent(t *Task, identity *session.Identity, timestamp types.Timestamp, db *gorm.DB) (*event.EventRecord, error) {
	return event.CreateEvent(event.SourceTypeTask, t.ID, t.Name, event.EventCategoryCreated, nil, identity, timestamp, db)
}
func CreateTaskUpdatedEvent(t *Task, updates []event.UpdatedProperty, identity *session.Identity, timestamp types.Timestamp, db *gorm.DB) (*event.EventRecord, error) {
	return event.CreateEvent(event.SourceTypeTask, t.ID, t.Name, event.EventCategoryPropertyUpdated, updates, identity, timestamp, db)
}
func CreateTaskStatusUpdatedEvent(t *Task, updates []event.UpdatedProperty, identity *session.Identity, timestamp types.Timestamp, db *gorm.DB) (*event.EventRecord, error) {
	return event.CreateEvent(event.SourceTypeTask, t.ID, t.Name, event.EventCategoryStatusUpdated, updates, identity, timestamp, db)
}
func CreateInstanceCreatedEvent(i *WorkflowInstance, identity *session.Identity, timestamp types.Timestamp, db *gorm.DB) (*event.EventRecord, error) {
	return event.CreateEvent(event.SourceTypeWorkflowInstance, i.ID, i.Name, event.EventCategoryCreated, nil, identity, timestamp, db)
}
func CreateInstanceStatusUpdatedEvent(i *WorkflowInstance, updates []event.UpdatedProperty, identity *session.Identity, timestamp types.Timestamp, db *gorm.DB) (*event.EventRecord, error) {
	return event.CreateEvent(event.SourceTypeWorkflowInstance, i.ID, i.Name, event.EventCategoryStatusUpdated, updates, identity, timestamp, db)
}
func CreateInstanceArchivedEvent(i *WorkflowInstance, updates []event.UpdatedProperty, identity *session.Identity, timestamp types.Timestamp, db *gorm.DB) (*event.EventRecord, error) {
	return event.CreateEvent(event.SourceTypeWorkflowInstance, i.ID, i.Name, event.EventCategoryArchived, updates, identity, timestamp, db)
}
