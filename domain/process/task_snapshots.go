package process

import (
	"context"

	"flowform/persistence"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

// TaskSnapshot is a task joined with the instance facts that searches filter
// on. It is the shape handed to the index layer.
type TaskSnapshot struct {
	Task

	InstanceName     string `json:"instanceName"`
	InstanceStatus   string `json:"instanceStatus"`
	InstanceArchived bool   `json:"instanceArchived"`
}

var (
	LoadTaskSnapshotsFunc         = LoadTaskSnapshots
	LoadTaskSnapshotFunc          = LoadTaskSnapshot
	LoadInstanceTaskSnapshotsFunc = LoadInstanceTaskSnapshots
)

func LoadTaskSnapshots(page, size int) ([]TaskSnapshot, error) {
	offset := (page - 1) * size
	if offset < 0 {
		offset = 0
	}
	var tasks []Task
	db := persistence.ActiveDataSourceManager.GormDB(context.Background())
	if err := db.Model(&Task{}).Order("id ASC").Offset(offset).Limit(size).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return attachInstanceFacts(tasks, db)
}

func LoadTaskSnapshot(id types.ID) (*TaskSnapshot, error) {
	db := persistence.ActiveDataSourceManager.GormDB(context.Background())
	task := Task{}
	if err := db.Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	snapshots, err := attachInstanceFacts([]Task{task}, db)
	if err != nil {
		return nil, err
	}
	return &snapshots[0], nil
}

func LoadInstanceTaskSnapshots(instanceId types.ID) ([]TaskSnapshot, error) {
	db := persistence.ActiveDataSourceManager.GormDB(context.Background())
	var tasks []Task
	if err := db.Where("workflow_instance_id = ?", instanceId).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return attachInstanceFacts(tasks, db)
}

func attachInstanceFacts(tasks []Task, db *gorm.DB) ([]TaskSnapshot, error) {
	ids := make([]types.ID, 0, len(tasks))
	seen := map[types.ID]bool{}
	for _, t := range tasks {
		if !seen[t.WorkflowInstanceID] {
			seen[t.WorkflowInstanceID] = true
			ids = append(ids, t.WorkflowInstanceID)
		}
	}
	instances := map[types.ID]WorkflowInstance{}
	if len(ids) > 0 {
		var records []WorkflowInstance
		if err := db.Where("id IN (?)", ids).Find(&records).Error; err != nil {
			return nil, err
		}
		for _, r := range records {
			instances[r.ID] = r
		}
	}

	snapshots := make([]TaskSnapshot, 0, len(tasks))
	for _, t := range tasks {
		s := TaskSnapshot{Task: t}
		if instance, found := instances[t.WorkflowInstanceID]; found {
			s.InstanceName = instance.Name
			s.InstanceStatus = string(instance.Status)
			s.InstanceArchived = instance.IsArchived
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, nil
}
