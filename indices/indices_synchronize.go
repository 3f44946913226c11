package indices

import (
	"context"
	"fmt"
	"sync"

	"flowform/authority"
	"flowform/bizerror"
	"flowform/domain/process"
	"flowform/event"
	"flowform/idgen"
	"flowform/indices/indexlog"
	"flowform/persistence"
	"flowform/session"

	"github.com/sirupsen/logrus"
	"github.com/sony/sonyflake"
)

var (
	TaskIndexEventHandlerName = "taskIndexer"
	indexRobot                = &session.Session{
		Identity: session.Identity{ID: 10, Name: "index-robot", Role: authority.RoleAdministrator},
		Context:  context.Background(),
	}

	indexLogIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	lock    sync.Mutex
	running bool

	IndicesFullSyncFunc    = IndicesFullSync
	ScheduleNewSyncRunFunc = ScheduleNewSyncRun
)

// ScheduleNewSyncRun starts a full re-index in the background, at most one at
// a time. It reports whether a new run was actually started.
func ScheduleNewSyncRun(s *session.Session) (bool, error) {
	if !s.Identity.Role.IsAdministrator() {
		return false, bizerror.ErrForbidden
	}

	lock.Lock()
	if running {
		lock.Unlock()
		return false, nil
	}
	running = true
	lock.Unlock()

	waitRunning := sync.WaitGroup{}
	waitRunning.Add(1)
	go func() {
		waitRunning.Done()
		defer func() {
			lock.Lock()
			running = false
			lock.Unlock()
		}()
		IndicesFullSyncFunc()
	}()
	waitRunning.Wait()
	return true, nil
}

var (
	SyncBatchSize = 500
)

func IndicesFullSync() (err error) {
	defer func() {
		if ret := recover(); ret != nil {
			e, ok := ret.(error)
			if ok {
				err = e
			} else {
				err = fmt.Errorf("error on indices full sync: %v", ret)
			}
		}
	}()

	page := 1
	for {
		tasks, err := process.LoadTaskSnapshotsFunc(page, SyncBatchSize)
		if err != nil {
			logrus.Warnf("indices full sync: error on load tasks(page = %d, pageSize = %d): %v", page, SyncBatchSize, err)
			page++
			continue
		}

		if len(tasks) == 0 {
			logrus.Infof("indices full sync: there are no more tasks to index")
			return nil // loop exit
		}

		if err := IndexTasks(tasks, indexRobot); err != nil {
			logrus.Warnf("indices full sync: error on index tasks(page = %d, pageSize = %d): %v", page, SyncBatchSize, err)
		}
		page++
	}
}

// TaskIndexEventHandle keeps the task index in step with task and instance
// mutations. Each handled event leaves an index log that stays pending until
// the backend accepted the document, so missed updates are recoverable.
func TaskIndexEventHandle(e *event.EventRecord) *event.EventHandleResult {
	switch e.SourceType {
	case event.SourceTypeTask:
		logRecord, err := appendIndexLog(e)
		if err != nil {
			return failure(fmt.Sprintf("append index log of task %d, %v", e.SourceId, err))
		}
		snapshot, err := process.LoadTaskSnapshotFunc(e.SourceId)
		if err != nil {
			return failure(fmt.Sprintf("load task %d when indexing, %v", e.SourceId, err))
		}
		if err := IndexTasks([]process.TaskSnapshot{*snapshot}, indexRobot); err != nil {
			return failure(fmt.Sprintf("index task %d, %v", e.SourceId, err))
		}
		if err := indexlog.FinishIndexLogFunc(logRecord.ID); err != nil {
			return failure(fmt.Sprintf("finish index log of task %d, %v", e.SourceId, err))
		}
		return &event.EventHandleResult{Success: true, HandlerIdentifier: TaskIndexEventHandlerName}

	case event.SourceTypeWorkflowInstance:
		logRecord, err := appendIndexLog(e)
		if err != nil {
			return failure(fmt.Sprintf("append index log of instance %d, %v", e.SourceId, err))
		}
		snapshots, err := process.LoadInstanceTaskSnapshotsFunc(e.SourceId)
		if err != nil {
			return failure(fmt.Sprintf("load tasks of instance %d when indexing, %v", e.SourceId, err))
		}
		if err := IndexTasks(snapshots, indexRobot); err != nil {
			return failure(fmt.Sprintf("index tasks of instance %d, %v", e.SourceId, err))
		}
		if err := indexlog.FinishIndexLogFunc(logRecord.ID); err != nil {
			return failure(fmt.Sprintf("finish index log of instance %d, %v", e.SourceId, err))
		}
		return &event.EventHandleResult{Success: true, HandlerIdentifier: TaskIndexEventHandlerName}
	}
	return nil
}

func appendIndexLog(e *event.EventRecord) (*indexlog.IndexLogRecord, error) {
	db := persistence.ActiveDataSourceManager.GormDB(context.Background())
	return indexlog.CreateIndexLogFunc(idgen.NextID(indexLogIdWorker),
		e.SourceType, e.SourceId, e.SourceDesc, e.Timestamp, db)
}

func failure(message string) *event.EventHandleResult {
	return &event.EventHandleResult{Message: message, HandlerIdentifier: TaskIndexEventHandlerName}
}
