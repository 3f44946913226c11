package indices

import (
	"context"

	"flowform/domain/process"
	"flowform/event"
	"flowform/indices/indexlog"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	RecoveryBatchSize = 100

	// pending logs are retried at a bounded pace so recovery never floods the
	// search backend after a long outage
	recoveryLimiter = rate.NewLimiter(rate.Limit(10), 1)

	RecoverPendingIndexLogsFunc = RecoverPendingIndexLogs
)

// RecoverPendingIndexLogs replays index logs that never reached the backend.
func RecoverPendingIndexLogs(ctx context.Context) error {
	for {
		records, err := indexlog.LoadPendingIndexLogFunc(1, RecoveryBatchSize)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}

		retried := 0
		for _, record := range records {
			if err := recoveryLimiter.Wait(ctx); err != nil {
				return err
			}
			if recoverIndexLog(record) {
				retried++
			}
		}
		if retried == 0 {
			// everything left is still failing, give the backend a rest
			return nil
		}
	}
}

func recoverIndexLog(record indexlog.IndexLogRecord) bool {
	var snapshots []process.TaskSnapshot
	var err error

	switch record.SourceType {
	case event.SourceTypeTask:
		var snapshot *process.TaskSnapshot
		snapshot, err = process.LoadTaskSnapshotFunc(record.SourceId)
		if err == nil {
			snapshots = []process.TaskSnapshot{*snapshot}
		}
	case event.SourceTypeWorkflowInstance:
		snapshots, err = process.LoadInstanceTaskSnapshotsFunc(record.SourceId)
	default:
		logrus.Warnf("index recovery: unknown source type %s of log %d", record.SourceType, record.ID)
		if err := indexlog.ObsoleteIndexLogFunc(record.ID); err != nil {
			logrus.Warnf("index recovery: obsolete log %d: %v", record.ID, err)
		}
		return false
	}

	if err != nil {
		logrus.Warnf("index recovery: load source of log %d: %v", record.ID, err)
		return false
	}
	if err := IndexTasks(snapshots, indexRobot); err != nil {
		logrus.Warnf("index recovery: index source of log %d: %v", record.ID, err)
		return false
	}
	if err := indexlog.FinishIndexLogFunc(record.ID); err != nil {
		logrus.Warnf("index recovery: finish log %d: %v", record.ID, err)
		return false
	}
	return true
}
