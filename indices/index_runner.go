package indices

import (
	"context"

	cron "github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StartCron schedules the nightly full re-sync and the pending log recovery.
func StartCron() {
	crontab := cron.New(cron.WithSeconds())
	crontab.AddFunc("0 0 23 * * ?", func() {
		if err := IndicesFullSyncFunc(); err != nil {
			logrus.Errorf("nightly index sync: %v", err)
		}
	})
	crontab.AddFunc("0 */5 * * * ?", func() {
		if err := RecoverPendingIndexLogsFunc(context.Background()); err != nil {
			logrus.Errorf("index log recovery: %v", err)
		}
	})
	crontab.Start()
}
