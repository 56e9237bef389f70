package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"sinedi/pkg/logger"
)

// StartDriftAuditor runs WalletService.AuditDrift on schedule. Runs never
// overlap. Stop the returned cron on shutdown.
func StartDriftAuditor(schedule string, wallet *WalletService) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
		defer cancel()
		if _, err := wallet.AuditDrift(ctx); err != nil {
			logger.Errorf("[wallet] drift audit failed: %v", err)
		}
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("[wallet] drift auditor started schedule=%q", schedule)
	c.Start()
	return c, nil
}
