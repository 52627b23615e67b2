package services

import (
	"time"

	"github.com/go-co-op/gocron"

	"docchat-backend/internal/logger"
)

// CronService runs the periodic housekeeping jobs, currently just
// TTL-based session eviction.
type CronService struct {
	scheduler *gocron.Scheduler
	sessions  *SessionStore
}

func NewCronService(sessions *SessionStore) *CronService {
	return &CronService{
		scheduler: gocron.NewScheduler(time.UTC),
		sessions:  sessions,
	}
}

// Start schedules the jobs and runs the scheduler in the background.
func (c *CronService) Start() error {
	_, err := c.scheduler.Every(5).Minutes().Do(func() {
		if evicted := c.sessions.EvictExpired(time.Now()); evicted > 0 {
			logger.Info("Evicted expired sessions", "count", evicted)
		}
	})
	if err != nil {
		return err
	}

	c.scheduler.StartAsync()
	logger.Info("Cron service started")
	return nil
}

// Stop halts the scheduler and waits for running jobs to finish.
func (c *CronService) Stop() {
	c.scheduler.Stop()
	logger.Info("Cron service stopped")
}
