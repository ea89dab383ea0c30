package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/speckle-accounts/internal/interfaces"
)

// Service runs the account refresh on a cron schedule
type Service struct {
	accounts     interfaces.AccountService
	cron         *cron.Cron
	logger       arbor.ILogger
	timeout      time.Duration
	mu           sync.Mutex // Protects isProcessing, running and the run stats
	isProcessing bool
	running      bool
	lastRun      time.Time
	lastOnline   int
	lastTotal    int
}

var _ interfaces.SchedulerService = (*Service)(nil)

// NewService creates a new refresh scheduler. timeout bounds a single run; zero means no bound.
func NewService(accounts interfaces.AccountService, timeout time.Duration, logger arbor.ILogger) *Service {
	return &Service{
		accounts: accounts,
		cron:     cron.New(),
		logger:   logger,
		timeout:  timeout,
	}
}

// Start begins the scheduler with the given cron expression or descriptor
func (s *Service) Start(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if schedule == "" {
		schedule = "@every 15m"
	}

	if _, err := s.cron.AddFunc(schedule, s.runScheduledTask); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().Str("schedule", schedule).Msg("Account refresh scheduler started")
	return nil
}

// Stop halts the scheduler and waits for a run in progress to finish
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()

	s.logger.Info().Msg("Account refresh scheduler stopped")
	return nil
}

// RunNow performs one refresh immediately unless one is already running
func (s *Service) RunNow(ctx context.Context) {
	s.refresh(ctx)
}

// LastRun returns when the last refresh finished and how many accounts were online
func (s *Service) LastRun() (finished time.Time, online int, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastOnline, s.lastTotal
}

func (s *Service) runScheduledTask() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	s.refresh(ctx)
}

func (s *Service) refresh(ctx context.Context) {
	// Panic recovery to prevent service crash
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in account refresh")
		}
	}()

	s.mu.Lock()
	if s.isProcessing {
		s.logger.Debug().Msg("Account refresh already running, skipping this cycle")
		s.mu.Unlock()
		return
	}
	s.isProcessing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isProcessing = false
		s.mu.Unlock()
	}()

	start := time.Now()
	accounts := s.accounts.UpdateAccounts(ctx)

	online := 0
	for _, acc := range accounts {
		if acc.IsOnline {
			online++
		}
	}

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastOnline = online
	s.lastTotal = len(accounts)
	s.mu.Unlock()

	s.logger.Info().
		Int("accounts", len(accounts)).
		Int("online", online).
		Dur("duration", time.Since(start)).
		Msg("Scheduled account refresh finished")
}
