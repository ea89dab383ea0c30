package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/speckle-accounts/internal/interfaces"
	"github.com/ternarybob/speckle-accounts/internal/models"
)

// fakeAccountService counts refreshes; block holds each refresh until closed
type fakeAccountService struct {
	interfaces.AccountService
	calls int32
	block chan struct{}
}

func (f *fakeAccountService) UpdateAccounts(ctx context.Context) []*models.Account {
	atomic.AddInt32(&f.calls, 1)
	if f.block != nil {
		<-f.block
	}
	return []*models.Account{{IsOnline: true}, {IsOnline: false}}
}

func TestRunNow_RecordsStats(t *testing.T) {
	accounts := &fakeAccountService{}
	service := NewService(accounts, time.Minute, arbor.NewLogger())

	service.RunNow(context.Background())

	finished, online, total := service.LastRun()
	assert.False(t, finished.IsZero())
	assert.Equal(t, 1, online)
	assert.Equal(t, 2, total)
	assert.Equal(t, int32(1), atomic.LoadInt32(&accounts.calls))
}

func TestRunNow_SkipsOverlappingRuns(t *testing.T) {
	accounts := &fakeAccountService{block: make(chan struct{})}
	service := NewService(accounts, time.Minute, arbor.NewLogger())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		service.RunNow(context.Background())
	}()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&accounts.calls) == 1
	}, time.Second, 10*time.Millisecond)

	// Second run while the first is blocked returns immediately
	service.RunNow(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&accounts.calls))

	close(accounts.block)
	wg.Wait()
}

func TestStartStop(t *testing.T) {
	accounts := &fakeAccountService{}
	service := NewService(accounts, time.Minute, arbor.NewLogger())

	require.NoError(t, service.Start("@every 1s"))
	assert.Error(t, service.Start("@every 1s"), "starting twice fails")

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&accounts.calls) >= 1
	}, 3*time.Second, 50*time.Millisecond)

	require.NoError(t, service.Stop())
	require.NoError(t, service.Stop(), "stopping twice is a no-op")
}

func TestStart_InvalidSchedule(t *testing.T) {
	service := NewService(&fakeAccountService{}, 0, arbor.NewLogger())
	assert.Error(t, service.Start("whenever"))
}
