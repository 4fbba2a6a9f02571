package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubUsers struct {
	ids []uint
	err error
}

func (s stubUsers) ListUserIDs(context.Context) ([]uint, error) { return s.ids, s.err }

type recordingWarmer struct {
	mu     sync.Mutex
	warmed []uint
	failOn uint
}

func (r *recordingWarmer) WarmSummary(ctx context.Context, userID uint) error {
	if userID == r.failOn {
		return errors.New("store unavailable")
	}
	r.mu.Lock()
	r.warmed = append(r.warmed, userID)
	r.mu.Unlock()
	return nil
}

func TestReportWarmer_RunOnceSkipsFailures(t *testing.T) {
	reports := &recordingWarmer{failOn: 2}
	w := NewReportWarmer(stubUsers{ids: []uint{1, 2, 3}}, reports, "0 5 0 * * *", zap.NewNop())

	assert.Equal(t, 2, w.RunOnce(context.Background()))
	assert.Equal(t, []uint{1, 3}, reports.warmed)
}

func TestReportWarmer_ListFailure(t *testing.T) {
	reports := &recordingWarmer{}
	w := NewReportWarmer(stubUsers{err: errors.New("db down")}, reports, "0 5 0 * * *", nil)

	assert.Equal(t, 0, w.RunOnce(context.Background()))
	assert.Empty(t, reports.warmed)
}

func TestReportWarmer_CanceledContext(t *testing.T) {
	reports := &recordingWarmer{}
	w := NewReportWarmer(stubUsers{ids: []uint{1, 2}}, reports, "0 5 0 * * *", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, 0, w.RunOnce(ctx))
}

func TestReportWarmer_StartRejectsBadSpec(t *testing.T) {
	w := NewReportWarmer(stubUsers{}, &recordingWarmer{}, "every day", nil)
	assert.Error(t, w.Start())

	w = NewReportWarmer(stubUsers{}, &recordingWarmer{}, "0 5 0 * * *", nil)
	require.NoError(t, w.Start())
	w.Stop()
}
