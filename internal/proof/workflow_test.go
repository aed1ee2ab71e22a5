package proof

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"worksafe/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeCamera struct {
	mu      sync.Mutex
	openErr error
	snapErr error
	opened  int
	stopped int
}

func (c *fakeCamera) Open(context.Context) (Feed, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openErr != nil {
		return nil, c.openErr
	}
	c.opened++
	return &fakeFeed{cam: c}, nil
}

func (c *fakeCamera) live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened - c.stopped
}

type fakeFeed struct {
	cam  *fakeCamera
	once sync.Once
}

func (f *fakeFeed) Snapshot(context.Context) ([]byte, error) {
	f.cam.mu.Lock()
	defer f.cam.mu.Unlock()
	if f.cam.snapErr != nil {
		return nil, f.cam.snapErr
	}
	return []byte("jpeg"), nil
}

func (f *fakeFeed) Stop() {
	f.once.Do(func() {
		f.cam.mu.Lock()
		f.cam.stopped++
		f.cam.mu.Unlock()
	})
}

type fakeVerifier struct {
	verdict domain.Verdict
	err     error
	block   bool
	claims  []domain.ProofClaim
}

func (v *fakeVerifier) VerifyProof(ctx context.Context, claim domain.ProofClaim) (domain.Verdict, error) {
	v.claims = append(v.claims, claim)
	if v.block {
		<-ctx.Done()
		return domain.Verdict{}, ctx.Err()
	}
	return v.verdict, v.err
}

type completions struct {
	mu  sync.Mutex
	ids []string
}

func (c *completions) complete(_ context.Context, m domain.Mission) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, m.ID)
	return nil
}

func (c *completions) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ids)
}

var mission = domain.MissionPool()[0]

func immediate(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func newWorkflow(t *testing.T, cam *fakeCamera, v Verifier, done *completions, after func(time.Duration) <-chan time.Time) *Workflow {
	t.Helper()
	if after == nil {
		after = immediate
	}
	return NewWorkflow(cam, v, done.complete, Config{
		Timeout:      time.Second,
		ConfirmDelay: 1500 * time.Millisecond,
		After:        after,
		Logger:       zaptest.NewLogger(t),
	})
}

func TestVerifiedProofCompletesMission(t *testing.T) {
	cam := &fakeCamera{}
	v := &fakeVerifier{verdict: domain.Verdict{Verified: true, Reason: "ok"}}
	done := &completions{}
	w := newWorkflow(t, cam, v, done, nil)

	require.NoError(t, w.Start(context.Background(), mission))
	assert.Equal(t, StateCapturing, w.Status().State)

	verdict, err := w.Capture(context.Background())
	require.NoError(t, err)
	assert.True(t, verdict.Verified)

	assert.Equal(t, []string{mission.ID}, done.ids)
	assert.Equal(t, StateIdle, w.Status().State)
	assert.Equal(t, 0, cam.live())

	require.Len(t, v.claims, 1)
	assert.Equal(t, mission.Title, v.claims[0].Title)
	assert.Equal(t, mission.Description, v.claims[0].Description)
	assert.Equal(t, []byte("jpeg"), v.claims[0].Image)
}

func TestRejectedProofKeepsMissionOpen(t *testing.T) {
	cam := &fakeCamera{}
	v := &fakeVerifier{verdict: domain.Verdict{Verified: false, Reason: "foto não mostra o item"}}
	done := &completions{}
	w := newWorkflow(t, cam, v, done, nil)

	require.NoError(t, w.Start(context.Background(), mission))
	verdict, err := w.Capture(context.Background())
	require.NoError(t, err)

	assert.False(t, verdict.Verified)
	status := w.Status()
	assert.Equal(t, StateRejected, status.State)
	assert.Equal(t, "foto não mostra o item", status.Reason)
	assert.Equal(t, mission.ID, status.MissionID)
	assert.Zero(t, done.count())
	assert.Equal(t, 0, cam.live())
}

func TestRetryAfterRejection(t *testing.T) {
	cam := &fakeCamera{}
	v := &fakeVerifier{verdict: domain.Verdict{Verified: false, Reason: "borrada"}}
	done := &completions{}
	w := newWorkflow(t, cam, v, done, nil)

	require.NoError(t, w.Start(context.Background(), mission))
	_, err := w.Capture(context.Background())
	require.NoError(t, err)

	v.verdict = domain.Verdict{Verified: true}
	require.NoError(t, w.Retry(context.Background()))
	assert.Equal(t, StateCapturing, w.Status().State)

	_, err = w.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, done.count())
	assert.Equal(t, 2, cam.opened)
	assert.Equal(t, 0, cam.live())
}

func TestRetryOnlyFromRejected(t *testing.T) {
	w := newWorkflow(t, &fakeCamera{}, &fakeVerifier{}, &completions{}, nil)
	assert.ErrorIs(t, w.Retry(context.Background()), domain.ErrInvalidTransition)
}

func TestClosedWorkflowCannotReopen(t *testing.T) {
	cam := &fakeCamera{}
	w := newWorkflow(t, cam, &fakeVerifier{verdict: domain.Verdict{Reason: "borrada"}}, &completions{}, nil)

	require.NoError(t, w.Start(context.Background(), mission))
	_, err := w.Capture(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateRejected, w.Status().State)

	w.Close()
	assert.ErrorIs(t, w.Retry(context.Background()), domain.ErrInvalidTransition)
	assert.ErrorIs(t, w.Start(context.Background(), mission), domain.ErrInvalidTransition)
	assert.Equal(t, 1, cam.opened)
	assert.Equal(t, 0, cam.live())
}

func TestOracleFailureMapsToRejected(t *testing.T) {
	cam := &fakeCamera{}
	v := &fakeVerifier{err: errors.New("connection reset")}
	done := &completions{}
	w := newWorkflow(t, cam, v, done, nil)

	require.NoError(t, w.Start(context.Background(), mission))
	verdict, err := w.Capture(context.Background())
	require.NoError(t, err)

	assert.False(t, verdict.Verified)
	assert.Equal(t, domain.FallbackVerificationReason, verdict.Reason)
	assert.Equal(t, StateRejected, w.Status().State)
	assert.Len(t, v.claims, 1, "must not retry silently")
	assert.Zero(t, done.count())
}

func TestOracleTimeoutMapsToRejected(t *testing.T) {
	cam := &fakeCamera{}
	v := &fakeVerifier{block: true}
	w := NewWorkflow(cam, v, (&completions{}).complete, Config{Timeout: 20 * time.Millisecond, After: immediate})

	require.NoError(t, w.Start(context.Background(), mission))
	verdict, err := w.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.FallbackVerificationReason, verdict.Reason)
	assert.Equal(t, StateRejected, w.Status().State)
}

func TestCameraDeniedReturnsToIdle(t *testing.T) {
	cam := &fakeCamera{openErr: errors.New("permission denied")}
	w := newWorkflow(t, cam, &fakeVerifier{}, &completions{}, nil)

	err := w.Start(context.Background(), mission)
	var derr *domain.DeviceError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "open", derr.Op)

	status := w.Status()
	assert.Equal(t, StateIdle, status.State)
	assert.Equal(t, domain.CameraUnavailableMessage, status.Reason)
}

func TestSnapshotFailureReleasesCamera(t *testing.T) {
	cam := &fakeCamera{snapErr: errors.New("no frame")}
	w := newWorkflow(t, cam, &fakeVerifier{}, &completions{}, nil)

	require.NoError(t, w.Start(context.Background(), mission))
	_, err := w.Capture(context.Background())
	var derr *domain.DeviceError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, StateIdle, w.Status().State)
	assert.Equal(t, 0, cam.live())
}

func TestCancelWhileCapturingReleasesCamera(t *testing.T) {
	cam := &fakeCamera{}
	w := newWorkflow(t, cam, &fakeVerifier{}, &completions{}, nil)

	require.NoError(t, w.Start(context.Background(), mission))
	assert.Equal(t, 1, cam.live())

	w.Cancel()
	assert.Equal(t, 0, cam.live())
	assert.Equal(t, StateIdle, w.Status().State)

	_, err := w.Capture(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCancelDuringVerificationIssuesNoReward(t *testing.T) {
	cam := &fakeCamera{}
	v := &fakeVerifier{block: true}
	done := &completions{}
	w := NewWorkflow(cam, v, done.complete, Config{Timeout: time.Minute, After: immediate})

	require.NoError(t, w.Start(context.Background(), mission))

	errc := make(chan error, 1)
	go func() {
		_, err := w.Capture(context.Background())
		errc <- err
	}()

	require.Eventually(t, func() bool {
		return w.Status().State == StateAwaitingVerification
	}, time.Second, time.Millisecond)
	w.Cancel()

	assert.ErrorIs(t, <-errc, ErrCancelled)
	assert.Equal(t, StateIdle, w.Status().State)
	assert.Zero(t, done.count())
	assert.Equal(t, 0, cam.live())
}

func TestCancelDuringConfirmDelayIssuesNoReward(t *testing.T) {
	cam := &fakeCamera{}
	v := &fakeVerifier{verdict: domain.Verdict{Verified: true}}
	done := &completions{}
	never := func(time.Duration) <-chan time.Time { return make(chan time.Time) }
	w := newWorkflow(t, cam, v, done, never)

	require.NoError(t, w.Start(context.Background(), mission))

	errc := make(chan error, 1)
	go func() {
		_, err := w.Capture(context.Background())
		errc <- err
	}()

	require.Eventually(t, func() bool {
		return w.Status().State == StateVerified
	}, time.Second, time.Millisecond)
	w.Cancel()

	assert.ErrorIs(t, <-errc, ErrCancelled)
	assert.Zero(t, done.count())
}

func TestStartWhileBusy(t *testing.T) {
	w := newWorkflow(t, &fakeCamera{}, &fakeVerifier{}, &completions{}, nil)
	require.NoError(t, w.Start(context.Background(), mission))
	assert.ErrorIs(t, w.Start(context.Background(), mission), domain.ErrWorkflowBusy)
	w.Close()
}

func TestStartRejectsMissionWithoutProof(t *testing.T) {
	w := newWorkflow(t, &fakeCamera{}, &fakeVerifier{}, &completions{}, nil)
	m := mission
	m.RequiresProof = false
	assert.ErrorIs(t, w.Start(context.Background(), m), domain.ErrInvalidTransition)
}

func TestStateNames(t *testing.T) {
	text, err := StateAwaitingVerification.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "awaiting_verification", string(text))
}
