package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/finassist/internal/dispatch"
	"github.com/dvloznov/finassist/internal/jobs"
)

func waitForStatus(t *testing.T, s *Store, jobID string, want jobs.JobStatus) *jobs.OperationJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		j, err := s.GetJob(context.Background(), jobID)
		if err == nil && j.Status == want {
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
	return nil
}

func TestQueue_RunsJobsOnce(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 2, store)

	var calls atomic.Int32
	handler := func(ctx context.Context, job *jobs.OperationJob) error {
		calls.Add(1)
		msg := "Error creating transactions record: boom"
		job.Result = &dispatch.Result{Entity: job.Request.Entity, Error: &msg, ErrorKind: dispatch.KindPersistenceFailure}
		if job.Request.Entity == "transactions" {
			return job.Result.Err()
		}
		job.Result = &dispatch.Result{Success: true, Entity: job.Request.Entity}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := q.Start(ctx, handler); err != nil {
		t.Fatalf("Start: %v", err)
	}

	failing := &jobs.OperationJob{Request: dispatch.Request{Operation: "CREATE", Entity: "transactions"}}
	passing := &jobs.OperationJob{Request: dispatch.Request{Operation: "CREATE", Entity: "accounts"}}
	for _, j := range []*jobs.OperationJob{failing, passing} {
		if err := q.Publish(ctx, j); err != nil {
			t.Fatalf("Publish: %v", err)
		}
		if j.JobID == "" || j.CreatedAt.IsZero() {
			t.Errorf("Publish did not assign id/timestamp: %+v", j)
		}
	}

	failed := waitForStatus(t, store, failing.JobID, jobs.JobStatusFailed)
	if failed.Error == "" || failed.Result == nil || failed.CompletedAt == nil {
		t.Errorf("failed job = %+v", failed)
	}
	done := waitForStatus(t, store, passing.JobID, jobs.JobStatusCompleted)
	if done.Result == nil || !done.Result.Success || done.StartedAt == nil {
		t.Errorf("completed job = %+v", done)
	}

	if err := q.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	for _, j := range []*jobs.OperationJob{failing, passing} {
		if j.Status != jobs.JobStatusPending || j.Result != nil {
			t.Errorf("published job was modified by a worker: %+v", j)
		}
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("handler calls = %d, want 2 (no retries)", got)
	}
}

func TestQueue_PublishAfterClose(t *testing.T) {
	q := NewQueue(1, 1, nil)
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := q.Publish(context.Background(), &jobs.OperationJob{}); err == nil {
		t.Error("Publish after Close succeeded")
	}
	if err := q.Start(context.Background(), nil); err == nil {
		t.Error("Start after Close succeeded")
	}
	// Stopping twice is a no-op.
	if err := q.Stop(context.Background()); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestQueue_PublishRespectsContext(t *testing.T) {
	q := NewQueue(0, 1, nil)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := q.Publish(ctx, &jobs.OperationJob{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Publish() error = %v, want context.Canceled", err)
	}
}
