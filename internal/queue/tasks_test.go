package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngestor struct {
	calls   int
	path    string
	replace bool
	err     error
}

func (f *fakeIngestor) IngestPDF(ctx context.Context, path string, replace bool) (int, error) {
	f.calls++
	f.path = path
	f.replace = replace
	if f.err != nil {
		return 0, f.err
	}
	return 3, nil
}

type fakeNotifier struct {
	calls int
	err   error
}

func (f *fakeNotifier) NotifyReload(ctx context.Context) error {
	f.calls++
	return f.err
}

func ingestTask(t *testing.T, path string, replace bool) *asynq.Task {
	t.Helper()
	task, err := NewIngestPDFTask(path, replace)
	require.NoError(t, err)
	return task
}

func TestProcessIngestPDFNotifiesServingProcesses(t *testing.T) {
	ingestor := &fakeIngestor{}
	notifier := &fakeNotifier{}
	processor := NewTaskProcessor(ingestor, notifier)

	err := processor.ProcessIngestPDF(context.Background(), ingestTask(t, "/data/knowledge.pdf", true))
	require.NoError(t, err)

	assert.Equal(t, 1, ingestor.calls)
	assert.Equal(t, "/data/knowledge.pdf", ingestor.path)
	assert.True(t, ingestor.replace)
	assert.Equal(t, 1, notifier.calls, "a completed ingest must signal a reload")
}

func TestProcessIngestPDFFailedIngestDoesNotNotify(t *testing.T) {
	ingestor := &fakeIngestor{err: errors.New("extract failed")}
	notifier := &fakeNotifier{}
	processor := NewTaskProcessor(ingestor, notifier)

	err := processor.ProcessIngestPDF(context.Background(), ingestTask(t, "/data/knowledge.pdf", true))
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
	assert.Equal(t, 0, notifier.calls)
}

func TestProcessIngestPDFFailedNotifyRetriesTask(t *testing.T) {
	ingestor := &fakeIngestor{}
	notifier := &fakeNotifier{err: errors.New("redis down")}
	processor := NewTaskProcessor(ingestor, notifier)

	err := processor.ProcessIngestPDF(context.Background(), ingestTask(t, "/data/knowledge.pdf", true))
	require.Error(t, err)
	// Retryable: the signal must eventually reach the serving processes.
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestProcessIngestPDFMalformedPayloadSkipsRetry(t *testing.T) {
	processor := NewTaskProcessor(&fakeIngestor{}, &fakeNotifier{})

	task := asynq.NewTask(TaskIngestPDF, []byte("{not json"))
	err := processor.ProcessIngestPDF(context.Background(), task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}
