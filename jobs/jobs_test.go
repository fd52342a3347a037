package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "1"}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

func TestEnqueueInvoiceExport(t *testing.T) {
	fake := &fakeEnqueuer{}
	client := &Client{client: fake}
	id := uuid.New()

	require.NoError(t, client.EnqueueInvoiceExport(context.Background(), id, "owner-1"))
	require.Len(t, fake.tasks, 1)
	assert.Equal(t, TaskInvoiceExport, fake.tasks[0].Type())

	var payload InvoiceExportPayload
	require.NoError(t, json.Unmarshal(fake.tasks[0].Payload(), &payload))
	assert.Equal(t, id, payload.InvoiceID)
	assert.Equal(t, "owner-1", payload.OwnerID)
}

func TestEnqueueInvoiceExportIgnoresDuplicates(t *testing.T) {
	client := &Client{client: &fakeEnqueuer{err: asynq.ErrTaskIDConflict}}
	assert.NoError(t, client.EnqueueInvoiceExport(context.Background(), uuid.New(), "owner-1"))

	client = &Client{client: &fakeEnqueuer{err: errors.New("redis down")}}
	assert.Error(t, client.EnqueueInvoiceExport(context.Background(), uuid.New(), "owner-1"))
}

func TestNewInvoiceExportTaskRejectsIncompletePayload(t *testing.T) {
	_, err := NewInvoiceExportTask(InvoiceExportPayload{OwnerID: "owner-1"})
	assert.Error(t, err)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func TestHealthEndpoint(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3}}, slog.Default()).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queue":"default","pending":3,"active":0,"failed":0}`, rr.Body.String())
}

func TestHealthEndpointUnavailable(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(stubInspector{err: errors.New("down")}, slog.Default()).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
