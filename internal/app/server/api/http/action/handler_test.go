package action

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spratt/internal/app/server/api/http/middleware/auth"
	"spratt/internal/domain/action"
	"spratt/internal/utils/logger"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) List(ctx context.Context, userID int, status string) ([]action.Action, error) {
	args := m.Called(ctx, userID, status)
	return args.Get(0).([]action.Action), args.Error(1)
}

func (m *MockService) Decide(ctx context.Context, userID int, id, decision string) (action.Action, error) {
	args := m.Called(ctx, userID, id, decision)
	return args.Get(0).(action.Action), args.Error(1)
}

func TestHandler_list(t *testing.T) {
	svc := new(MockService)
	svc.On("List", mock.Anything, 3, "pending").Return([]action.Action{{
		ID:          "a1",
		RecordingID: "r1",
		Type:        action.TypeCall,
		Title:       "Call Alice",
		Status:      action.StatusPending,
		Metadata:    map[string]string{"contact": "Alice"},
	}}, nil)
	h := NewHandler(svc, logger.NewDiscard(), nil)

	out, err := h.list(auth.WithUserID(context.Background(), 3), &listInput{Status: "pending"})

	require.NoError(t, err)
	require.Len(t, out.Body.Data, 1)
	assert.Equal(t, "call", out.Body.Data[0].ActionType)
	assert.Equal(t, "Alice", out.Body.Data[0].Metadata["contact"])
}

func TestHandler_decide(t *testing.T) {
	decidedAt := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "approved"},
		{name: "not found", err: action.ErrNotFound, wantCode: http.StatusNotFound},
		{name: "already decided", err: fmt.Errorf("%w: approved", action.ErrAlreadyDecided), wantCode: http.StatusConflict},
		{name: "invalid", err: action.ErrInvalidStatus, wantCode: http.StatusBadRequest},
		{name: "database", err: errors.New("timeout"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("Decide", mock.Anything, 3, "a1", "approved").
				Return(action.Action{ID: "a1", Status: action.StatusApproved, DecidedAt: &decidedAt}, tt.err)
			h := NewHandler(svc, logger.NewDiscard(), nil)

			input := &decideInput{ID: "a1"}
			input.Body.Decision = "approved"
			out, err := h.decide(auth.WithUserID(context.Background(), 3), input)

			if tt.wantCode != 0 {
				var se huma.StatusError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, tt.wantCode, se.GetStatus())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "approved", out.Body.Data.Status)
			assert.Equal(t, &decidedAt, out.Body.Data.DecidedAt)
		})
	}
}

func TestHandler_Routes(t *testing.T) {
	svc := new(MockService)
	svc.On("Decide", mock.Anything, 3, "a1", "rejected").Return(action.Action{ID: "a1", Status: action.StatusRejected}, nil)

	_, api := humatest.New(t)
	asUser := func(ctx huma.Context, next func(huma.Context)) {
		next(huma.WithContext(ctx, auth.WithUserID(ctx.Context(), 3)))
	}
	NewHandler(svc, logger.NewDiscard(), huma.Middlewares{asUser}).SetupRoutes(api)

	resp := api.Post("/api/v1/actions/a1/decision", map[string]any{"decision": "rejected"})
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"status":"rejected"`)

	resp = api.Post("/api/v1/actions/a1/decision", map[string]any{"decision": "maybe"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	resp = api.Get("/api/v1/actions?status=done")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	svc.AssertNumberOfCalls(t, "Decide", 1)
}
