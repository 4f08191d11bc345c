package action

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spratt/internal/utils/logger"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) List(ctx context.Context, userID int, status Status) ([]Action, error) {
	args := m.Called(ctx, userID, status)
	return args.Get(0).([]Action), args.Error(1)
}

func (m *MockRepository) Get(ctx context.Context, userID int, id string) (Action, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(Action), args.Error(1)
}

func (m *MockRepository) Decide(ctx context.Context, userID int, id string, status Status) (Action, error) {
	args := m.Called(ctx, userID, id, status)
	return args.Get(0).(Action), args.Error(1)
}

func TestService_List(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		callRepo bool
		wantErr  error
	}{
		{name: "all", status: "", callRepo: true},
		{name: "pending", status: "pending", callRepo: true},
		{name: "unknown status", status: "done", wantErr: ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			if tt.callRepo {
				repo.On("List", mock.Anything, 1, Status(tt.status)).Return([]Action{{ID: "a1"}}, nil)
			}
			service := NewService(repo, logger.NewDiscard())

			got, err := service.List(context.Background(), 1, tt.status)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Len(t, got, 1)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestService_Decide(t *testing.T) {
	tests := []struct {
		name     string
		decision string
		setup    func(repo *MockRepository)
		want     Status
		wantErr  error
	}{
		{
			name:     "approve pending",
			decision: "approved",
			setup: func(repo *MockRepository) {
				repo.On("Decide", mock.Anything, 1, "a1", StatusApproved).
					Return(Action{ID: "a1", Status: StatusApproved}, nil)
			},
			want: StatusApproved,
		},
		{
			name:     "reject pending",
			decision: "rejected",
			setup: func(repo *MockRepository) {
				repo.On("Decide", mock.Anything, 1, "a1", StatusRejected).
					Return(Action{ID: "a1", Status: StatusRejected}, nil)
			},
			want: StatusRejected,
		},
		{
			name:     "back to pending is not a decision",
			decision: "pending",
			setup:    func(*MockRepository) {},
			wantErr:  ErrInvalidStatus,
		},
		{
			name:     "already decided",
			decision: "rejected",
			setup: func(repo *MockRepository) {
				repo.On("Decide", mock.Anything, 1, "a1", StatusRejected).Return(Action{}, ErrNotFound)
				repo.On("Get", mock.Anything, 1, "a1").Return(Action{ID: "a1", Status: StatusApproved}, nil)
			},
			want:    StatusApproved,
			wantErr: ErrAlreadyDecided,
		},
		{
			name:     "missing action",
			decision: "approved",
			setup: func(repo *MockRepository) {
				repo.On("Decide", mock.Anything, 1, "a1", StatusApproved).Return(Action{}, ErrNotFound)
				repo.On("Get", mock.Anything, 1, "a1").Return(Action{}, ErrNotFound)
			},
			wantErr: ErrNotFound,
		},
		{
			name:     "repository failure",
			decision: "approved",
			setup: func(repo *MockRepository) {
				repo.On("Decide", mock.Anything, 1, "a1", StatusApproved).Return(Action{}, errors.New("conn closed"))
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			repo := new(MockRepository)
			tt.setup(repo)
			service := NewService(repo, logger.NewDiscard())

			// Act
			got, err := service.Decide(context.Background(), 1, "a1", tt.decision)

			// Assert
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.want == "":
				assert.Error(t, err)
			default:
				require.NoError(t, err)
			}
			if tt.want != "" {
				assert.Equal(t, tt.want, got.Status)
			}
			repo.AssertExpectations(t)
		})
	}
}
