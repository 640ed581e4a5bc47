// internal/common/dispatch/dispatch_test.go
package dispatch

import (
	"context"
	"errors"
	"testing"

	"applysync/internal/models"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockInstanceCreator struct {
	CreateInstanceFunc func(ctx context.Context, processID string, variables interface{}) (int64, error)
}

func (m *MockInstanceCreator) CreateInstance(ctx context.Context, processID string, variables interface{}) (int64, error) {
	return m.CreateInstanceFunc(ctx, processID, variables)
}

func TestRedisDispatcher_Dispatch(t *testing.T) {
	db, mock := redismock.NewClientMock()
	d := NewRedisDispatcher(db, "applysync:followup")

	mock.ExpectLPush("applysync:followup", []byte(`{"recipientEmail":"a@b.com","recipientName":"A"}`)).SetVal(1)

	err := d.Dispatch(context.Background(), models.FollowUpInvocation{RecipientEmail: "a@b.com", RecipientName: "A"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisDispatcher_Error(t *testing.T) {
	db, mock := redismock.NewClientMock()
	d := NewRedisDispatcher(db, "q")

	mock.ExpectLPush("q", []byte(`{"recipientEmail":"a@b.com","recipientName":"A"}`)).SetErr(errors.New("READONLY"))

	err := d.Dispatch(context.Background(), models.FollowUpInvocation{RecipientEmail: "a@b.com", RecipientName: "A"})
	assert.ErrorContains(t, err, "READONLY")
}

func TestZeebeDispatcher_Dispatch(t *testing.T) {
	var gotProcess string
	var gotVars interface{}
	creator := &MockInstanceCreator{
		CreateInstanceFunc: func(ctx context.Context, processID string, variables interface{}) (int64, error) {
			gotProcess = processID
			gotVars = variables
			return 2251799813685249, nil
		},
	}
	d := NewZeebeDispatcher(creator, "follow-up-email")
	inv := models.FollowUpInvocation{RecipientEmail: "a@b.com", RecipientName: "A"}

	require.NoError(t, d.Dispatch(context.Background(), inv))
	assert.Equal(t, "follow-up-email", gotProcess)
	assert.Equal(t, inv, gotVars)
}

func TestZeebeDispatcher_Error(t *testing.T) {
	creator := &MockInstanceCreator{
		CreateInstanceFunc: func(ctx context.Context, processID string, variables interface{}) (int64, error) {
			return 0, errors.New("NOT_FOUND: no process with id")
		},
	}
	err := NewZeebeDispatcher(creator, "p").Dispatch(context.Background(), models.FollowUpInvocation{})
	assert.ErrorContains(t, err, "NOT_FOUND")
}
