package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "relay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RegisterAndAuthenticate(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	u, err := s.Register(ctx, domain.Account{Username: "alice", Password: "secret1", Email: "a@example.com", Role: domain.RoleExpert})
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.NotEmpty(t, u.ID)

	_, err = s.Register(ctx, domain.Account{Username: "alice", Password: "other12", Role: domain.RoleViewer})
	assert.ErrorIs(t, err, domain.ErrUserExists)

	got, err := s.Authenticate(ctx, "alice", "secret1", domain.RoleExpert)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.IsExpert())

	tests := []struct {
		name     string
		username string
		password string
		role     domain.Role
	}{
		{"wrong password", "alice", "nope", domain.RoleExpert},
		{"wrong role", "alice", "secret1", domain.RoleViewer},
		{"unknown user", "bob", "secret1", domain.RoleExpert},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Authenticate(ctx, tt.username, tt.password, tt.role)
			assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		})
	}
}

func TestStore_WorkOrders(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	_, err := s.Register(ctx, domain.Account{Username: "alice", Password: "secret1", Role: domain.RoleExpert})
	require.NoError(t, err)

	require.NoError(t, s.OpenWorkOrder(ctx, "WO-42", "alice"))
	require.NoError(t, s.OpenWorkOrder(ctx, "WO-42", "alice"))

	status, err := s.WorkOrderStatus(ctx, "WO-42")
	require.NoError(t, err)
	assert.Equal(t, "open", status)

	_, err = s.WorkOrderStatus(ctx, "WO-0")
	assert.Error(t, err)
}

func TestStore_Recordings(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	at := time.UnixMilli(1_700_000_000_000)

	require.NoError(t, s.SaveRecording(ctx, domain.Recording{Room: "WO-1", DataType: domain.RecordText, Frame: []byte("a"), At: at}))
	require.NoError(t, s.SaveRecording(ctx, domain.Recording{Room: "WO-1", DataType: domain.RecordVideo, Frame: []byte("b"), At: at.Add(time.Second)}))
	require.NoError(t, s.SaveRecording(ctx, domain.Recording{Room: "WO-2", DataType: domain.RecordAudio, Frame: []byte("c"), At: at}))

	recs, err := s.Recordings(ctx, "WO-1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, domain.RecordText, recs[0].DataType)
	assert.Equal(t, []byte("b"), recs[1].Frame)
	assert.True(t, at.Add(time.Second).Equal(recs[1].At))
}
