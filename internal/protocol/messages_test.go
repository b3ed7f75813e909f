package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_DeviceReading(t *testing.T) {
	tests := []struct {
		name    string
		fields  Fields
		wantErr bool
	}{
		{name: "number value", fields: Fields{"deviceId": "d1", "type": "temp", "value": 21.5}},
		{name: "zero value", fields: Fields{"deviceId": "d1", "type": "temp", "value": 0.0}},
		{name: "bool value", fields: Fields{"deviceId": "d1", "type": "door", "value": false}},
		{name: "missing value", fields: Fields{"deviceId": "d1", "type": "temp"}, wantErr: true},
		{name: "missing type", fields: Fields{"deviceId": "d1", "value": 1.0}, wantErr: true},
		{name: "missing deviceId", fields: Fields{"type": "temp", "value": 1.0}, wantErr: true},
		{name: "nil fields", fields: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse[DeviceReading](tt.fields)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPayload)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParse_ControlCommand(t *testing.T) {
	cmd, err := Parse[ControlCommand](Fields{"command": "restart", "target": "probe-3", "extra": 1.0})
	require.NoError(t, err)
	assert.Equal(t, ControlCommand{Command: "restart", Target: "probe-3"}, cmd)

	_, err = Parse[ControlCommand](Fields{"command": "restart"})
	require.ErrorIs(t, err, ErrInvalidPayload)
	assert.Contains(t, err.Error(), "target")
}

func TestParse_QoSNack(t *testing.T) {
	n, err := Parse[QoSNack](Fields{"sequence": 0.0})
	require.NoError(t, err)
	require.NotNil(t, n.Sequence)
	assert.Equal(t, uint64(0), *n.Sequence)

	_, err = Parse[QoSNack](Fields{})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = Parse[QoSNack](Fields{"sequence": "seven"})
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestParse_Login(t *testing.T) {
	_, err := Parse[Login](Fields{"username": "e", "password": "p", "role": "admin"})
	assert.ErrorIs(t, err, ErrInvalidPayload)

	l, err := Parse[Login](Fields{"username": "e", "password": "p", "role": "expert"})
	require.NoError(t, err)
	assert.Equal(t, "expert", l.Role)
}

func TestStatus_Encode(t *testing.T) {
	now := time.UnixMilli(5000)
	raw := Status{Code: CodeForbidden, Message: "join a room first"}.Encode(now)
	f, _, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, KindServerEvent, f.Kind)
	assert.Equal(t, int64(5000), f.Timestamp)
	assert.EqualValues(t, 403, f.Fields.Int("code"))
	assert.Equal(t, "join a room first", f.Fields["message"])
}

func TestEvent(t *testing.T) {
	f, _, err := Decode(Event("member_joined", Fields{"username": "a"}, time.UnixMilli(1)))
	require.NoError(t, err)
	assert.Equal(t, "member_joined", f.Fields.String("event"))
	assert.Equal(t, "a", f.Fields.String("username"))
}
