package protocol

import "time"

// Response codes carried in server events.
const (
	CodeOK           = 0
	CodeBadRequest   = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeConflict     = 409
	CodeTooMany      = 429
	CodeInternal     = 500
)

// Status is the uniform {code, message} reply sent to a single connection.
type Status struct {
	Code    int
	Message string
	Extra   Fields
}

func (s Status) Fields() Fields {
	f := make(Fields, len(s.Extra)+2)
	for k, v := range s.Extra {
		f[k] = v
	}
	f["code"] = s.Code
	f["message"] = s.Message
	return f
}

func (s Status) Encode(now time.Time) []byte {
	return Encode(KindServerEvent, s.Fields(), nil, now.UnixMilli())
}

// Event is a server-originated notification such as member_joined.
func Event(name string, fields Fields, now time.Time) []byte {
	f := fields.Clone()
	f["event"] = name
	return Encode(KindServerEvent, f, nil, now.UnixMilli())
}
