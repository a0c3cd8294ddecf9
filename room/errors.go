// room/errors.go
package room

// ErrorCode is the symbolic kind of a failed room operation. Codes are
// stable wire values surfaced to clients alongside an optional detail.
type ErrorCode string

const (
	CodeRoomNotFound   ErrorCode = "room_not_found"
	CodeNotController  ErrorCode = "not_controller"
	CodeBadState       ErrorCode = "bad_state"
	CodeStationsInUse  ErrorCode = "stations_in_use"
	CodeStationTaken   ErrorCode = "station_taken"
	CodeInvalidStation ErrorCode = "invalid_station"
	CodeInvalidPayload ErrorCode = "invalid_payload"
	CodeRateLimited    ErrorCode = "rate_limited"
)

// Error carries a symbolic code plus a human-readable detail.
type Error struct {
	Code   ErrorCode `json:"code"`
	Detail string    `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Detail
}

// Is matches any *Error with the same code, so callers can test against the
// sentinel values below regardless of detail text.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func NewError(code ErrorCode, detail string) *Error {
	return &Error{Code: code, Detail: detail}
}

// Sentinels for errors.Is checks.
var (
	ErrRoomNotFound   = &Error{Code: CodeRoomNotFound}
	ErrNotController  = &Error{Code: CodeNotController}
	ErrBadState       = &Error{Code: CodeBadState}
	ErrStationsInUse  = &Error{Code: CodeStationsInUse}
	ErrStationTaken   = &Error{Code: CodeStationTaken}
	ErrInvalidStation = &Error{Code: CodeInvalidStation}
	ErrInvalidPayload = &Error{Code: CodeInvalidPayload}
	ErrRateLimited    = &Error{Code: CodeRateLimited}
)
