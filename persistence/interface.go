// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/wfunc/stationhub/room"
)

// Store persists room snapshots across process restarts. Best effort only:
// callers log failures and carry on.
type Store interface {
	SaveRoom(snap room.Snapshot) error
	LoadRoom(code string) (room.Snapshot, error)
	DeleteRoom(code string) error
	ListCodes() ([]string, error)
	Close() error
}

var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
