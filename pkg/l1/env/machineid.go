package env

import (
	"strings"

	"github.com/denisbrodbeck/machineid"
)

// AppID scopes the machine ID so it doesn't leak the raw ID.
const AppID = "lockstep"

// MachineID retrieves the unique ID identifying the machine, trimmed
// to be usable as a controller ID.
func MachineID() string {
	id, err := machineid.ProtectedID(AppID)
	if err != nil {
		panic(err)
	}
	return ShortID(id)
}

// ShortID keeps the first 12 characters of a lowercased ID.
func ShortID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if len(id) > 12 {
		id = id[:12]
	}
	return id
}
