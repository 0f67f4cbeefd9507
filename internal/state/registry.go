package state

import "github.com/five82/gatehouse/internal/adminapi"

// Registry holds one store per entity kind. Build it once at startup and
// pass it to whatever needs it; tests construct their own.
type Registry struct {
	Vehicles *Store[adminapi.Vehicle]
	Users    *Store[adminapi.User]
	Guards   *Store[adminapi.Guard]
	Requests *Store[adminapi.Request]
	Logs     *Store[adminapi.AccessLog]
	Dues     *Store[adminapi.Due]
	Audit    *Store[adminapi.AuditEntry]
	Settings *Store[adminapi.Settings]
	Metrics  *Store[adminapi.Metrics]
}

// NewRegistry returns a registry of empty stores.
func NewRegistry() *Registry {
	return &Registry{
		Vehicles: NewStore[adminapi.Vehicle](),
		Users:    NewStore[adminapi.User](),
		Guards:   NewStore[adminapi.Guard](),
		Requests: NewStore[adminapi.Request](),
		Logs:     NewStore[adminapi.AccessLog](),
		Dues:     NewStore[adminapi.Due](),
		Audit:    NewStore[adminapi.AuditEntry](),
		Settings: NewStore[adminapi.Settings](),
		Metrics:  NewStore[adminapi.Metrics](),
	}
}
