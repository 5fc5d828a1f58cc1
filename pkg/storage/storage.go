package storage

// Storage defines the root interface for the entire data layer.
// Components should depend on the narrower interfaces (AccountWriter,
// ConnectionRegistry, etc.) instead of this one.
type Storage interface {
	AccountStore
	ConnectionStore
}
