package db

// --------------------------------------------------------------------------
// Database Interface
// --------------------------------------------------------------------------

// KVDB defines an interface for key-value database implementations.
// It is the storage seam of the server: all locking discipline lives behind
// this interface, never at the call sites.
// Any implementation of this interface must manage keys in a consistent way.
type KVDB interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Set inserts or updates an entry with the given key and value.
	// If the key already exists, the old value is overwritten.
	Set(key string, value []byte)

	// Delete removes an entry with the specified key.
	// The boolean return value indicates whether the key existed.
	// Deleting an absent key is not an error.
	Delete(key string) (existed bool)

	// Clear removes all entries.
	Clear()

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get retrieves the value for an exact key.
	// The boolean return value indicates whether a value for the key was found.
	Get(key string) (value []byte, loaded bool)

	// Has checks whether a key exists in the database.
	Has(key string) (loaded bool)

	// Len returns the number of stored entries.
	Len() int

	// ForEach calls fn for every entry until fn returns false.
	// The iteration order is unspecified. fn must not call back into the
	// database.
	ForEach(fn func(key string, value []byte) bool)
}
