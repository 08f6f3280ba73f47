package driven

// ConfigStore is a flat key/value settings store. Keys use dot notation,
// e.g. "retrieval.score_threshold".
//
// Typed getters return the zero value when a key is missing or holds another
// type, except GetFloat which also accepts integers.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetFloat(key string) float64
	GetBool(key string) bool

	// Set stores and persists value.
	Set(key string, value any) error

	// Keys returns the configured keys, sorted.
	Keys() []string

	Save() error
	Load() error

	// Path returns where the configuration is persisted.
	Path() string
}
