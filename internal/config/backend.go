package config

// Backend persists config keys with their native types: the file backend
// keeps JSON numbers, booleans and arrays, the macOS backend uses typed
// `defaults` entries. A missing key reports ok == false.
type Backend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	GetBool(key string) (val bool, ok bool, err error)
	GetList(key string) (val []string, ok bool, err error)

	SetString(key, val string) error
	SetInt(key string, val int) error
	SetBool(key string, val bool) error
	SetList(key string, val []string) error

	// Unset removes key so that the default applies again.
	Unset(key string) error
}
