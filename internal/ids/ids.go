package ids

import "github.com/oklog/ulid/v2"

// New returns a lexicographically sortable identifier. Used for token
// jti values and request ids.
func New() string {
	return ulid.Make().String()
}
