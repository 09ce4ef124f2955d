package ids

import "github.com/segmentio/ksuid"

// New returns a sortable unique id used for upload records and log entries.
func New() string {
	return ksuid.New().String()
}
