package pointers

import "time"

func String(v string) *string { return &v }

// Now returns a pointer to the current UTC time.
func Now() *time.Time {
	t := time.Now().UTC()
	return &t
}
