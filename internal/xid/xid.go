package xid

import (
	"fmt"

	"github.com/google/uuid"
)

// New returns a random record id such as "bill-3f0c...".
func New(prefix string) string {
	id := uuid.NewString()
	if prefix == "" {
		return id
	}
	return fmt.Sprintf("%s-%s", prefix, id)
}
