// Package idgen generates the UUIDs used for A2A task ids and plan step
// ids, the same way the teacher's flat a2a/server.go does.
package idgen

import (
	"strconv"

	"github.com/google/uuid"
)

func New() string {
	return uuid.New().String()
}

// StepID generates a short, plan-scoped step identifier: s0, s1, s2, ...
func StepID(index int) string {
	return "s" + strconv.Itoa(index)
}
