package lead

import (
	"fmt"
	"strings"
	"time"
)

// Lead is the upstream capture of a funnel visitor, created before any
// payment intent exists. The reconciler consults it read-only for
// name and linked-id fallback.
type Lead struct {
	ID          int64
	CustomerKey string
	Name        string
	Phone       string
	CreatedAt   time.Time
}

// New creates a lead with validation
func New(key, name, phone string) (*Lead, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("lead customer key is required")
	}
	return &Lead{
		CustomerKey: key,
		Name:        strings.TrimSpace(name),
		Phone:       strings.TrimSpace(phone),
		CreatedAt:   time.Now(),
	}, nil
}
