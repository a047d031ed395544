package storage

import "github.com/olehkaliuzhnyi/bookstore-demo/pkg/models"

// OperationStore keeps the log of confirmed store operations.
type OperationStore interface {
	// Record appends a confirmed operation to the log.
	Record(op *models.Operation) error
	// Get returns a recorded operation by ID, or nil if not found.
	Get(id string) (*models.Operation, error)
	// List returns all recorded operations in insertion order.
	List() ([]models.Operation, error)
}
