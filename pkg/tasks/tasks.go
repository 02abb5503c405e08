// Package tasks defines the messages sent through Kafka.
package tasks

// Reasons a stored object is queued for removal.
const (
	ReasonUploadRollback = "upload_rollback"
	ReasonDeleteFailed   = "delete_failed"
	ReasonOrphanSweep    = "orphan_sweep"
)

// StorageCleanupTask asks the janitor to delete one stored object.
type StorageCleanupTask struct {
	ObjectKey  string `json:"object_key"`
	ResourceID string `json:"resource_id,omitempty"`
	Reason     string `json:"reason"`
}
