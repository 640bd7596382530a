package model

// TaskSource supplies the initial task batch and the resource pool. The
// spreadsheet importer implements this on the outside of the engine; a thin
// JSON file adapter ships in infra for standalone runs.
type TaskSource interface {
	Load() ([]Task, ResourcePool, error)
}
