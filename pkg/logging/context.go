package logging

import (
	"log/slog"

	"github.com/google/uuid"
)

// WithJob creates a logger carrying the execution job id.
//
// Example:
//
//	log := logging.WithJob(jobID)
//	log.Info("pipeline finished", "rows", n)
func WithJob(jobID uuid.UUID) *slog.Logger {
	return GetLogger().With("job_id", jobID.String())
}

// WithRelation creates a logger with relation context.
// Use this in the analyzer and the catalog.
func WithRelation(name string) *slog.Logger {
	return GetLogger().With("relation", name)
}

// WithJoin creates a logger for a join operator or the join strategy.
//
// Example:
//
//	log := logging.WithJoin("sorted_merge")
//	log.Debug("right side replayed", "left_rows", n)
func WithJoin(algorithm string) *slog.Logger {
	return GetLogger().With("component", "join", "algorithm", algorithm)
}

// WithComponent creates a logger with component/subsystem context.
func WithComponent(component string) *slog.Logger {
	return GetLogger().With("component", component)
}

// WithError creates a logger with error context.
func WithError(err error) *slog.Logger {
	if err == nil {
		return GetLogger()
	}
	return GetLogger().With("error", err.Error())
}
