// Package logging provides the process-wide structured logger for dexql.
//
// The package wraps [log/slog] and exposes a single global logger that is
// configured once by Init and retrieved with GetLogger. The analyzer, the
// join strategy, the consumer driver and the command all log through it, so
// level, format and destination are controlled from one place.
//
// # Initialisation
//
//	if err := logging.Init(logging.Config{Level: logging.LevelDebug, Format: "json"}); err != nil {
//	    log.Fatal(err)
//	}
//
// If GetLogger is called before Init, a default stderr logger at INFO level
// is created lazily.
//
// # Context helpers
//
//	log := logging.WithJob(jobID)          // adds job_id
//	log := logging.WithJoin("hash_block")  // adds component=join, algorithm
//	log := logging.WithRelation("doc.t")   // adds relation
package logging
