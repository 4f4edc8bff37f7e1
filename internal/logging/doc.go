// Package logging provides structured logging for inkgate runs.
//
// This package wraps Go's log/slog to provide JSON-formatted logs. Each
// coordinator call creates a child logger tagged with a session ID and the
// repository path, and each protocol step narrows it further, so a single
// open or close can be reconstructed from the log after the fact.
//
// # Destinations
//
// Logs go to stderr unless a log directory is configured, in which case they
// are appended to {dir}/inkgate.log. Stdout is reserved for command results
// and the MCP JSON-RPC stream. [NewLoggerWithRotation] rotates the file by
// size into inkgate.log.1 .. .N, optionally gzipped.
//
// # Reading Logs Back
//
// [ReadLogs] parses the active file and its backups, [FilterLogs] narrows
// them by session, repository, operation, level or time, and [WriteEntries]
// renders them as text, JSON or CSV. `inkgate logs` is built on these.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	log := logger.WithSession(id).WithRepository(repo)
//	log.WithStep("admission").Warn("stale lock recovered", "age_minutes", 95)
//
// Output:
//
//	{"time":"...","level":"WARN","msg":"stale lock recovered","session_id":"...","repo":"/books/novel","step":"admission","age_minutes":95}
package logging
