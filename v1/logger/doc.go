// Package logger provides structured, leveled logging built on Uber's Zap.
//
// The package wraps zap behind a small API where every call site passes a
// message, an optional error, and optional maps of structured fields:
//
//	log := logger.NewLoggerClient(logger.Config{
//	    Level:       logger.Info,
//	    ServiceName: "cluster-worker",
//	})
//	log.Info("node resolved", nil, map[string]interface{}{
//	    "node_id": node.ID,
//	    "addr":    node.Addr(),
//	})
//
// Other packages in this library accept any implementation of their local
// Logger interface; *logger.Logger satisfies all of them.
//
// For Fx-based applications, FXModule provides the logger and registers a
// shutdown hook that flushes buffered entries.
package logger
