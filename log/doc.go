// Package log provides the leveled logger used by the docchat pipeline.
//
// Loggers are printf-style and backed by kataras/golog. A package-level logger
// is used by library code so callers can turn logging on or off without passing
// a logger through every constructor:
//
//	log.SetLogLevel(log.LevelDebug)
//	log.Info("indexed %d chunks", n)
//
// Configuration strings are converted with ParseLevel.
package log
