// Package logtail reads the end of gatehouse's own log file.
//
// Read keeps a ring buffer of the last maxLines lines, so memory stays
// bounded by the request rather than the file size. Level and AtLeast parse
// the level= attribute written by slog's text handler so callers can show
// only warnings and errors.
//
//	lines, err := logtail.Read(cfg.LogFile, 200)
//	if err != nil {
//		return err
//	}
//	lines = logtail.AtLeast(lines, slog.LevelWarn)
package logtail
