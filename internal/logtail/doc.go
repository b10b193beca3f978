// Package logtail reads the newest lines of devpanel's own log file.
//
// devpanel writes zerolog JSON to a file while the TUI owns the terminal.
// The logs page shows that file as the "client" source next to the backend
// log streams, so Entries decodes each JSON line into the same LogEntry the
// backend returns: time, level and message map directly, the component
// field becomes Source and an error field is appended to the message.
//
// Read keeps only a fixed window of lines in memory regardless of file size.
package logtail
