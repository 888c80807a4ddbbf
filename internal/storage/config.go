package storage

// Config holds attachment storage configuration
type Config struct {
	Dir            string // Root directory for stored attachments
	MaxUploadBytes int64  // Largest accepted upload
}
