package backend

// Event kinds published on the bus by the transport adapter. The ingestion
// engine subscribes to the "backend." namespace and switches on these.
const (
	KindMessage           = "backend.message"
	KindGroupMessage      = "backend.group_message"
	KindImageMessage      = "backend.image_message"
	KindGroupImageMessage = "backend.group_image_message"
	KindFileMessage       = "backend.file_message"
	KindGroupFileMessage  = "backend.group_file_message"
	KindDownloadStarted   = "backend.download_started"
	KindDownloadProgress  = "backend.download_progress"
	KindDownloadCompleted = "backend.download_completed"
	KindDownloadFailed    = "backend.download_failed"
)

// MessageEvent is the payload of a direct or group text message.
// GroupID is empty for direct messages.
type MessageEvent struct {
	MsgID     string
	FromID    string
	FromName  string
	GroupID   string
	Content   string
	Timestamp int64
}

// FileMessageEvent is the payload of an inbound image or file share.
// DownloadError is set when the backend already failed to stage the file.
type FileMessageEvent struct {
	MsgID         string
	FromID        string
	FromName      string
	GroupID       string
	ShareCode     string
	Filename      string
	FileSize      int64
	FileType      string
	Timestamp     int64
	DownloadError string
}

// DownloadStartedEvent reports that a file download began.
type DownloadStartedEvent struct {
	DownloadID string
	Filename   string
	Timestamp  int64
}

// DownloadProgressEvent reports transfer progress for a download.
type DownloadProgressEvent struct {
	DownloadID string
	Progress   int
}

// DownloadCompletedEvent reports a finished download with its local path.
type DownloadCompletedEvent struct {
	DownloadID string
	Path       string
	Filename   string
}

// DownloadFailedEvent reports a failed download.
type DownloadFailedEvent struct {
	DownloadID string
	Error      string
}
