package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// SourceFile describes a catalog entry in a transport-friendly format.
type SourceFile struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Path            string  `json:"path"`
	SizeBytes       int64   `json:"sizeBytes"`
	Duration        string  `json:"duration"`
	DurationSeconds float64 `json:"durationSeconds"`
	FPS             float64 `json:"fps"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	Resolution      string  `json:"resolution,omitempty"`
	Status          string  `json:"status"`
	Error           string  `json:"error,omitempty"`
	DiscoveredAt    string  `json:"discoveredAt,omitempty"`
}

// Target is the requested output height and frame rate.
type Target struct {
	Resolution int `json:"resolution"`
	FPS        int `json:"fps"`
}

// BatchState summarizes batch execution state.
type BatchState struct {
	BatchID         string  `json:"batchId,omitempty"`
	Phase           string  `json:"phase"`
	Target          Target  `json:"target"`
	Total           int     `json:"total"`
	Completed       int     `json:"completed"`
	Failed          int     `json:"failed"`
	CurrentFile     string  `json:"currentFile,omitempty"`
	CurrentFileID   string  `json:"currentFileId,omitempty"`
	ProgressPercent float64 `json:"progressPercent"`
	Running         bool    `json:"running"`
	CancelRequested bool    `json:"cancelRequested"`
	StartedAt       string  `json:"startedAt,omitempty"`
	FinishedAt      string  `json:"finishedAt,omitempty"`
}

// ConversionResult describes one finished conversion.
type ConversionResult struct {
	SourceID         string  `json:"sourceId"`
	SourceName       string  `json:"sourceName"`
	SourcePath       string  `json:"sourcePath"`
	OutputName       string  `json:"outputName"`
	OutputPath       string  `json:"outputPath"`
	DownloadURL      string  `json:"downloadUrl"`
	InputBytes       int64   `json:"inputBytes"`
	OutputBytes      int64   `json:"outputBytes"`
	ReductionPercent float64 `json:"reductionPercent"`
	Resolution       int     `json:"resolution"`
	FPS              int     `json:"fps"`
	ElapsedSeconds   float64 `json:"elapsedSeconds"`
	CompletedAt      string  `json:"completedAt,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	Files        int                `json:"files"`
	FileCounts   map[string]int     `json:"fileCounts"`
	Batch        BatchState         `json:"batch"`
	Dependencies []DependencyStatus `json:"dependencies"`
	LockFilePath string             `json:"lockFilePath"`
	HistoryPath  string             `json:"historyPath,omitempty"`
	WorkDir      string             `json:"workDir,omitempty"`
	OutputDir    string             `json:"outputDir"`
}

// LogEvent is a structured log line.
type LogEvent struct {
	Sequence  uint64            `json:"seq"`
	Timestamp string            `json:"ts"`
	Level     string            `json:"level"`
	Message   string            `json:"msg"`
	Component string            `json:"component,omitempty"`
	BatchID   string            `json:"batchId,omitempty"`
	FileID    string            `json:"fileId,omitempty"`
	File      string            `json:"file,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// ScanRequest asks the daemon to rescan a directory.
type ScanRequest struct {
	Root string `json:"root"`
}

// BatchRequest starts a batch with the given target.
type BatchRequest struct {
	Resolution int `json:"resolution"`
	FPS        int `json:"fps"`
}

// FileListResponse wraps the catalog.
type FileListResponse struct {
	Files []SourceFile `json:"files"`
}

// FileResponse wraps a single catalog entry.
type FileResponse struct {
	File SourceFile `json:"file"`
}

// BatchResponse wraps the batch state.
type BatchResponse struct {
	Batch BatchState `json:"batch"`
}

// ResultsResponse wraps the session's conversion results.
type ResultsResponse struct {
	Results []ConversionResult `json:"results"`
}

// LogsResponse wraps log events. Next is the cursor for the following
// incremental read (?since=Next).
type LogsResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

// ErrorResponse is returned for every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
