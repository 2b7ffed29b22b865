package rag

// UploadResult reports the outcome of an upload.
type UploadResult struct {
	ChunkCount int    `json:"chunk_count"`
	Note       string `json:"note,omitempty"`
}

// StatusResult is the caller-facing view of a file's indexing status.
type StatusResult struct {
	FileID     string `json:"file_id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	Indexed    bool   `json:"indexed"`
	ChunkCount int    `json:"chunk_count"`
	Note       string `json:"note,omitempty"`
}

// SweepResult reports stuck uploads cleaned by a maintenance sweep.
type SweepResult struct {
	CleanedCount int      `json:"cleaned_count"`
	FileIDs      []string `json:"file_ids"`
}
