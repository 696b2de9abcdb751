package api

import "github.com/pagesift/pagesift/internal/extract"

// CrawlRequest is the POST /crawl payload.
type CrawlRequest struct {
	URL           string   `json:"url"`
	ContentSource string   `json:"content_source,omitempty"`
	AIModes       []string `json:"ai_modes,omitempty"`
	AIProvider    string   `json:"ai_provider,omitempty"`
	SaveFiles     bool     `json:"save_files,omitempty"`
}

// CrawlResponse is the envelope returned by /crawl and /crawl_simple. Crawl
// and extraction failures are reported inside the envelope, not as HTTP
// errors.
type CrawlResponse struct {
	Success         bool                      `json:"success"`
	URL             string                    `json:"url"`
	ContentSource   string                    `json:"content_source,omitempty"`
	Timestamp       string                    `json:"timestamp"`
	MarkdownContent string                    `json:"markdown_content,omitempty"`
	AIResults       map[string]extract.Result `json:"ai_results,omitempty"`
	StorageInfo     *StorageInfo              `json:"storage_info,omitempty"`
	Error           string                    `json:"error,omitempty"`
}

// StorageInfo reports what was persisted for a crawl. Error is set when
// persistence failed; the crawl result itself is still returned.
type StorageInfo struct {
	TaskID int64        `json:"task_id,omitempty"`
	Files  []StoredFile `json:"files,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// StoredFile describes one uploaded artifact.
type StoredFile struct {
	Filename    string `json:"filename"`
	FileType    string `json:"file_type"`
	URI         string `json:"uri"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
}

// taskSummaryResponse is one row of GET /api/history.
type taskSummaryResponse struct {
	ID            int64    `json:"id"`
	URL           string   `json:"url"`
	ContentSource string   `json:"content_source"`
	AIModes       []string `json:"ai_modes,omitempty"`
	Status        string   `json:"status"`
	Success       bool     `json:"success"`
	CreatedAt     string   `json:"created_at"`
	FileCount     int      `json:"file_count"`
}

// fileResponse is one row of GET /api/files/{task_id}.
type fileResponse struct {
	ID          int64  `json:"id"`
	TaskID      int64  `json:"task_id"`
	Filename    string `json:"filename"`
	FileType    string `json:"file_type"`
	FileSize    int64  `json:"file_size"`
	ContentType string `json:"content_type,omitempty"`
	URI         string `json:"uri"`
	CreatedAt   string `json:"created_at"`
}

// previewResponse is the GET /api/preview/{file_id} payload. Text artifacts
// arrive in Content, binary ones base64-encoded in ContentBase64.
type previewResponse struct {
	FileID        int64  `json:"file_id"`
	Filename      string `json:"filename"`
	ContentType   string `json:"content_type"`
	Size          int64  `json:"size"`
	Content       string `json:"content,omitempty"`
	ContentBase64 string `json:"content_base64,omitempty"`
	Truncated     bool   `json:"truncated,omitempty"`
}
