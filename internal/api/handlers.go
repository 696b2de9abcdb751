package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pagesift/pagesift/internal/extract"
	"github.com/pagesift/pagesift/internal/metrics"
	"github.com/pagesift/pagesift/internal/publisher"
	"github.com/pagesift/pagesift/internal/storage"
	"github.com/pagesift/pagesift/internal/store"
)

func (s *Server) crawl(w http.ResponseWriter, r *http.Request) {
	var req CrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.handleCrawl(w, r, req)
}

func (s *Server) crawlSimple(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := CrawlRequest{
		URL:           q.Get("url"),
		ContentSource: q.Get("content_source"),
		AIProvider:    q.Get("ai_provider"),
	}
	if modes := strings.TrimSpace(q.Get("ai_modes")); modes != "" {
		req.AIModes = strings.Split(modes, ",")
	}
	if save := q.Get("save_files"); save != "" {
		req.SaveFiles = save == "true" || save == "1"
	}
	s.handleCrawl(w, r, req)
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request, req CrawlRequest) {
	ctx := r.Context()
	if err := validateTargetURL(req.URL); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if invalid := s.invalidModes(req.AIModes); len(invalid) > 0 {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid ai_modes: %s (available: %s)",
				strings.Join(invalid, ", "), strings.Join(s.extractor.AvailableModes(), ", ")))
		return
	}

	started := s.now().UTC()
	page, err := s.crawler.Crawl(ctx, req.URL, req.ContentSource)
	if err != nil {
		// Crawl failures are part of the envelope contract, not HTTP errors.
		s.logger.Warn("crawl failed", zap.String("url", req.URL), zap.Error(err))
		metrics.ObserveCrawl(req.ContentSource, "failed", time.Since(started))
		resp := CrawlResponse{
			Success:       false,
			URL:           req.URL,
			ContentSource: req.ContentSource,
			Timestamp:     s.now().UTC().Format(time.RFC3339),
			Error:         err.Error(),
		}
		s.recordTask(ctx, req, &resp, started, nil)
		writeJSON(w, http.StatusOK, resp)
		return
	}
	metrics.ObserveCrawl(page.ContentSource, "success", time.Since(started))

	results := s.runExtractions(ctx, page.Markdown, req.AIModes, req.AIProvider)

	resp := CrawlResponse{
		Success:         true,
		URL:             req.URL,
		ContentSource:   page.ContentSource,
		Timestamp:       s.now().UTC().Format(time.RFC3339),
		MarkdownContent: page.Markdown,
		AIResults:       results,
	}

	var files []store.File
	if req.SaveFiles {
		var info StorageInfo
		files, info = s.uploadArtifacts(ctx, req.URL, page.Markdown, results)
		resp.StorageInfo = &info
	}
	s.recordTask(ctx, req, &resp, started, files)

	writeJSON(w, http.StatusOK, resp)
}

// runExtractions calls the extractor once per requested mode, sequentially.
// A failed mode does not stop the remaining ones.
func (s *Server) runExtractions(ctx context.Context, content string, modes []string, provider string) map[string]extract.Result {
	if len(modes) == 0 {
		return nil
	}
	results := make(map[string]extract.Result, len(modes))
	for _, mode := range modes {
		mode = strings.TrimSpace(mode)
		if mode == "" {
			continue
		}
		started := s.now()
		res := s.extractor.Extract(ctx, content, mode, provider)
		status := "success"
		if !res.Success {
			status = "failed"
		}
		metrics.ObserveExtraction(res.Provider, mode, status, time.Since(started))
		results[mode] = res
	}
	return results
}

// uploadArtifacts stores the markdown, the AI results and a combined JSON
// document. A failed upload is logged and skipped; the remaining artifacts
// still go out.
func (s *Server) uploadArtifacts(ctx context.Context, pageURL, markdown string, results map[string]extract.Result) ([]store.File, StorageInfo) {
	now := s.now().UTC()
	slug := slugForURL(pageURL)
	prefix := now.Format("2006/01/02")
	stamp := now.Format("20060102T150405")

	type artifact struct {
		filename string
		fileType string
		data     []byte
	}
	artifacts := []artifact{
		{
			filename: fmt.Sprintf("%s_%s.md", slug, stamp),
			fileType: "markdown",
			data:     []byte(markdown),
		},
	}
	for mode, res := range results {
		if !res.Success {
			continue
		}
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			s.logger.Error("marshal ai result failed", zap.String("mode", mode), zap.Error(err))
			continue
		}
		artifacts = append(artifacts, artifact{
			filename: fmt.Sprintf("%s_%s_%s.json", slug, stamp, mode),
			fileType: "ai_results",
			data:     data,
		})
	}
	combined := map[string]any{
		"url":        pageURL,
		"crawled_at": now.Format(time.RFC3339),
		"markdown":   markdown,
		"ai_results": results,
	}
	if data, err := json.MarshalIndent(combined, "", "  "); err == nil {
		artifacts = append(artifacts, artifact{
			filename: fmt.Sprintf("%s_%s_combined.json", slug, stamp),
			fileType: "json",
			data:     data,
		})
	} else {
		s.logger.Error("marshal combined document failed", zap.Error(err))
	}

	var (
		files []store.File
		info  StorageInfo
	)
	for _, a := range artifacts {
		bucket := s.cfg.Storage.BucketFor(a.fileType)
		key := prefix + "/" + a.filename
		contentType := storage.ContentTypeFor(a.filename)
		obj, err := s.blobs.Put(ctx, bucket, key, contentType, a.data)
		if err != nil {
			s.logger.Error("artifact upload failed",
				zap.String("bucket", bucket), zap.String("key", key), zap.Error(err))
			metrics.ObserveUpload(a.fileType, "failed")
			if info.Error == "" {
				info.Error = fmt.Sprintf("upload %s failed: %v", a.filename, err)
			}
			continue
		}
		metrics.ObserveUpload(a.fileType, "success")
		uploadedAt := obj.UploadedAt
		files = append(files, store.File{
			Filename:    a.filename,
			FileType:    a.fileType,
			FileSize:    obj.Size,
			ContentType: obj.ContentType,
			Bucket:      obj.Bucket,
			ObjectKey:   obj.Key,
			URI:         obj.URI,
			CreatedAt:   now,
			UploadedAt:  &uploadedAt,
		})
		info.Files = append(info.Files, StoredFile{
			Filename:    a.filename,
			FileType:    a.fileType,
			URI:         obj.URI,
			Size:        obj.Size,
			ContentType: obj.ContentType,
		})
	}
	return files, info
}

// recordTask persists the task row (and file rows when present) and publishes
// the completion event. Persistence failures are reported through
// storage_info, never as request failures.
func (s *Server) recordTask(ctx context.Context, req CrawlRequest, resp *CrawlResponse, started time.Time, files []store.File) {
	if s.tasks == nil {
		return
	}
	completed := s.now().UTC()
	status := store.StatusCompleted
	if !resp.Success {
		status = store.StatusFailed
	}
	var aiResults string
	if len(resp.AIResults) > 0 {
		if data, err := json.Marshal(resp.AIResults); err == nil {
			aiResults = string(data)
		}
	}
	task := store.Task{
		URL:             req.URL,
		ContentSource:   resp.ContentSource,
		AIModes:         req.AIModes,
		Status:          status,
		Success:         resp.Success,
		ErrorMessage:    resp.Error,
		MarkdownContent: resp.MarkdownContent,
		AIResults:       aiResults,
		CreatedAt:       started,
		StartedAt:       &started,
		CompletedAt:     &completed,
	}
	taskID, err := s.tasks.SaveTaskWithFiles(ctx, task, files)
	if err != nil {
		s.logger.Error("persist task failed", zap.String("url", req.URL), zap.Error(err))
		if resp.StorageInfo == nil {
			resp.StorageInfo = &StorageInfo{}
		}
		if resp.StorageInfo.Error == "" {
			resp.StorageInfo.Error = fmt.Sprintf("persist task failed: %v", err)
		}
		return
	}
	if resp.StorageInfo != nil {
		resp.StorageInfo.TaskID = taskID
	}
	s.publishEvent(ctx, taskID, req, resp, len(files))
}

func (s *Server) publishEvent(ctx context.Context, taskID int64, req CrawlRequest, resp *CrawlResponse, fileCount int) {
	if s.events == nil {
		return
	}
	status := store.StatusCompleted
	if !resp.Success {
		status = store.StatusFailed
	}
	event := publisher.TaskEvent{
		TaskID:    taskID,
		URL:       req.URL,
		Status:    status,
		Success:   resp.Success,
		AIModes:   req.AIModes,
		FileCount: fileCount,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	}
	topic := s.cfg.PubSub.Topic
	if topic == "" {
		topic = crawlEventsTopic
	}
	if _, err := s.events.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("publish crawl event failed", zap.Int64("task_id", taskID), zap.Error(err))
	}
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	summaries, err := s.tasks.ListTasks(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list tasks failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	out := make([]taskSummaryResponse, 0, len(summaries))
	for _, t := range summaries {
		out = append(out, taskSummaryResponse{
			ID:            t.ID,
			URL:           t.URL,
			ContentSource: t.ContentSource,
			AIModes:       t.AIModes,
			Status:        t.Status,
			Success:       t.Success,
			CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339),
			FileCount:     t.FileCount,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tasks":  out,
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	taskID, err := strconv.ParseInt(chi.URLParam(r, "task_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	if _, err := s.tasks.GetTask(r.Context(), taskID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		s.logger.Error("get task failed", zap.Int64("task_id", taskID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch task")
		return
	}
	files, err := s.tasks.ListFiles(r.Context(), taskID)
	if err != nil {
		s.logger.Error("list files failed", zap.Int64("task_id", taskID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list files")
		return
	}
	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, fileResponse{
			ID:          f.ID,
			TaskID:      f.TaskID,
			Filename:    f.Filename,
			FileType:    f.FileType,
			FileSize:    f.FileSize,
			ContentType: f.ContentType,
			URI:         f.URI,
			CreatedAt:   f.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"task_id": taskID, "files": out})
}

// previewByteLimit caps how much artifact content a preview returns.
const previewByteLimit = 64 << 10

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	fileID, err := strconv.ParseInt(chi.URLParam(r, "file_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}
	file, err := s.tasks.GetFile(r.Context(), fileID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "file not found")
			return
		}
		s.logger.Error("get file failed", zap.Int64("file_id", fileID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch file")
		return
	}
	data, err := s.blobs.Get(r.Context(), file.Bucket, file.ObjectKey)
	if err != nil {
		s.logger.Error("fetch artifact failed",
			zap.String("bucket", file.Bucket), zap.String("key", file.ObjectKey), zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to fetch artifact content")
		return
	}

	resp := previewResponse{
		FileID:      file.ID,
		Filename:    file.Filename,
		ContentType: file.ContentType,
		Size:        int64(len(data)),
	}
	if len(data) > previewByteLimit {
		data = data[:previewByteLimit]
		resp.Truncated = true
	}
	if isTextContent(file.ContentType) && utf8.Valid(data) {
		resp.Content = string(data)
	} else {
		resp.ContentBase64 = base64.StdEncoding.EncodeToString(data)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) invalidModes(modes []string) []string {
	if len(modes) == 0 {
		return nil
	}
	available := make(map[string]struct{})
	for _, m := range s.extractor.AvailableModes() {
		available[m] = struct{}{}
	}
	var invalid []string
	for _, m := range modes {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, ok := available[m]; !ok {
			invalid = append(invalid, m)
		}
	}
	return invalid
}

func validateTargetURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("url host is required")
	}
	return nil
}

// slugForURL derives a filesystem-safe name from the page URL.
func slugForURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "page"
	}
	slug := u.Host + strings.TrimSuffix(u.Path, "/")
	var b strings.Builder
	for _, r := range strings.ToLower(slug) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "page"
	}
	if len(out) > 80 {
		out = out[:80]
	}
	return out
}

func isTextContent(contentType string) bool {
	return strings.HasPrefix(contentType, "text/") ||
		strings.HasPrefix(contentType, "application/json")
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
