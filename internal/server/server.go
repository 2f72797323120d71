// Package server implements the report companion server: it serves
// files referenced by an HTML report and deletes them on request. One
// endpoint, selected by method:
//
//	GET    /?file_path=/abs/path   stream the file inline
//	DELETE /?file_path=/abs/path   move the file to trash
//
// Responses to DELETE and to errors are JSON. The server binds to
// localhost by default and is meant to run only while a report is open.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alibenameur/dupfinder/internal/cleaner"
	"github.com/alibenameur/dupfinder/internal/security"
	"github.com/alibenameur/dupfinder/internal/trash"
)

// FileDeleter performs one reversible deletion. *cleaner.Cleaner
// satisfies it.
type FileDeleter interface {
	DeleteOne(path string) (trash.Method, *cleaner.DeletionError)
}

// mediaTypes maps extensions the reports link to most often. Anything
// else falls back to the platform MIME database, then to plain text.
var mediaTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
	".flv":  "video/x-flv",
	".wmv":  "video/x-ms-wmv",
	".m4v":  "video/x-m4v",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".m4a":  "audio/mp4",
	".wma":  "audio/x-ms-wma",
	".opus": "audio/opus",
}

// Server serves and deletes report files over HTTP.
type Server struct {
	addr      string
	deleter   FileDeleter
	validator *security.PathValidator
	logger    *slog.Logger

	httpServer *http.Server
}

// New creates a Server. A nil logger disables logging.
func New(addr string, deleter FileDeleter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		addr:      addr,
		deleter:   deleter,
		validator: security.NewPathValidator(),
		logger:    logger,
	}
}

// Handler returns the HTTP handler, exported for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	return mux
}

// ListenAndServe blocks until the context is cancelled or the listener
// fails. Shutdown drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("server listening", "addr", listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	switch r.Method {
	case http.MethodGet:
		s.handleGet(w, r)
	case http.MethodDelete:
		s.handleDelete(w, r)
	case http.MethodOptions:
		w.Header().Set("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusOK)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, "error", "method not allowed: "+r.Method)
	}
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	path, ok := s.filePath(w, r)
	if !ok {
		return
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		writeJSON(w, http.StatusNotFound, "error", "file not found: "+path)
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, "error", err.Error())
		return
	}
	if info.IsDir() {
		writeJSON(w, http.StatusBadRequest, "error", "path is not a file: "+path)
		return
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			writeJSON(w, http.StatusForbidden, "error", "permission denied: "+path)
			return
		}
		writeJSON(w, http.StatusInternalServerError, "error", err.Error())
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", contentType(path))
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), file)

	s.logger.Info("served file", "path", path)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	path, ok := s.filePath(w, r)
	if !ok {
		return
	}
	if s.deleter == nil {
		writeJSON(w, http.StatusForbidden, "error", "deletion disabled")
		return
	}
	if err := s.validator.ValidateForDeletion(path); err != nil {
		s.logger.Warn("delete rejected", "path", path, "err", err)
		writeJSON(w, http.StatusBadRequest, "error", err.Error())
		return
	}

	method, delErr := s.deleter.DeleteOne(path)
	if delErr != nil {
		s.logger.Warn("delete failed", "path", path, "reason", delErr.Reason.String())
		writeJSON(w, deleteStatus(delErr), "error", delErr.UserMessage())
		return
	}

	s.logger.Info("deleted file", "path", path, "method", method.String())
	writeDeleted(w, method, path)
}

// filePath extracts the file_path parameter; on failure it writes the
// error response itself.
func (s *Server) filePath(w http.ResponseWriter, r *http.Request) (string, bool) {
	path := r.URL.Query().Get("file_path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, "error", "missing file_path parameter")
		return "", false
	}
	return path, true
}

func deleteStatus(delErr *cleaner.DeletionError) int {
	switch delErr.Reason {
	case cleaner.ErrorFileNotFound:
		return http.StatusNotFound
	case cleaner.ErrorPermissionDenied:
		return http.StatusForbidden
	case cleaner.ErrorInvalidPath:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func contentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := mediaTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "text/plain; charset=utf-8"
}

type jsonResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Method  string `json:"method,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, status, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(jsonResponse{Status: status, Message: message})
}

func writeDeleted(w http.ResponseWriter, method trash.Method, path string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(jsonResponse{
		Status:  "success",
		Message: "Deleted: " + path,
		Method:  method.String(),
	})
}
