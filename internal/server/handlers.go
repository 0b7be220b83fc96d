package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/safeshare/safeshare/internal/anonymize"
	"github.com/safeshare/safeshare/internal/cache"
	"github.com/safeshare/safeshare/internal/dataset"
	"github.com/safeshare/safeshare/internal/detect"
	"github.com/safeshare/safeshare/internal/files"
	"github.com/safeshare/safeshare/internal/mapcrypto"
	"github.com/safeshare/safeshare/internal/pii"
	"github.com/safeshare/safeshare/internal/vault"
)

// scanResponse is the body of POST /v1/scan.
type scanResponse struct {
	Profiles []detect.ColumnProfile `json:"profiles"`
	Cached   bool                   `json:"cached"`
}

// anonymizeResponse is the body of POST /v1/anonymize.
type anonymizeResponse struct {
	File     string                      `json:"file"` // base64, same format as the upload
	Format   string                      `json:"format"`
	Mapping  string                      `json:"mapping,omitempty"` // base64 encrypted blob
	RunID    string                      `json:"run_id,omitempty"`
	Warnings []anonymize.ResidualWarning `json:"warnings,omitempty"`
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// handleInfo handles info requests.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":          "safeshare",
		"sample_size":   s.config.Detection.SampleSize,
		"threshold":     s.config.Detection.Threshold,
		"cache_enabled": s.cache != nil,
		"vault_enabled": s.vault != nil,
	})
}

// handleScan accepts a multipart tabular upload and returns per-column
// detection profiles.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	raw, ext, _, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	if s.cache != nil {
		key := cache.ContentKey(raw)
		if profiles, hit, err := s.cache.Get(r.Context(), key); err == nil && hit {
			s.writeJSON(w, http.StatusOK, scanResponse{Profiles: profiles, Cached: true})
			return
		}
	}

	ds, err := files.ReadFrom(bytes.NewReader(raw), ext)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "failed to parse file", err)
		return
	}

	profiles := s.detector.ScanDataset(ds)

	if s.cache != nil {
		if err := s.cache.Set(r.Context(), cache.ContentKey(raw), profiles); err != nil {
			s.logger.Warn("failed to cache scan profiles", zap.Error(err))
		}
	}

	s.writeJSON(w, http.StatusOK, scanResponse{Profiles: profiles})
}

// handleAnonymize accepts an upload plus a confirmed assignment and
// returns the transformed file, together with the password-encrypted
// mapping when a password is supplied.
func (s *Server) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	raw, ext, filename, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	assignmentJSON := r.FormValue("assignment")
	if assignmentJSON == "" {
		s.writeError(w, r, http.StatusBadRequest, "missing assignment form field", nil)
		return
	}
	var assignment anonymize.Assignment
	if err := json.Unmarshal([]byte(assignmentJSON), &assignment); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid assignment", err)
		return
	}

	ds, err := files.ReadFrom(bytes.NewReader(raw), ext)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "failed to parse file", err)
		return
	}

	transformed, store, err := s.anonymizer.Anonymize(ds, assignment)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pii.ErrUnknownCategory) {
			status = http.StatusBadRequest
		}
		s.writeError(w, r, status, "anonymization failed", err)
		return
	}

	warnings := s.anonymizer.Validate(transformed)

	outBytes, err := encodeDataset(transformed, ext)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "failed to encode output", err)
		return
	}

	resp := anonymizeResponse{
		File:     base64.StdEncoding.EncodeToString(outBytes),
		Format:   ext,
		Warnings: warnings,
	}

	if password := r.FormValue("password"); password != "" {
		blob, err := mapcrypto.Encrypt(store, password)
		if err != nil {
			s.writeError(w, r, http.StatusInternalServerError, "failed to encrypt mapping", err)
			return
		}
		resp.Mapping = base64.StdEncoding.EncodeToString(blob)

		if s.vault != nil {
			runID, err := s.vault.Save(r.Context(), filename, len(assignment), blob)
			if err != nil {
				s.writeError(w, r, http.StatusInternalServerError, "failed to store mapping", err)
				return
			}
			resp.RunID = runID
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// handleListMappings lists stored runs (metadata only).
func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	if s.vault == nil {
		s.writeError(w, r, http.StatusNotFound, "mapping vault is not enabled", nil)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.vault.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "failed to list mappings", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"mappings": records})
}

// handleGetMapping returns one stored encrypted blob by run ID.
func (s *Server) handleGetMapping(w http.ResponseWriter, r *http.Request) {
	if s.vault == nil {
		s.writeError(w, r, http.StatusNotFound, "mapping vault is not enabled", nil)
		return
	}
	record, err := s.vault.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, vault.ErrNotFound) {
			status = http.StatusNotFound
		}
		s.writeError(w, r, status, "failed to fetch mapping", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":           record.ID,
		"filename":     record.Filename,
		"column_count": record.ColumnCount,
		"created_at":   record.CreatedAt,
		"blob":         base64.StdEncoding.EncodeToString(record.Blob),
	})
}

// readUpload extracts the "file" part of a multipart request, enforcing
// the size ceiling and extension allow-list before any parsing.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (raw []byte, ext, filename string, ok bool) {
	limit := int64(s.config.Files.MaxSizeMB) * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit+1024)

	if err := r.ParseMultipartForm(limit); err != nil {
		s.writeError(w, r, http.StatusRequestEntityTooLarge, "upload too large or malformed", err)
		return nil, "", "", false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "missing file form field", err)
		return nil, "", "", false
	}
	defer file.Close()

	ext = filepath.Ext(header.Filename)
	allowed := false
	for _, e := range s.config.Files.AllowedExtensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		s.writeError(w, r, http.StatusBadRequest, "unsupported file format", files.ErrUnsupportedFormat)
		return nil, "", "", false
	}

	raw, err = io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "failed to read upload", err)
		return nil, "", "", false
	}
	return raw, ext, header.Filename, true
}

// encodeDataset renders a dataset back to the upload's format.
func encodeDataset(ds *dataset.Dataset, ext string) ([]byte, error) {
	tmp, err := os.CreateTemp("", "safeshare-out-*"+ext)
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := files.Write(ds, tmpPath); err != nil {
		return nil, err
	}
	return os.ReadFile(tmpPath)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError reports a failure to the client. Error details carry
// column names and categories but never cell values.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	logger := s.logger.WithRequestID(getRequestID(r.Context()))
	if err != nil {
		logger.Error(message, zap.Error(err), zap.Int("status", status))
	} else {
		logger.Warn(message, zap.Int("status", status))
	}
	detail := message
	if err != nil {
		detail = fmt.Sprintf("%s: %v", message, err)
	}
	s.writeJSON(w, status, map[string]string{"error": detail})
}
