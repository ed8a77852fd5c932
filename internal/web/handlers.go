package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/tabledit/internal/core"
	"github.com/JonMunkholm/tabledit/internal/logging"
	"github.com/JonMunkholm/tabledit/internal/web/templates"
)

// maxJSONBody bounds edit, rename and generate request bodies.
const maxJSONBody = 1 << 20

// multipartOverhead is allowed on top of the import size limit for the
// multipart envelope.
const multipartOverhead = 64 << 10

// tableResponse is the JSON shape of a table snapshot.
type tableResponse struct {
	SessionID  string       `json:"session_id,omitempty"`
	BaseName   string       `json:"base_name"`
	Headers    []string     `json:"headers"`
	Rows       [][]string   `json:"rows"`
	Fields     []core.Field `json:"fields,omitempty"`
	Generating bool         `json:"generating"`
	Format     string       `json:"format,omitempty"`
	Warnings   []string     `json:"warnings,omitempty"`
	Appended   *int         `json:"appended,omitempty"`
}

func newTableResponse(t *core.Table, baseName string, withFields bool) tableResponse {
	resp := tableResponse{
		BaseName: baseName,
		Headers:  t.Headers(),
		Rows:     t.Rows(),
	}
	if withFields {
		resp.Fields = t.Fields()
	}
	return resp
}

// decodeJSON reads a bounded JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// handleEditor renders the editor page, creating a session if needed.
func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request) {
	sess, r, err := s.ensureSession(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	t, baseName := sess.Snapshot()
	data := templates.EditorData{
		BaseName:          baseName,
		Headers:           t.Headers(),
		Rows:              t.Rows(),
		FieldView:         r.URL.Query().Get("view") == "fields",
		GenerationEnabled: s.service.GenerationEnabled(),
		Generating:        sess.Generating(),
	}
	if data.FieldView {
		for _, f := range t.Fields() {
			data.Fields = append(data.Fields, templates.FieldData{Name: f.Name, Values: f.Values})
		}
	}
	for _, f := range core.Formats() {
		data.Formats = append(data.Formats, templates.FormatOption{Name: f.Name, Label: f.Label})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.EditorPage(data).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render editor", "error", err)
	}
}

// handleHealth reports liveness and load.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	gen := s.service.GenerationStatus()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.service.Sessions().Len(),
		"generation": map[string]any{
			"enabled":        s.service.GenerationEnabled(),
			"active":         gen.Active,
			"max_concurrent": gen.MaxConcurrent,
		},
	})
}

// handleCreateSession starts a new session with the default table.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, r, err := s.newSession(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	t, baseName := sess.Snapshot()
	resp := newTableResponse(t, baseName, false)
	resp.SessionID = sess.ID
	writeJSON(w, http.StatusCreated, resp)
}

// handleFormats lists import/export formats.
func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	type formatInfo struct {
		Name      string `json:"name"`
		Label     string `json:"label"`
		MediaType string `json:"media_type"`
	}
	var out []formatInfo
	for _, f := range core.Formats() {
		out = append(out, formatInfo{Name: f.Name, Label: f.Label, MediaType: f.MediaType})
	}
	writeJSON(w, http.StatusOK, map[string]any{"formats": out})
}

// handleGetTable returns the current table; ?view=fields adds the
// transposed view.
func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	sess, r, err := s.requireSession(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	t, baseName := sess.Snapshot()
	resp := newTableResponse(t, baseName, r.URL.Query().Get("view") == "fields")
	resp.Generating = sess.Generating()
	writeJSON(w, http.StatusOK, resp)
}

// handleEdit applies one edit operation.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	sess, r, err := s.requireSession(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var op core.EditOp
	if err := decodeJSON(w, r, &op); err != nil {
		s.respondError(w, r, err)
		return
	}

	t, err := s.service.Edit(r.Context(), sess.ID, op)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	_, baseName := sess.Snapshot()
	writeJSON(w, http.StatusOK, newTableResponse(t, baseName, op.Op == core.EditSetFieldName || op.Op == core.EditSetFieldValue))
}

// handleRename sets the export base name.
func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	sess, r, err := s.requireSession(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.respondError(w, r, err)
		return
	}

	name, err := s.service.Rename(r.Context(), sess.ID, body.Name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"base_name": name})
}

// handleImport replaces the table with an uploaded file. The format comes
// from the file name's extension.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	sess, r, err := s.requireSession(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	if err := r.ParseMultipartForm(maxSize + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, maxSize))
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			s.respondError(w, r, errNoFile)
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	defer file.Close()

	// One byte past the limit is enough for the service to reject it
	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: reading upload: %v", errBadRequest, err))
		return
	}

	result, err := s.service.Import(r.Context(), sess.ID, header.Filename, data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := newTableResponse(result.Table, result.BaseName, false)
	resp.Format = result.Format
	resp.Warnings = result.Warnings
	writeJSON(w, http.StatusOK, resp)
}

// handleExport downloads the table in the requested format.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, r, err := s.requireSession(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	artifact, err := s.service.Export(r.Context(), sess.ID, chi.URLParam(r, "format"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", artifact.MediaType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Body)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(artifact.Body)
}

// handleGenerate asks the generation service for rows and appends them.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess, r, err := s.requireSession(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var body struct {
		Instruction string `json:"instruction"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.respondError(w, r, err)
		return
	}

	result, err := s.service.Generate(r.Context(), sess.ID, body.Instruction)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	_, baseName := sess.Snapshot()
	resp := newTableResponse(result.Table, baseName, false)
	resp.Appended = &result.Appended
	writeJSON(w, http.StatusOK, resp)
}
