package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	slr "github.com/vivaneiona/genkit-slr"
)

// runRequest is the JSON body of POST /api/runs and POST /api/plan.
type runRequest struct {
	Mode        slr.Mode `json:"mode"`
	Text        string   `json:"text"`
	Instruction string   `json:"instruction"`
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	in, err := s.decodeInput(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.x.Units(in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.startRun(in); err != nil {
		if errors.Is(err, slr.ErrRunInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	in, err := s.decodeInput(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	plan, err := s.x.Plan(in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// decodeInput reads a JSON text request or a multipart upload of files.
func (s *Server) decodeInput(w http.ResponseWriter, r *http.Request) (slr.Input, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return s.decodeMultipart(r)
	}

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return slr.Input{}, fmt.Errorf("decode request: %w", err)
	}
	if req.Mode == "" {
		req.Mode = slr.ModeText
	}
	return slr.Input{Mode: req.Mode, Text: req.Text, Instruction: req.Instruction}, nil
}

func (s *Server) decodeMultipart(r *http.Request) (slr.Input, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return slr.Input{}, fmt.Errorf("parse multipart: %w", err)
	}
	in := slr.Input{Mode: slr.ModeFile, Instruction: r.FormValue("instruction")}

	for _, fh := range r.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			return slr.Input{}, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return slr.Input{}, fmt.Errorf("read %s: %w", fh.Filename, err)
		}

		// browsers send application/octet-stream for unknown types; let the
		// extractor sniff those
		mt := fh.Header.Get("Content-Type")
		if mt == "application/octet-stream" {
			mt = ""
		}
		in.Files = append(in.Files, slr.InputFile{Name: fh.Filename, Data: data, MimeType: mt})
	}
	return in, nil
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.x.Snapshot())
}

// handleEvents streams snapshots as server-sent events. The current snapshot
// is sent first; the stream ends after a terminal run state.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ch := s.hub.subscribe()
	defer s.hub.unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	eventID := 0
	send := func(snap slr.Snapshot) bool {
		eventID++
		data, err := json.Marshal(snap)
		if err != nil {
			s.log.Warn("Snapshot encode failed", "error", err)
			return false
		}
		fmt.Fprintf(w, "id: %d\nevent: snapshot\ndata: %s\n\n", eventID, data)
		flusher.Flush()

		if snap.State == slr.StateSucceeded || snap.State == slr.StateFailed {
			fmt.Fprintf(w, "event: complete\ndata: {}\n\n")
			flusher.Flush()
			return false
		}
		return true
	}

	if !send(s.x.Snapshot()) {
		return
	}
	for {
		select {
		case snap := <-ch:
			if !send(snap) {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) handleTableMarkdown(w http.ResponseWriter, r *http.Request) {
	snap := s.x.Snapshot()
	if snap.Table == "" {
		writeError(w, http.StatusNotFound, "no result table")
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	io.WriteString(w, slr.ToClipboardText(snap.Table))
}

func (s *Server) handleTableCSV(w http.ResponseWriter, r *http.Request) {
	snap := s.x.Snapshot()
	if snap.Table == "" {
		writeError(w, http.StatusNotFound, "no result table")
		return
	}
	data, err := slr.ToCSV(snap.Table)
	if err != nil {
		var pe *slr.ParseError
		if errors.As(err, &pe) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	name := "slr-results.csv"
	if snap.RunID != "" {
		name = fmt.Sprintf("slr-%s.csv", snap.RunID)
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(data)
}

// handleIngest converts an uploaded CSV (raw body or multipart "file") into
// record text ready for a text run.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	var (
		src  io.Reader = r.Body
		name           = "upload.csv"
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		f, fh, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("missing file: %v", err))
			return
		}
		defer f.Close()
		src, name = f, fh.Filename
	}

	text, err := slr.IngestCSVNamed(src, name)
	if err != nil {
		var ie *slr.IngestionError
		if errors.As(err, &ie) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"text":    text,
		"records": len(slr.SplitRecords(text)),
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.x.Clear(); err != nil {
		if errors.Is(err, slr.ErrRunInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": strings.TrimSpace(message)})
}
