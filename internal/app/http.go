package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"notedeck/api/internal/auth"
	"notedeck/api/internal/authpw"
	"notedeck/api/internal/catalog"
	"notedeck/api/internal/domain"
	"notedeck/api/internal/notes"
	"notedeck/api/internal/search"
	"notedeck/api/internal/store"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}
		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{"status": "error", "error": err.Error()}
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/catalog" {
		dims := catalog.Dimensions()
		payload := make([]map[string]any, 0, len(dims))
		for _, dim := range dims {
			payload = append(payload, map[string]any{"name": dim.Name, "values": dim.Values})
		}
		writeJSON(w, http.StatusOK, map[string]any{"dimensions": payload, "unassigned": catalog.Unassigned})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/register" {
		s.handleRegister(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/login" {
		s.handleLogin(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/logout" {
		_ = s.service.Logout(r.Context(), bearerToken(r))
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "username": nil})
			return
		}
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "username": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "username": session.Username, "userId": session.UserID})
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/me" {
		s.handleMe(w, r, session)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		query := r.URL.Query().Get("q")
		payload, err := s.service.Search.Search(r.Context(), session.UserID, query)
		if err != nil {
			status, code, message := mapError(err)
			writeError(w, status, code, message)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if r.URL.Path == "/api/notes" {
		switch r.Method {
		case http.MethodGet:
			s.handleListNotes(w, r, session)
		case http.MethodPost:
			s.handleCreateNote(w, r, session)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		}
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "notes" {
		noteID, err := parseID(parts[2])
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "note id must be an integer")
			return
		}
		s.handleNote(w, r, session, noteID, parts)
		return
	}

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "comments" {
		commentID, err := parseID(parts[2])
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "comment id must be an integer")
			return
		}
		s.handleComment(w, r, session, commentID)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	user, err := s.service.Auth.Register(r.Context(), body.Username, body.Password)
	if err != nil {
		status, code, message := mapError(err)
		writeError(w, status, code, message)
		return
	}
	session, err := s.service.CreateSession(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SESSION_FAILED", "Failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, sessionPayload(session))
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	user, err := s.service.Auth.SignIn(r.Context(), body.Username, body.Password)
	if err != nil {
		status, code, message := mapError(err)
		writeError(w, status, code, message)
		return
	}
	session, err := s.service.CreateSession(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SESSION_FAILED", "Failed to create session")
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(session))
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request, session Session) {
	stats, err := s.service.Notes.Stats(r.Context(), session.UserID)
	if err != nil {
		status, code, message := mapError(err)
		writeError(w, status, code, message)
		return
	}
	byDimension := make(map[string]any, len(stats.ByDimension))
	for dimension, counts := range stats.ByDimension {
		rows := make([]map[string]any, 0, len(counts))
		for _, row := range counts {
			rows = append(rows, map[string]any{"value": row.Value, "count": row.Count})
		}
		byDimension[dimension] = rows
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":      session.UserID,
		"username":    session.Username,
		"noteCount":   stats.Total,
		"byDimension": byDimension,
	})
}

func (s *HTTPServer) handleListNotes(w http.ResponseWriter, r *http.Request, session Session) {
	var (
		items []store.NoteSummary
		err   error
	)
	if r.URL.Query().Get("owned") == "true" {
		items, err = s.service.Notes.ListOwned(r.Context(), session.UserID)
	} else {
		items, err = s.service.Access.AccessibleNotes(r.Context(), session.UserID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list notes")
		return
	}
	payload := make([]map[string]any, 0, len(items))
	for _, item := range items {
		payload = append(payload, summaryPayload(item))
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": payload})
}

func (s *HTTPServer) handleCreateNote(w http.ResponseWriter, r *http.Request, session Session) {
	var body struct {
		Title           string            `json:"title"`
		Content         string            `json:"content"`
		Classifications map[string]string `json:"classifications"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	id, err := s.service.Notes.Create(r.Context(), session.UserID, notes.Input{
		Title:           body.Title,
		Content:         body.Content,
		Classifications: body.Classifications,
	})
	if err != nil {
		status, code, message := mapError(err)
		writeError(w, status, code, message)
		return
	}
	s.service.Search.IndexNote(search.NoteRecord{
		ID:      id,
		Title:   body.Title,
		Content: body.Content,
		Owner:   session.Username,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *HTTPServer) handleNote(w http.ResponseWriter, r *http.Request, session Session, noteID int64, parts []string) {
	if len(parts) == 3 {
		switch r.Method {
		case http.MethodGet:
			note, err := s.service.Notes.Get(r.Context(), session.UserID, noteID)
			if err != nil {
				status, code, message := mapError(err)
				writeError(w, status, code, message)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"note": notePayload(note)})
		case http.MethodPut:
			var body struct {
				Title           string            `json:"title"`
				Content         string            `json:"content"`
				Classifications map[string]string `json:"classifications"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
				return
			}
			err := s.service.Notes.Update(r.Context(), session.UserID, noteID, notes.Input{
				Title:           body.Title,
				Content:         body.Content,
				Classifications: body.Classifications,
			})
			if err != nil {
				status, code, message := mapError(err)
				writeError(w, status, code, message)
				return
			}
			s.service.Search.IndexNote(search.NoteRecord{
				ID:      noteID,
				Title:   body.Title,
				Content: body.Content,
				Owner:   session.Username,
			})
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		case http.MethodDelete:
			if err := s.service.Notes.Remove(r.Context(), session.UserID, noteID); err != nil {
				status, code, message := mapError(err)
				writeError(w, status, code, message)
				return
			}
			s.service.Search.RemoveNote(noteID)
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		}
		return
	}

	if len(parts) == 4 && parts[3] == "comments" {
		switch r.Method {
		case http.MethodGet:
			items, err := s.service.Comments.List(r.Context(), session.UserID, noteID)
			if err != nil {
				status, code, message := mapError(err)
				writeError(w, status, code, message)
				return
			}
			payload := make([]map[string]any, 0, len(items))
			for _, item := range items {
				payload = append(payload, commentPayload(item))
			}
			writeJSON(w, http.StatusOK, map[string]any{"comments": payload})
		case http.MethodPost:
			var body struct {
				Content string `json:"content"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
				return
			}
			id, err := s.service.Comments.Add(r.Context(), session.UserID, noteID, body.Content)
			if err != nil {
				status, code, message := mapError(err)
				writeError(w, status, code, message)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"id": id})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
		}
		return
	}

	if len(parts) == 4 && parts[3] == "shares" && r.Method == http.MethodPost {
		var body struct {
			UserID int64 `json:"userId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		result, err := s.service.Access.Share(r.Context(), session.UserID, noteID, body.UserID)
		if err != nil {
			status, code, message := mapError(err)
			writeError(w, status, code, message)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "alreadyShared": result.AlreadyShared})
		return
	}

	if len(parts) == 5 && parts[3] == "shares" && r.Method == http.MethodDelete {
		targetID, err := parseID(parts[4])
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "user id must be an integer")
			return
		}
		if err := s.service.Access.Unshare(r.Context(), session.UserID, noteID, targetID); err != nil {
			status, code, message := mapError(err)
			writeError(w, status, code, message)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
}

func (s *HTTPServer) handleComment(w http.ResponseWriter, r *http.Request, session Session, commentID int64) {
	switch r.Method {
	case http.MethodPut:
		var body struct {
			Content string `json:"content"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
			return
		}
		if err := s.service.Comments.Edit(r.Context(), session.UserID, commentID, body.Content); err != nil {
			status, code, message := mapError(err)
			writeError(w, status, code, message)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	case http.MethodDelete:
		if err := s.service.Comments.Remove(r.Context(), session.UserID, commentID); err != nil {
			status, code, message := mapError(err)
			writeError(w, status, code, message)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
	}
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
			return Session{}, false
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed")
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func sessionPayload(session IssuedSession) map[string]any {
	return map[string]any{
		"token":     session.Token,
		"userId":    session.UserID,
		"username":  session.Username,
		"expiresAt": session.ExpiresAt.Unix(),
	}
}

func notePayload(note store.Note) map[string]any {
	return map[string]any{
		"id":              note.ID,
		"title":           note.Title,
		"content":         note.Content,
		"ownerId":         note.OwnerID,
		"owner":           note.OwnerUsername,
		"createdAt":       note.CreatedAt.UTC().Format(time.RFC3339),
		"updatedAt":       note.UpdatedAt.UTC().Format(time.RFC3339),
		"classifications": note.Classifications,
	}
}

func summaryPayload(item store.NoteSummary) map[string]any {
	return map[string]any{
		"id":               item.ID,
		"title":            item.Title,
		"content":          item.Content,
		"ownerId":          item.OwnerID,
		"owner":            item.OwnerUsername,
		"updatedAt":        item.UpdatedAt.UTC().Format(time.RFC3339),
		"sharedWithViewer": item.SharedWithViewer,
		"sharedWithAnyone": item.SharedWithAnyone,
		"classifications":  item.Classifications,
	}
}

func commentPayload(item store.Comment) map[string]any {
	return map[string]any{
		"id":        item.ID,
		"noteId":    item.NoteID,
		"authorId":  item.AuthorID,
		"author":    item.Author,
		"content":   item.Content,
		"createdAt": item.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"code": code, "error": message})
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

func mapError(err error) (status int, code, message string) {
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found"
	}
	if errors.Is(err, authpw.ErrInvalidCredentials) {
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password"
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized"
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error"
}
