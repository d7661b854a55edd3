// Package asstest provides an in-memory Smooth Storage service for tests.
package asstest

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/tendant/smooth-storage/pkg/ass"
)

const maxUploadMemory = 32 << 20

// Request is a request observed by the Server.
type Request struct {
	Method    string
	Path      string
	RawQuery  string
	Header    http.Header
	RequestID string
}

type storedFile struct {
	record  ass.FileRecord
	content []byte
}

// Server is an httptest.Server speaking the storage wire protocol for one account.
type Server struct {
	*httptest.Server

	account string
	apiKey  string
	signer  *ass.Signer

	mu       sync.Mutex
	nextID   uint64
	files    map[uint64]*storedFile
	images   map[uint64]ass.ImageRecord
	requests []Request
}

// NewServer starts a Server for account authenticated by apiKey. Callers must Close it.
func NewServer(account, apiKey string) *Server {
	s := &Server{
		account: account,
		apiKey:  apiKey,
		nextID:  1,
		files:   make(map[uint64]*storedFile),
		images:  make(map[uint64]ass.ImageRecord),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.record)
	r.Use(middleware.Recoverer)

	r.Get("/users/{account}/files/*", s.publicFile)
	r.Get("/users/{account}/images/{name}", s.publicImage)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/files", s.search)
		r.Post("/files/{id}", s.uploadFile)
		r.Post("/files/*", s.uploadFile)
		r.Get("/files/{id}", s.fileInfo)
		r.Get("/files/{id}/analysis", s.fileAnalysis)
		r.Get("/files/{id}/image", s.fileRender)

		r.Post("/images", s.uploadImage)
		r.Get("/images/{id}", s.imageInfo)
	})

	s.Server = httptest.NewServer(r)

	cred, err := ass.NewCredential(s.URL, account, apiKey)
	if err != nil {
		panic(fmt.Sprintf("asstest: invalid server URL %q: %v", s.URL, err))
	}
	s.signer = ass.NewSigner(cred)

	return s
}

// Credential returns a credential for the served account.
func (s *Server) Credential() ass.Credential {
	cred, _ := ass.NewCredential(s.URL, s.account, s.apiKey)
	return cred
}

// Requests returns every request observed so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// LastRequest returns the most recent request.
func (s *Server) LastRequest() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// AddFile stores content under path as if it had been uploaded.
func (s *Server) AddFile(path string, content []byte, contentType string) ass.FileRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeFileLocked(path, content, contentType)
}

func (s *Server) storeFileLocked(path string, content []byte, contentType string) ass.FileRecord {
	sum := md5.Sum(content)
	now := time.Now().UTC().Truncate(time.Millisecond)

	rec := ass.FileRecord{
		ID:          s.nextID,
		UserID:      1,
		Path:        path,
		MD5:         hex.EncodeToString(sum[:]),
		ContentType: contentType,
		OriginalURL: fmt.Sprintf("%s/users/%s/files/%s", s.URL, s.account, path),
		Created:     now,
		Updated:     now,
	}
	s.nextID++
	s.files[rec.ID] = &storedFile{record: rec, content: content}
	return rec
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:    r.Method,
			Path:      r.URL.Path,
			RawQuery:  r.URL.RawQuery,
			Header:    r.Header.Clone(),
			RequestID: middleware.GetReqID(r.Context()),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "bearer "+s.apiKey {
			writeError(w, r, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pathFilter := q.Get("path")
	typeFilter := q.Get("content_type")

	s.mu.Lock()
	results := make([]ass.FileRecord, 0, len(s.files))
	for _, f := range s.files {
		if pathFilter != "" && !strings.Contains(f.record.Path, pathFilter) {
			continue
		}
		if typeFilter != "" && f.record.ContentType != typeFilter {
			continue
		}
		results = append(results, f.record)
	}
	s.mu.Unlock()

	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	render.JSON(w, r, results)
}

func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/files/")
	if path == "" || strings.HasSuffix(path, "/") {
		writeError(w, r, http.StatusBadRequest, "missing file name")
		return
	}

	content, contentType, ok := readUpload(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	rec := s.storeFileLocked(path, content, contentType)
	s.mu.Unlock()

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, rec)
}

func (s *Server) uploadImage(w http.ResponseWriter, r *http.Request) {
	content, _, ok := readUpload(w, r)
	if !ok {
		return
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "not an image: "+err.Error())
		return
	}

	sum := md5.Sum(content)
	now := time.Now().UTC().Truncate(time.Millisecond)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	rec := ass.ImageRecord{
		ID:          id,
		UserID:      1,
		MD5:         hex.EncodeToString(sum[:]),
		OriginalURL: fmt.Sprintf("%s/users/%s/images/%d.jpg", s.URL, s.account, id),
		Width:       uint64(cfg.Width),
		Height:      uint64(cfg.Height),
		Name:        fmt.Sprintf("%d.%s", id, format),
		Created:     now,
		Updated:     now,
	}
	s.images[id] = rec
	s.mu.Unlock()

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, rec)
}

func (s *Server) fileInfo(w http.ResponseWriter, r *http.Request) {
	f, ok := s.lookupFile(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, f.record)
}

func (s *Server) fileAnalysis(w http.ResponseWriter, r *http.Request) {
	f, ok := s.lookupFile(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"id":           f.record.ID,
		"size":         len(f.content),
		"md5":          f.record.MD5,
		"content_type": f.record.ContentType,
		"lines":        bytes.Count(f.content, []byte("\n")),
	})
}

func (s *Server) fileRender(w http.ResponseWriter, r *http.Request) {
	f, ok := s.lookupFile(w, r)
	if !ok {
		return
	}
	if !strings.HasPrefix(f.record.ContentType, "image/") {
		writeError(w, r, http.StatusNotFound, "no rendered image for this file")
		return
	}
	render.JSON(w, r, f.record)
}

func (s *Server) imageInfo(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid image id")
		return
	}

	s.mu.Lock()
	rec, ok := s.images[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, r, http.StatusNotFound, "image not found")
		return
	}
	render.JSON(w, r, rec)
}

func (s *Server) publicFile(w http.ResponseWriter, r *http.Request) {
	if !s.verify(w, r) {
		return
	}

	path := chi.URLParam(r, "*")
	s.mu.Lock()
	var content []byte
	found := false
	for _, f := range s.files {
		if f.record.Path == path {
			content, found = f.content, true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		writeError(w, r, http.StatusNotFound, "file not found")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(content)
}

func (s *Server) publicImage(w http.ResponseWriter, r *http.Request) {
	if !s.verify(w, r) {
		return
	}

	id, err := strconv.ParseUint(strings.TrimSuffix(chi.URLParam(r, "name"), ".jpg"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid image name")
		return
	}

	s.mu.Lock()
	rec, ok := s.images[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, r, http.StatusNotFound, "image not found")
		return
	}
	render.JSON(w, r, rec)
}

// verify checks the accessToken of a public link and that it targets this account.
func (s *Server) verify(w http.ResponseWriter, r *http.Request) bool {
	if chi.URLParam(r, "account") != s.account {
		writeError(w, r, http.StatusNotFound, "unknown account")
		return false
	}
	if err := s.signer.Verify(s.URL + r.URL.RequestURI()); err != nil {
		writeError(w, r, http.StatusForbidden, err.Error())
		return false
	}
	return true
}

func (s *Server) lookupFile(w http.ResponseWriter, r *http.Request) (*storedFile, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid file id")
		return nil, false
	}

	s.mu.Lock()
	f, ok := s.files[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, r, http.StatusNotFound, "file not found")
		return nil, false
	}
	return f, true
}

func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid multipart body: "+err.Error())
		return nil, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, `missing "file" part`)
		return nil, "", false
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "failed to read upload")
		return nil, "", false
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return content, contentType, true
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}
