package client_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/smooth-storage/pkg/ass"
	"github.com/tendant/smooth-storage/pkg/ass/asstest"
	"github.com/tendant/smooth-storage/pkg/ass/client"
)

const (
	testAccount = "account"
	testAPIKey  = "apikey"
)

func setupTestClient(t *testing.T, opts ...client.Option) (*client.Client, *asstest.Server) {
	t.Helper()
	srv := asstest.NewServer(testAccount, testAPIKey)
	t.Cleanup(srv.Close)

	opts = append([]client.Option{client.WithHTTPClient(srv.Client())}, opts...)
	return client.New(srv.Credential(), opts...), srv
}

// createTestFile writes content to a file named name in a temp directory
func createTestFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func createTestPNG(t *testing.T, width, height int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return createTestFile(t, "photo.png", buf.Bytes())
}

func TestUploadFile(t *testing.T) {
	c, srv := setupTestClient(t)
	path := createTestFile(t, "account.json", []byte(`{"hello": "world"}`))

	rec, err := c.UploadFile(context.Background(), path, "file-path/")
	require.NoError(t, err)

	assert.Equal(t, uint64(1), rec.ID)
	assert.Equal(t, "file-path/account.json", rec.Path)
	assert.Equal(t, "application/json", rec.ContentType)
	assert.Len(t, rec.MD5, 32)

	req, ok := srv.LastRequest()
	require.True(t, ok)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/files/file-path/account.json", req.Path)
	assert.Equal(t, "bearer apikey", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
	assert.Equal(t, "public", req.Header.Get("x-ass-acl"))
	assert.True(t, strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data; boundary="))
	assert.NotEmpty(t, req.RequestID)
}

func TestUploadFileWithHeaders(t *testing.T) {
	c, srv := setupTestClient(t)
	path := createTestFile(t, "account.json", []byte(`{}`))

	headers := http.Header{}
	headers.Set("Cache-Control", "max-age: 234")

	rec, err := c.UploadFileWithHeaders(context.Background(), path, "file-path/", headers)
	require.NoError(t, err)
	assert.Equal(t, "file-path/account.json", rec.Path)

	req, _ := srv.LastRequest()
	assert.Equal(t, "max-age: 234", req.Header.Get("Cache-Control"))
	assert.Equal(t, "bearer apikey", req.Header.Get("Authorization"))
}

func TestUploadFileWithCache(t *testing.T) {
	c, srv := setupTestClient(t)
	path := createTestFile(t, "notes.txt", []byte("line one\nline two\n"))

	_, err := c.UploadFileWithCache(context.Background(), path, "docs/", 3600)
	require.NoError(t, err)

	req, _ := srv.LastRequest()
	assert.Equal(t, "max-age: 3600", req.Header.Get("Cache-Control"))
	assert.Equal(t, "/files/docs/notes.txt", req.Path)
}

func TestUploadFileErrors(t *testing.T) {
	c, _ := setupTestClient(t)
	ctx := context.Background()

	_, err := c.UploadFile(ctx, "/", "docs/")
	assert.ErrorIs(t, err, ass.ErrInvalidFileName)

	_, err = c.UploadFile(ctx, filepath.Join(t.TempDir(), "missing.txt"), "docs/")
	assert.ErrorIs(t, err, ass.ErrNotFound)

	// directories open fine but fail while the body streams
	dir := t.TempDir()
	_, err = c.UploadFile(ctx, dir, "docs/")
	assert.ErrorIs(t, err, ass.ErrTransport)
}

func TestSearchFiles(t *testing.T) {
	c, srv := setupTestClient(t)
	srv.AddFile("reports/2023.pdf", []byte("pdf"), "application/pdf")
	srv.AddFile("reports/2024.pdf", []byte("pdf2"), "application/pdf")
	srv.AddFile("images/logo.png", []byte("png"), "image/png")

	recs, err := c.SearchFiles(context.Background(), ass.Param{Key: "path", Value: "reports/"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "reports/2023.pdf", recs[0].Path)
	assert.Equal(t, "reports/2024.pdf", recs[1].Path)

	req, _ := srv.LastRequest()
	assert.Equal(t, "/files", req.Path)
	assert.Equal(t, "path=reports%2F", req.RawQuery)
}

func TestSearchDocuments(t *testing.T) {
	c, srv := setupTestClient(t)
	rec := srv.AddFile("images/logo.png", []byte("png"), "image/png")

	docs, err := c.Search(context.Background(),
		ass.Param{Key: "content_type", Value: "image/png"},
		ass.Param{Key: "path", Value: "logo"})
	require.NoError(t, err)
	require.Len(t, docs, 1)

	id, ok := docs[0].ID()
	assert.True(t, ok)
	assert.Equal(t, rec.ID, id)

	path, ok := docs[0].Path()
	assert.True(t, ok)
	assert.Equal(t, "images/logo.png", path)

	req, _ := srv.LastRequest()
	assert.Equal(t, "content_type=image%2Fpng&path=logo", req.RawQuery)
}

func TestGetFileInformation(t *testing.T) {
	c, srv := setupTestClient(t)
	added := srv.AddFile("docs/readme.txt", []byte("a\nb\n"), "text/plain")

	rec, err := c.GetFileInformation(context.Background(), added.ID)
	require.NoError(t, err)
	assert.Equal(t, added.Path, rec.Path)
	assert.Equal(t, added.MD5, rec.MD5)
	assert.True(t, added.Created.Equal(rec.Created))

	_, err = c.GetFileInformation(context.Background(), 999)
	require.Error(t, err)
	assert.ErrorIs(t, err, ass.ErrTransport)

	var statusErr *client.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestGetFileAnalysis(t *testing.T) {
	c, srv := setupTestClient(t)
	added := srv.AddFile("docs/readme.txt", []byte("a\nb\n"), "text/plain")

	doc, err := c.GetFileAnalysis(context.Background(), added.ID)
	require.NoError(t, err)

	id, ok := doc.ID()
	assert.True(t, ok)
	assert.Equal(t, added.ID, id)

	lines, ok := doc.Get("lines")
	require.True(t, ok)
	n, _ := lines.Int()
	assert.Equal(t, int64(2), n)

	req, _ := srv.LastRequest()
	assert.Equal(t, "/files/1/analysis", req.Path)
}

func TestGetFileRender(t *testing.T) {
	c, srv := setupTestClient(t)
	img := srv.AddFile("images/logo.png", []byte("png"), "image/png")
	txt := srv.AddFile("docs/readme.txt", []byte("text"), "text/plain")

	rec, err := c.GetFileRender(context.Background(), img.ID)
	require.NoError(t, err)
	assert.Equal(t, img.ID, rec.ID)

	_, err = c.GetFileRender(context.Background(), txt.ID)
	assert.ErrorIs(t, err, ass.ErrTransport)
}

func TestGetFileURL(t *testing.T) {
	c, srv := setupTestClient(t)
	srv.AddFile("docs/readme.txt", []byte("hello"), "text/plain")

	link, err := c.GetFileURL("docs/readme.txt")
	require.NoError(t, err)

	unsigned := srv.URL + "/users/account/files/docs/readme.txt"
	assert.Equal(t, unsigned+"?accessToken="+c.Signer().Token(unsigned), link)

	again, err := c.GetFileURL("docs/readme.txt")
	require.NoError(t, err)
	assert.Equal(t, link, again)

	resp, err := srv.Client().Get(link)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", string(body))

	tampered, err := srv.Client().Get(strings.Replace(link, "readme", "secret", 1))
	require.NoError(t, err)
	tampered.Body.Close()
	assert.Equal(t, http.StatusForbidden, tampered.StatusCode)
}

func TestGetFileURLRejectsBaseWithPath(t *testing.T) {
	// joining "users/..." replaces the last base path segment, so the result
	// no longer contains the raw base URL
	cred, err := ass.NewCredential("http://storage.example.com/api", "account", "apikey")
	require.NoError(t, err)

	_, err = client.New(cred).GetFileURL("docs/readme.txt")
	assert.ErrorIs(t, err, ass.ErrURLDoesNotMatchAccount)
}

func TestUploadImage(t *testing.T) {
	c, srv := setupTestClient(t)
	path := createTestPNG(t, 4, 3)

	rec, err := c.UploadImage(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), rec.Width)
	assert.Equal(t, uint64(3), rec.Height)

	req, _ := srv.LastRequest()
	assert.Equal(t, "/images", req.Path)

	info, err := c.GetImageInformation(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.MD5, info.MD5)

	notImage := createTestFile(t, "fake.jpg", []byte("not really a jpeg"))
	_, err = c.UploadImage(context.Background(), notImage)
	assert.ErrorIs(t, err, ass.ErrTransport)
}

func TestGetImageURL(t *testing.T) {
	c, srv := setupTestClient(t)
	rec, err := c.UploadImage(context.Background(), createTestPNG(t, 2, 2))
	require.NoError(t, err)

	link, err := c.GetImageURL(rec.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, srv.URL+"/users/account/images/1.jpg?accessToken="))
	assert.NoError(t, c.Signer().Verify(link))

	resp, err := srv.Client().Get(link)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWrongAPIKeyIsTransportError(t *testing.T) {
	srv := asstest.NewServer(testAccount, testAPIKey)
	defer srv.Close()

	cred, err := ass.NewCredential(srv.URL, testAccount, "wrong")
	require.NoError(t, err)
	c := client.New(cred, client.WithHTTPClient(srv.Client()))

	_, err = c.SearchFiles(context.Background())
	require.Error(t, err)

	var statusErr *client.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestSenderFailure(t *testing.T) {
	cred, err := ass.NewCredential("http://url", "name", "apikey")
	require.NoError(t, err)

	boom := errors.New("connection refused")
	c := client.New(cred, client.WithSender(client.SenderFunc(
		func(ctx context.Context, method string, u *url.URL, header http.Header, body io.Reader) (*client.Response, error) {
			return nil, boom
		})))

	_, err = c.GetImageInformation(context.Background(), 1)
	assert.ErrorIs(t, err, ass.ErrTransport)
	assert.ErrorIs(t, err, boom)
}

func TestMalformedBodyIsJSONError(t *testing.T) {
	cred, err := ass.NewCredential("http://url", "name", "apikey")
	require.NoError(t, err)

	c := client.New(cred, client.WithSender(client.SenderFunc(
		func(ctx context.Context, method string, u *url.URL, header http.Header, body io.Reader) (*client.Response, error) {
			return &client.Response{StatusCode: http.StatusOK, Body: []byte(`<html>`)}, nil
		})))

	_, err = c.GetFileInformation(context.Background(), 1)
	assert.ErrorIs(t, err, ass.ErrJSON)
}

func TestSenderSeesAuthenticatedRequest(t *testing.T) {
	cred, err := ass.NewCredential("http://url", "name", "apikey")
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		gotURL  string
		gotHdr  http.Header
		gotBody []byte
	)
	c := client.New(cred,
		client.WithRequestIDFunc(func() string { return "req-1" }),
		client.WithSender(client.SenderFunc(
			func(ctx context.Context, method string, u *url.URL, header http.Header, body io.Reader) (*client.Response, error) {
				mu.Lock()
				defer mu.Unlock()
				gotURL = method + " " + u.String()
				gotHdr = header
				if body != nil {
					gotBody, _ = io.ReadAll(body)
				}
				return &client.Response{StatusCode: http.StatusCreated, Body: []byte(`{"id": 12, "user_id": 3, "md5": "m", "original_url": "u", "width": 1, "height": 1, "name": "12.jpg", "created": "2013-08-21T09:30:50Z", "updated": "2013-08-21T09:30:50Z"}`)}, nil
			})))

	path := createTestFile(t, "pixel.gif", []byte("GIF89a"))
	rec, err := c.UploadImage(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), rec.ID)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "POST http://url/images", gotURL)
	assert.Equal(t, "req-1", gotHdr.Get(client.HeaderRequestID))
	assert.Equal(t, "bearer apikey", gotHdr.Get("Authorization"))
	assert.Contains(t, string(gotBody), `name="file"; filename="pixel.gif"`)
	assert.Contains(t, string(gotBody), "Content-Type: image/gif")
	assert.Contains(t, string(gotBody), "GIF89a")
}

func TestClientLogsRequests(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	c, _ := setupTestClient(t, client.WithLogger(logger))
	_, err := c.SearchFiles(context.Background())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"storage request"`)
	assert.Contains(t, out, `"path":"/files"`)
	assert.Contains(t, out, `"status":200`)
	assert.NotContains(t, out, testAPIKey)
}

func TestContextCancellation(t *testing.T) {
	c, _ := setupTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.SearchFiles(ctx)
	assert.ErrorIs(t, err, ass.ErrTransport)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUploadProgress(t *testing.T) {
	path := createTestFile(t, "blob.bin", make([]byte, 100_000))

	var last int64
	c, _ := setupTestClient(t, client.WithProgress(func(n int64) {
		atomic.StoreInt64(&last, n)
	}))

	_, err := c.UploadFile(context.Background(), path, "blobs/")
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), atomic.LoadInt64(&last))
}

func TestSearchNonArrayBody(t *testing.T) {
	cred, err := ass.NewCredential("http://url", "name", "apikey")
	require.NoError(t, err)

	c := client.New(cred, client.WithSender(client.SenderFunc(
		func(ctx context.Context, method string, u *url.URL, header http.Header, body io.Reader) (*client.Response, error) {
			return &client.Response{StatusCode: http.StatusOK, Body: []byte(`{"results": []}`)}, nil
		})))

	docs, err := c.Search(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = c.SearchFiles(context.Background())
	assert.ErrorIs(t, err, ass.ErrJSON)
}
