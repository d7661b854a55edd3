package client

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/smooth-storage/pkg/ass"
)

// formField is the multipart field the storage service reads uploads from.
const formField = "file"

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// multipartFile opens path and returns a streaming multipart/form-data body
// with a single "file" part, plus the matching Content-Type header value.
// The file is read lazily as the body is consumed; progress, when set, is
// told how much of it has been read.
func multipartFile(path, fileName string, progress ProgressFunc) (io.ReadCloser, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", ass.FileAccess(path, err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		defer f.Close()

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			formField, quoteEscaper.Replace(fileName)))
		h.Set("Content-Type", detectContentType(fileName))

		var src io.Reader = f
		if progress != nil {
			src = &progressReader{reader: f, callback: progress}
		}

		part, err := mw.CreatePart(h)
		if err == nil {
			_, err = io.Copy(part, src)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	return pr, mw.FormDataContentType(), nil
}

// detectContentType guesses the MIME type from the file extension.
func detectContentType(fileName string) string {
	if t := mime.TypeByExtension(filepath.Ext(fileName)); t != "" {
		return t
	}
	return "application/octet-stream"
}
