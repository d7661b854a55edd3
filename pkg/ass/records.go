package ass

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// FileRecord describes a stored file.
type FileRecord struct {
	ID          uint64    `json:"id"`
	UserID      uint64    `json:"user_id"`
	Path        string    `json:"path"`
	MD5         string    `json:"md5"`
	ContentType string    `json:"content_type"`
	OriginalURL string    `json:"original_url"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

// RequiredFields lists the JSON fields that must be present and non-null.
func (FileRecord) RequiredFields() []string {
	return []string{"id", "user_id", "path", "md5", "content_type", "original_url", "created", "updated"}
}

func (r FileRecord) String() string {
	return fmt.Sprintf("file %d (%s, %s)", r.ID, r.Path, r.ContentType)
}

// ImageRecord describes a stored image.
type ImageRecord struct {
	ID          uint64    `json:"id"`
	UserID      uint64    `json:"user_id"`
	MD5         string    `json:"md5"`
	OriginalURL string    `json:"original_url"`
	Width       uint64    `json:"width"`
	Height      uint64    `json:"height"`
	Name        string    `json:"name"`
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Author      *string   `json:"author,omitempty"`
	SourceURL   *string   `json:"source_url,omitempty"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

// RequiredFields lists the JSON fields that must be present and non-null.
func (ImageRecord) RequiredFields() []string {
	return []string{"id", "user_id", "md5", "original_url", "width", "height", "name", "created", "updated"}
}

func (r ImageRecord) String() string {
	return fmt.Sprintf("image %d (%s, %dx%d)", r.ID, r.Name, r.Width, r.Height)
}

// Record is implemented by typed views that declare mandatory fields.
type Record interface {
	RequiredFields() []string
}

// DecodeRecord decodes body into T. Malformed JSON, type mismatches and, when
// T implements Record, absent or null required fields are all reported as
// KindJSON errors.
func DecodeRecord[T any](body []byte) (T, error) {
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return out, JSON(err)
	}
	if rec, ok := any(out).(Record); ok {
		if err := checkRequired(body, rec.RequiredFields()); err != nil {
			var zero T
			return zero, err
		}
	}
	return out, nil
}

// DecodeRecords decodes a JSON array of T, checking required fields of every element.
func DecodeRecords[T any](body []byte) ([]T, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, JSON(err)
	}
	out := make([]T, 0, len(raw))
	for i, item := range raw {
		rec, err := DecodeRecord[T](item)
		if err != nil {
			return nil, JSON(fmt.Errorf("element %d: %w", i, errors.Unwrap(err)))
		}
		out = append(out, rec)
	}
	return out, nil
}

func checkRequired(body []byte, fields []string) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return JSON(err)
	}
	for _, f := range fields {
		v, ok := obj[f]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return JSON(fmt.Errorf("missing field %q", f))
		}
	}
	return nil
}
