package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tendant/smooth-storage/pkg/ass"
)

// SearchFiles queries GET files?<params> and decodes the result as file records.
func (c *Client) SearchFiles(ctx context.Context, params ...ass.Param) ([]ass.FileRecord, error) {
	body, err := c.search(ctx, params)
	if err != nil {
		return nil, err
	}
	return ass.DecodeRecords[ass.FileRecord](body)
}

// Search queries GET files?<params> and returns the raw result documents.
// A response that is not a JSON array yields no documents.
func (c *Client) Search(ctx context.Context, params ...ass.Param) ([]ass.Document, error) {
	body, err := c.search(ctx, params)
	if err != nil {
		return nil, err
	}
	return ass.DecodeDocuments(body)
}

func (c *Client) search(ctx context.Context, params []ass.Param) ([]byte, error) {
	u, err := ass.Endpoint(c.cred, "files")
	if err != nil {
		return nil, err
	}
	u = ass.WithQuery(u, params...)

	resp, err := c.send(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// UploadFile uploads the file at path to files/<destination><file name>.
// destination should end in "/" to be treated as a directory.
func (c *Client) UploadFile(ctx context.Context, path, destination string) (ass.FileRecord, error) {
	return c.UploadFileWithHeaders(ctx, path, destination, nil)
}

// UploadFileWithHeaders is UploadFile with extra request headers, which
// replace authenticated headers of the same name.
func (c *Client) UploadFileWithHeaders(ctx context.Context, path, destination string, headers http.Header) (ass.FileRecord, error) {
	name, err := ass.FileName(path)
	if err != nil {
		return ass.FileRecord{}, err
	}

	u, err := ass.Endpoint(c.cred, "files/"+destination, "./"+url.PathEscape(name))
	if err != nil {
		return ass.FileRecord{}, err
	}

	body, err := c.postFile(ctx, u, path, name, headers)
	if err != nil {
		return ass.FileRecord{}, err
	}
	return ass.DecodeRecord[ass.FileRecord](body)
}

// UploadFileWithCache uploads with a Cache-Control directive of maxAge seconds.
// The directive is written as "max-age: <n>", the form the service expects.
func (c *Client) UploadFileWithCache(ctx context.Context, path, destination string, maxAge uint32) (ass.FileRecord, error) {
	headers := http.Header{}
	headers.Set("Cache-Control", fmt.Sprintf("max-age: %d", maxAge))
	return c.UploadFileWithHeaders(ctx, path, destination, headers)
}

// GetFileInformation fetches GET files/<id>.
func (c *Client) GetFileInformation(ctx context.Context, id uint64) (ass.FileRecord, error) {
	body, err := c.get(ctx, fmt.Sprintf("files/%d", id))
	if err != nil {
		return ass.FileRecord{}, err
	}
	return ass.DecodeRecord[ass.FileRecord](body)
}

// GetFileAnalysis fetches GET files/<id>/analysis. The analysis schema
// depends on the file type, so it is returned untyped.
func (c *Client) GetFileAnalysis(ctx context.Context, id uint64) (ass.Document, error) {
	body, err := c.get(ctx, fmt.Sprintf("files/%d/analysis", id))
	if err != nil {
		return ass.Document{}, err
	}
	return ass.DecodeDocument(body)
}

// GetFileRender fetches GET files/<id>/image, the record of the file's rendered image.
func (c *Client) GetFileRender(ctx context.Context, id uint64) (ass.FileRecord, error) {
	body, err := c.get(ctx, fmt.Sprintf("files/%d/image", id))
	if err != nil {
		return ass.FileRecord{}, err
	}
	return ass.DecodeRecord[ass.FileRecord](body)
}

// GetFileURL returns the signed public URL of users/<account>/files/<path>.
// No request is made.
func (c *Client) GetFileURL(path string) (string, error) {
	u, err := ass.Endpoint(c.cred, fmt.Sprintf("users/%s/files/%s", c.cred.AccountName(), path))
	if err != nil {
		return "", err
	}
	return c.signer.SignURL(u.String())
}
