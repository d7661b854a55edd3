package client

import (
	"context"
	"fmt"

	"github.com/tendant/smooth-storage/pkg/ass"
)

// UploadImage uploads the image at path with POST images.
func (c *Client) UploadImage(ctx context.Context, path string) (ass.ImageRecord, error) {
	name, err := ass.FileName(path)
	if err != nil {
		return ass.ImageRecord{}, err
	}

	u, err := ass.Endpoint(c.cred, "images")
	if err != nil {
		return ass.ImageRecord{}, err
	}

	body, err := c.postFile(ctx, u, path, name, nil)
	if err != nil {
		return ass.ImageRecord{}, err
	}
	return ass.DecodeRecord[ass.ImageRecord](body)
}

// GetImageInformation fetches GET images/<id>.
func (c *Client) GetImageInformation(ctx context.Context, id uint64) (ass.ImageRecord, error) {
	body, err := c.get(ctx, fmt.Sprintf("images/%d", id))
	if err != nil {
		return ass.ImageRecord{}, err
	}
	return ass.DecodeRecord[ass.ImageRecord](body)
}

// GetImageURL returns the signed public URL of users/<account>/images/<id>.jpg.
func (c *Client) GetImageURL(id uint64) (string, error) {
	u, err := ass.Endpoint(c.cred, fmt.Sprintf("users/%s/images/%d.jpg", c.cred.AccountName(), id))
	if err != nil {
		return "", err
	}
	return c.signer.SignURL(u.String())
}
