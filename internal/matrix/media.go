package matrix

import (
	"context"
	"fmt"

	"github.com/liminalpurple/sayangku/internal/storage"
	"maunium.net/go/mautrix/id"
)

// DownloadMedia downloads media from an MXC URI
func (c *Client) DownloadMedia(ctx context.Context, mxcURI string) ([]byte, string, error) {
	parsedURI, err := id.ParseContentURI(mxcURI)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse MXC URI: %w", err)
	}

	data, err := c.DownloadBytes(ctx, parsedURI)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download media: %w", err)
	}

	return data, storage.DetectMimeType(data), nil
}

// UploadMedia uploads media to the homeserver and returns the new MXC URI
func (c *Client) UploadMedia(ctx context.Context, data []byte, mimeType string) (string, error) {
	uploadResp, err := c.UploadBytes(ctx, data, mimeType)
	if err != nil {
		return "", fmt.Errorf("failed to upload media: %w", err)
	}

	return uploadResp.ContentURI.String(), nil
}

// FetchImage returns the bytes behind an image source: a data URL is decoded
// in place, an MXC URI is downloaded
func (c *Client) FetchImage(ctx context.Context, src string) ([]byte, string, error) {
	if data, mimeType, err := storage.ParseDataURL(src); err == nil {
		return data, mimeType, nil
	}
	return c.DownloadMedia(ctx, src)
}
