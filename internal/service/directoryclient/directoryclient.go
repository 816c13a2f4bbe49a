package directoryclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	pathClients = "/api/clients/{id}"
	pathUsers   = "/api/users/{id}"
	pathQuotes  = "/api/quotes/{id}"
)

// DirectoryClient answers existence lookups against the dealership CRUD service.
type DirectoryClient struct {
	client *resty.Client
}

func NewDirectoryClient(serviceAddr string) *DirectoryClient {
	client := resty.New().
		SetBaseURL(serviceAddr).
		SetTimeout(5 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)
	return &DirectoryClient{client: client}
}

func (c *DirectoryClient) ClientExists(ctx context.Context, id int64) (bool, error) {
	return c.exists(ctx, pathClients, id)
}

func (c *DirectoryClient) UserExists(ctx context.Context, id int64) (bool, error) {
	return c.exists(ctx, pathUsers, id)
}

func (c *DirectoryClient) QuoteExists(ctx context.Context, id int64) (bool, error) {
	return c.exists(ctx, pathQuotes, id)
}

func (c *DirectoryClient) exists(ctx context.Context, path string, id int64) (bool, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		Get(path)
	if err != nil {
		return false, err
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("directory request %s status: %d", resp.Request.URL, resp.StatusCode())
	}
}
