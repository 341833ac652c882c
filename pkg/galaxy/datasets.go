package galaxy

import (
	"context"
	"net/url"
	"time"
)

// ShowDataset fetches a dataset by ID.
func (c *Client) ShowDataset(ctx context.Context, id string) (*Dataset, error) {
	var d Dataset
	if err := c.do(ctx, "ShowDataset", "GET", "datasets/"+url.PathEscape(id), nil, nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// DownloadURL returns the absolute URL for the dataset's content.
func (c *Client) DownloadURL(d Dataset) string {
	if d.DownloadURL != "" {
		return c.config.URL + d.DownloadURL
	}
	return c.config.URL + "/api/datasets/" + url.PathEscape(d.ID) + "/display?to_ext=" + url.QueryEscape(d.Extension)
}

// WaitForDataset polls a dataset until it reaches a terminal state.
func (c *Client) WaitForDataset(ctx context.Context, id string, pollInterval time.Duration) (*Dataset, error) {
	if pollInterval == 0 {
		pollInterval = DefaultPollInterval
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	d, err := c.ShowDataset(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.State.IsTerminal() {
		return d, nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			d, err = c.ShowDataset(ctx, id)
			if err != nil {
				return nil, err
			}
			c.logger.Debug("dataset state", "id", id, "state", d.State)
			if d.State.IsTerminal() {
				return d, nil
			}
		}
	}
}
