package galaxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// UploadInput describes one file to upload into a history.
type UploadInput struct {
	HistoryID string
	Name      string
	Data      []byte

	// Ext is the Galaxy datatype; empty lets Galaxy sniff it.
	Ext string
	// DBKey is the genome build; empty means unspecified.
	DBKey string
}

// UploadDataset uploads a file through the fetch API and returns the new
// dataset. The dataset is usually still queued; use WaitForDataset to wait
// for it to become usable.
func (c *Client) UploadDataset(ctx context.Context, input UploadInput) (*Dataset, error) {
	const op = "UploadDataset"
	if input.HistoryID == "" {
		return nil, NewError(op, ErrNoHistory.Error())
	}
	if input.Name == "" {
		return nil, NewError(op, "upload needs a file name")
	}

	payload, contentType, err := fetchPayload(input)
	if err != nil {
		return nil, WrapError(op, err)
	}
	header := http.Header{}
	header.Set("Content-Type", contentType)

	var result RunResult
	if err := c.send(ctx, op, "POST", "tools/fetch", nil, payload, header, &result); err != nil {
		return nil, err
	}
	if len(result.Outputs) == 0 {
		return nil, NewError(op, "server created no dataset")
	}
	d := result.Outputs[0]
	if d.HistoryID == "" {
		d.HistoryID = input.HistoryID
	}
	c.logger.Debug("dataset uploaded", "id", d.ID, "name", d.Name, "history", input.HistoryID, "bytes", len(input.Data))
	return &d, nil
}

// UploadFile uploads the file at path into historyID under its base name.
func (c *Client) UploadFile(ctx context.Context, historyID, path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapError("UploadDataset", fmt.Errorf("read %s: %w", path, err))
	}
	return c.UploadDataset(ctx, UploadInput{
		HistoryID: historyID,
		Name:      filepath.Base(path),
		Data:      data,
	})
}

// fetchPayload encodes input as the multipart body of POST /api/tools/fetch.
func fetchPayload(input UploadInput) ([]byte, string, error) {
	ext, dbkey := input.Ext, input.DBKey
	if ext == "" {
		ext = "auto"
	}
	if dbkey == "" {
		dbkey = "?"
	}
	targets, err := json.Marshal([]map[string]any{{
		"destination": map[string]string{"type": "hdas"},
		"elements": []map[string]any{{
			"src":   "files",
			"name":  input.Name,
			"ext":   ext,
			"dbkey": dbkey,
		}},
	}})
	if err != nil {
		return nil, "", fmt.Errorf("marshaling targets: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("history_id", input.HistoryID); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("targets", string(targets)); err != nil {
		return nil, "", err
	}
	part, err := mw.CreateFormFile("files_0|file_data", input.Name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(input.Data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}
