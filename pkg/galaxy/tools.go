package galaxy

import (
	"context"
	"net/url"
)

// BuildTool fetches the tool's input schema. When inputs is non-nil the
// server evaluates the schema against those current values, which may
// narrow choices or change defaults of downstream parameters.
func (c *Client) BuildTool(ctx context.Context, ref ToolRef, inputs map[string]any) (*Tool, error) {
	payload := map[string]any{}
	if inputs != nil {
		payload["inputs"] = inputs
	}
	if ref.Version != "" {
		payload["tool_version"] = ref.Version
	}
	if ref.HistoryID != "" {
		payload["history_id"] = ref.HistoryID
	}

	var tool Tool
	if err := c.do(ctx, "BuildTool", "POST", "tools/"+url.PathEscape(ref.ID)+"/build", nil, payload, &tool); err != nil {
		return nil, err
	}
	if tool.ID == "" {
		tool.ID = ref.ID
	}
	return &tool, nil
}

// ToolSchema builds the tool against the given history, falling back to the
// most recently used history when ref names none.
func (c *Client) ToolSchema(ctx context.Context, ref ToolRef, values map[string]any) (*Tool, error) {
	if ref.HistoryID == "" {
		h, err := c.MostRecentHistory(ctx)
		switch {
		case err == nil:
			ref.HistoryID = h.ID
		case IsAuthError(err):
			return nil, err
		default:
			c.logger.Debug("building tool without history", "tool", ref.String(), "error", err)
		}
	}
	return c.BuildTool(ctx, ref, values)
}

// ListTools lists every tool installed on the server.
func (c *Client) ListTools(ctx context.Context) ([]ToolSummary, error) {
	q := url.Values{}
	q.Set("in_panel", "false")

	var tools []ToolSummary
	if err := c.do(ctx, "ListTools", "GET", "tools", q, nil, &tools); err != nil {
		return nil, err
	}
	if tools == nil {
		tools = []ToolSummary{}
	}
	return tools, nil
}

// RunInput contains the parameters for running a tool.
type RunInput struct {
	// Tool identifies the tool and the history outputs are written to.
	Tool ToolRef

	// Inputs maps Galaxy parameter paths to values.
	Inputs map[string]any
}

// RunTool submits a job.
func (c *Client) RunTool(ctx context.Context, input RunInput) (*RunResult, error) {
	if input.Tool.HistoryID == "" {
		return nil, NewError("RunTool", ErrNoHistory.Error())
	}
	payload := map[string]any{
		"tool_id":    input.Tool.ID,
		"history_id": input.Tool.HistoryID,
		"inputs":     input.Inputs,
	}
	if input.Tool.Version != "" {
		payload["tool_version"] = input.Tool.Version
	}

	var result RunResult
	if err := c.do(ctx, "RunTool", "POST", "tools", nil, payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListHistories lists the user's histories, most recently updated first.
func (c *Client) ListHistories(ctx context.Context) ([]History, error) {
	q := url.Values{}
	q.Set("order", "update_time")

	var histories []History
	if err := c.do(ctx, "ListHistories", "GET", "histories", q, nil, &histories); err != nil {
		return nil, err
	}
	return histories, nil
}

// MostRecentHistory returns the user's most recently used history.
func (c *Client) MostRecentHistory(ctx context.Context) (*History, error) {
	var h History
	if err := c.do(ctx, "MostRecentHistory", "GET", "histories/most_recently_used", nil, nil, &h); err != nil {
		return nil, err
	}
	if h.ID == "" {
		return nil, NewError("MostRecentHistory", ErrNoHistory.Error())
	}
	return &h, nil
}
