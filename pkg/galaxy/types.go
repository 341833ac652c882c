package galaxy

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParamType is the raw Galaxy tool-parameter type tag.
type ParamType string

const (
	TypeSelect         ParamType = "select"
	TypeData           ParamType = "data"
	TypeDataCollection ParamType = "data_collection"
	TypeText           ParamType = "text"
	TypeInteger        ParamType = "integer"
	TypeFloat          ParamType = "float"
	TypeBoolean        ParamType = "boolean"
	TypeHidden         ParamType = "hidden"
	TypeHiddenData     ParamType = "hidden_data"
	TypeUploadDataset  ParamType = "upload_dataset"
	TypeGenomeBuild    ParamType = "genomebuild"
	TypeConditional    ParamType = "conditional"
	TypeRepeat         ParamType = "repeat"
	TypeSection        ParamType = "section"
	TypeRules          ParamType = "rules"
	TypeDataColumn     ParamType = "data_column"
	TypeColor          ParamType = "color"
	TypeDrillDown      ParamType = "drill_down"
	TypeDirectoryURI   ParamType = "directory_uri"
	TypeBaseURL        ParamType = "baseurl"
)

// ParamTypes lists the complete raw type vocabulary.
var ParamTypes = []ParamType{
	TypeSelect, TypeData, TypeDataCollection, TypeText, TypeInteger, TypeFloat,
	TypeBoolean, TypeHidden, TypeHiddenData, TypeUploadDataset, TypeGenomeBuild,
	TypeConditional, TypeRepeat, TypeSection, TypeRules, TypeDataColumn,
	TypeColor, TypeDrillDown, TypeDirectoryURI, TypeBaseURL,
}

// Known reports whether t belongs to the raw type vocabulary.
func (t ParamType) Known() bool {
	for _, k := range ParamTypes {
		if t == k {
			return true
		}
	}
	return false
}

// Flag is a boolean decoded leniently: JSON booleans, numbers and the usual
// string spellings ("true", "1", "yes") are accepted.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch b := v.(type) {
	case nil:
		*f = false
	case bool:
		*f = Flag(b)
	case float64:
		*f = b != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "", "0", "false", "no", "none":
			*f = false
		default:
			*f = true
		}
	default:
		return fmt.Errorf("cannot decode %s as flag", string(data))
	}
	return nil
}

// Text is a string that also accepts JSON booleans and numbers, which Galaxy
// emits for conditional case values of boolean controllers.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch s := v.(type) {
	case nil:
		*t = ""
	case string:
		*t = Text(s)
	case bool:
		*t = Text(strconv.FormatBool(s))
	case float64:
		*t = Text(strconv.FormatFloat(s, 'f', -1, 64))
	default:
		return fmt.Errorf("cannot decode %s as text", string(data))
	}
	return nil
}

// RawParameter is one node of a Galaxy tool's input schema, as returned by
// the tool build endpoint. Sections and conditionals nest further
// parameters; everything else is a leaf.
type RawParameter struct {
	Name  string    `json:"name"`
	Type  ParamType `json:"type"`
	Label string    `json:"label,omitempty"`
	Title string    `json:"title,omitempty"`
	Help  string    `json:"help,omitempty"`

	// Value is the raw default; its shape depends on Type.
	Value any `json:"value,omitempty"`

	Optional        Flag     `json:"optional,omitempty"`
	Multiple        Flag     `json:"multiple,omitempty"`
	Textable        Flag     `json:"textable,omitempty"`
	Hidden          Flag     `json:"hidden,omitempty"`
	RefreshOnChange Flag     `json:"refresh_on_change,omitempty"`
	Extensions      []string `json:"extensions,omitempty"`
	Options         *Options `json:"options,omitempty"`

	// Expanded is only meaningful for sections; nil means absent.
	Expanded *Flag `json:"expanded,omitempty"`

	// TestParam and Cases are only set for conditionals.
	TestParam *RawParameter `json:"test_param,omitempty"`
	Cases     []Case        `json:"cases,omitempty"`

	// Inputs holds the children of sections and repeats.
	Inputs []RawParameter `json:"inputs,omitempty"`
}

// Case is one branch of a conditional.
type Case struct {
	Value  Text           `json:"value"`
	Inputs []RawParameter `json:"inputs,omitempty"`
}

// Tool is a Galaxy tool together with its input schema.
type Tool struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Version     string         `json:"version,omitempty"`
	Description string         `json:"description,omitempty"`
	Help        string         `json:"help,omitempty"`
	Inputs      []RawParameter `json:"inputs"`
}

// ToolRef identifies the tool schema to fetch.
type ToolRef struct {
	ID        string `json:"tool_id"`
	Version   string `json:"tool_version,omitempty"`
	HistoryID string `json:"history_id,omitempty"`
}

// String returns id or id@version.
func (r ToolRef) String() string {
	if r.Version == "" {
		return r.ID
	}
	return r.ID + "@" + r.Version
}

// ToolSummary is an entry of the tool listing.
type ToolSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Version      string `json:"version"`
	Description  string `json:"description"`
	PanelSection string `json:"panel_section_name,omitempty"`
}

// History is a Galaxy history.
type History struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	UpdateTime string `json:"update_time,omitempty"`
}

// DatasetState is the processing state of a dataset.
type DatasetState string

const (
	DatasetNew            DatasetState = "new"
	DatasetQueued         DatasetState = "queued"
	DatasetRunning        DatasetState = "running"
	DatasetOK             DatasetState = "ok"
	DatasetError          DatasetState = "error"
	DatasetFailedMetadata DatasetState = "failed_metadata"
	DatasetDiscarded      DatasetState = "discarded"
)

// IsTerminal returns true if no further state change is expected.
func (s DatasetState) IsTerminal() bool {
	switch s {
	case DatasetOK, DatasetError, DatasetFailedMetadata, DatasetDiscarded:
		return true
	default:
		return false
	}
}

// Dataset is a history dataset association.
type Dataset struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	State       DatasetState `json:"state"`
	Extension   string       `json:"extension,omitempty"`
	FileSize    int64        `json:"file_size,omitempty"`
	HistoryID   string       `json:"history_id,omitempty"`
	DownloadURL string       `json:"download_url,omitempty"`
	CreateTime  string       `json:"create_time,omitempty"`
}

// Created parses CreateTime; Galaxy emits ISO timestamps without a zone.
func (d Dataset) Created() (time.Time, bool) {
	for _, layout := range []string{"2006-01-02T15:04:05.999999", time.RFC3339Nano} {
		if t, err := time.Parse(layout, d.CreateTime); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Job is a job created by running a tool.
type Job struct {
	ID     string `json:"id"`
	State  string `json:"state"`
	ToolID string `json:"tool_id,omitempty"`
}

// RunResult is the response of a tool run.
type RunResult struct {
	Outputs []Dataset `json:"outputs"`
	Jobs    []Job     `json:"jobs"`
}
