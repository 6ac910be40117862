package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// The option types below are registered as flags by configloader, which
// requires them to implement pflag.Value.
var (
	_ pflag.Value = (*topicList)(nil)
	_ pflag.Value = (*formatValue)(nil)
	_ pflag.Value = (*compressionMode)(nil)
)

const (
	defaultMaxExportCount = 5
	defaultFormat         = formatJSONL
	defaultCompression    = compressionNone
)

func onErr(err *error, f func() error) {
	if *err != nil {
		f()
	}
}

func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

type topicList struct {
	Topics []string
	All    bool
}

func (l *topicList) Type() string {
	return "topics"
}

func (l *topicList) Set(val string) error {
	switch val {
	case "":
		l.All = false
		l.Topics = nil
	case "*":
		l.All = true
		l.Topics = nil
	default:
		l.All = false
		l.Topics = parseCommaSeparatedList(val)
	}
	return nil
}

func (l *topicList) Parse(val interface{}) (interface{}, error) {
	const errMsg = "'topics' must be an empty string, '*' or a list of strings"
	switch topics := val.(type) {
	case nil:
		return topicList{}, nil
	case string:
		var tl topicList
		if err := tl.Set(topics); err != nil {
			return nil, err
		}
		return tl, nil
	case []interface{}:
		var list topicList
		for _, topic := range topics {
			if topic, ok := topic.(string); ok {
				list.Topics = append(list.Topics, topic)
			} else {
				return nil, errors.New(errMsg)
			}
		}
		return list, nil
	}
	return nil, errors.New(errMsg)
}

func (l *topicList) String() string {
	if l.All {
		return "*"
	}
	return strings.Join(l.Topics, ",")
}

func (l *topicList) UnmarshalYAML(val *yaml.Node) error {
	var decoded interface{}
	if err := val.Decode(&decoded); err != nil {
		return err
	}
	tl, err := l.Parse(decoded)
	if err != nil {
		return err
	}
	*l = tl.(topicList)
	return nil
}

// formatValue selects the artifact format exported batches are written in.
type formatValue string

const (
	formatJSONL formatValue = "jsonl"
	formatYAML  formatValue = "yaml"
	formatCSV   formatValue = "csv"
)

func (f *formatValue) Type() string {
	return "format"
}

func (f *formatValue) Set(val string) error {
	switch formatValue(val) {
	case formatJSONL, formatYAML, formatCSV:
		*f = formatValue(val)
		return nil
	}
	return fmt.Errorf("'format' must be one of: %s, %s, %s", formatJSONL, formatYAML, formatCSV)
}

func (f *formatValue) Parse(val interface{}) (interface{}, error) {
	s, ok := val.(string)
	if !ok {
		return nil, errors.New("'format' must be a string")
	}
	var parsed formatValue
	if err := parsed.Set(s); err != nil {
		return nil, err
	}
	return parsed, nil
}

func (f *formatValue) String() string {
	return string(*f)
}

func (f *formatValue) UnmarshalYAML(val *yaml.Node) error {
	var s string
	if err := val.Decode(&s); err != nil {
		return err
	}
	return f.Set(s)
}

// compressionMode selects the compression applied to exported artifacts.
type compressionMode string

const (
	compressionNone compressionMode = "none"
	compressionXZ   compressionMode = "xz"
)

func (m *compressionMode) Type() string {
	return "compression"
}

func (m *compressionMode) Set(val string) error {
	switch compressionMode(val) {
	case compressionNone, compressionXZ:
		*m = compressionMode(val)
		return nil
	}
	return fmt.Errorf("'compression' must be one of: %s, %s", compressionNone, compressionXZ)
}

func (m *compressionMode) Parse(val interface{}) (interface{}, error) {
	s, ok := val.(string)
	if !ok {
		return nil, errors.New("'compression' must be a string")
	}
	var parsed compressionMode
	if err := parsed.Set(s); err != nil {
		return nil, err
	}
	return parsed, nil
}

func (m *compressionMode) String() string {
	return string(*m)
}

func (m *compressionMode) UnmarshalYAML(val *yaml.Node) error {
	var s string
	if err := val.Decode(&s); err != nil {
		return err
	}
	return m.Set(s)
}

type config struct {
	Bags              []string        `usage:"Comma-separated list of recordings to export: storage files, compressed storage files or bag directories"`
	Topics            topicList       `usage:"Comma-separated list of topics to export. Special value '*' means everything."`
	MessageType       string          `flag:"message-type" config:"message_type" usage:"Full ROS 2 type name every record is decoded as"`
	Format            formatValue     `usage:"Artifact format: jsonl, yaml or csv"`
	Compression       compressionMode `usage:"Artifact compression: none or xz"`
	OutputDir         string          `flag:"output-dir" config:"output_dir" usage:"Directory for exported artifacts. If empty, records are written to stdout."`
	SkipDecodeErrors  bool            `flag:"skip-decode-errors" config:"skip_decode_errors" usage:"Skip records that fail to decode instead of aborting the export"`
	RemoveAfterExport bool            `flag:"remove-after-export" config:"remove_after_export" usage:"Remove bag files after a successful export in watch mode"`

	WatchDir       string `flag:"watch-dir" config:"watch_dir" usage:"Watch a recording directory and export bags as they are completed"`
	MaxExportCount int    `flag:"max-export-count" config:"max_export_count" usage:"Maximum number of bags exported concurrently in watch mode"`

	BackendURL          string `flag:"backend-url" config:"backend_url" usage:"URL of the backend server artifacts are uploaded to. If empty, artifacts are kept locally."`
	DeviceID            string `flag:"device-id" config:"device_id" usage:"The provisioned device id"`
	ProjectID           string `flag:"project-id" config:"project_id" usage:"Google Cloud project id"`
	PrivateKeyPath      string `flag:"private-key" config:"private_key" usage:"The private key used for authentication"`
	PrivateKeyAlgorithm string `flag:"key-algorithm" config:"key_algorithm" usage:"Supported values are RS256 and ES256"`
}

func defaultConfig() *config {
	return &config{
		Topics:              topicList{All: true},
		Format:              defaultFormat,
		Compression:         defaultCompression,
		MaxExportCount:      defaultMaxExportCount,
		ProjectID:           "auto-fleet-mgnt",
		PrivateKeyPath:      "/enclave/rsa_private.pem",
		PrivateKeyAlgorithm: "RS256",
	}
}

func (c *config) validate() error {
	if c.MaxExportCount < 1 {
		return errors.New("'max-export-count' must be positive")
	}
	if len(c.Bags) == 0 && c.WatchDir == "" {
		return errors.New("nothing to do: pass --bags or --watch-dir")
	}
	if c.BackendURL != "" && c.DeviceID == "" {
		return errors.New("'device-id' is required when 'backend-url' is set")
	}
	return nil
}
