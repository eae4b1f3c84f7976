// Package config loads the backend target list and the run settings.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// ErrNoTargets is returned when the targets file lists nothing to drive.
var ErrNoTargets = errors.New("no backend targets configured")

//go:embed targets.schema.json
var targetsSchemaSource string

var targetsSchema = jsonschema.MustCompileString("targets.schema.json", targetsSchemaSource)

// Target is one backend instance of the shop API.
//
// Example JSON:
//
//	[{"ip": "10.0.0.1", "port": 8080}, {"ip": "10.0.0.2", "port": 8080, "slots": 2}]
type Target struct {
	IP   string `json:"ip" yaml:"ip"`
	Port int    `json:"port" yaml:"port"`

	// Slots is how many sessions may hold this target at once (default 1)
	Slots int `json:"slots,omitempty" yaml:"slots,omitempty"`
}

// Address returns host:port.
func (t Target) Address() string {
	return net.JoinHostPort(t.IP, strconv.Itoa(t.Port))
}

// BaseURL returns the URL every API path is resolved against.
func (t Target) BaseURL() string {
	return "http://" + t.Address()
}

// SlotCount returns Slots, defaulting to 1.
func (t Target) SlotCount() int {
	if t.Slots < 1 {
		return 1
	}
	return t.Slots
}

// LoadTargets reads and validates a targets file.
func LoadTargets(path string) ([]Target, error) {
	if path == "" {
		return nil, fmt.Errorf("targets file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read targets file: %w", err)
	}

	targets, err := ParseTargets(data, path)
	if err != nil {
		return nil, fmt.Errorf("invalid targets file %s: %w", path, err)
	}
	return targets, nil
}

// ParseTargets parses targets data.
//
// The format is determined by the file extension in path: .yaml and .yml are
// YAML, anything else is JSON.
func ParseTargets(data []byte, path string) ([]Target, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrNoTargets
	}

	var doc interface{}
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		var raw interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse YAML targets: %w", err)
		}
		// round-trip so the schema sees JSON types
		normalized, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML targets: %w", err)
		}
		data = normalized
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON targets: %w", err)
	}
	if list, ok := doc.([]interface{}); ok && len(list) == 0 {
		return nil, ErrNoTargets
	}

	if err := targetsSchema.Validate(doc); err != nil {
		return nil, schemaErrors(err)
	}

	var targets []Target
	if err := json.Unmarshal(data, &targets); err != nil {
		return nil, fmt.Errorf("failed to decode targets: %w", err)
	}
	return targets, nil
}

// schemaErrors flattens a schema failure into ValidationErrors, one entry
// per leaf cause.
func schemaErrors(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}

	errs := &ValidationErrors{}
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			errs.Add(instanceField(e.InstanceLocation), e.Message)
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)
	return errs.orNil()
}

// instanceField turns a JSON pointer like /1/port into [1].port.
func instanceField(pointer string) string {
	if pointer == "" || pointer == "/" {
		return ""
	}
	var sb strings.Builder
	for _, part := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		if _, err := strconv.Atoi(part); err == nil {
			sb.WriteString("[" + part + "]")
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(".")
		}
		sb.WriteString(part)
	}
	return sb.String()
}
