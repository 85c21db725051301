package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Format identifies a document syntax.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// LoadError describes a document that could not be loaded.
type LoadError struct {
	Code    string
	Path    string
	Message string
	Err     error
}

// Error codes.
const (
	ErrCodeUnsupported = "D001" // unknown file extension
	ErrCodeRead        = "D002" // file could not be read
	ErrCodeParse       = "D003" // syntax error
	ErrCodeNotConcrete = "D004" // CUE value is incomplete
	ErrCodeValue       = "D005" // value has no document representation
)

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	}
	return "", &LoadError{
		Code:    ErrCodeUnsupported,
		Path:    path,
		Message: fmt.Sprintf("unsupported document extension %q (want .json, .yaml, .yml or .cue)", filepath.Ext(path)),
	}
}

// Load reads and normalizes the document at path.
func Load(path string) (any, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Path: path, Message: "reading document", Err: err}
	}
	return Parse(data, format, path)
}

// Parse decodes data in the given format. name is used in error messages
// and as the CUE file name.
func Parse(data []byte, format Format, name string) (any, error) {
	var (
		raw any
		err error
	)
	switch format {
	case FormatJSON:
		raw, err = decodeJSON(data)
	case FormatYAML:
		raw, err = decodeYAML(data)
	case FormatCUE:
		return decodeCUE(data, name)
	default:
		return nil, &LoadError{Code: ErrCodeUnsupported, Path: name, Message: fmt.Sprintf("unsupported format %q", format)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Path: name, Message: err.Error(), Err: err}
	}
	v, err := Normalize(raw)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeValue, Path: name, Message: err.Error(), Err: err}
	}
	return v, nil
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}

func decodeYAML(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// decodeCUE evaluates a CUE file and exports it through JSON, so CUE
// numbers follow the same normalization as JSON ones.
func decodeCUE(data []byte, name string) (any, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(name))
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Path: name, Message: err.Error(), Err: err}
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{Code: ErrCodeNotConcrete, Path: name, Message: err.Error(), Err: err}
	}
	exported, err := value.MarshalJSON()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotConcrete, Path: name, Message: err.Error(), Err: err}
	}
	return Parse(exported, FormatJSON, name)
}
