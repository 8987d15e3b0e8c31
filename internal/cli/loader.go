package cli

import (
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/rangelab/vaxsim/internal/config"
)

// Error code constants - unified across all CLI commands. Simulation
// failures carry their own codes (CONFIGURATION, SAMPLING, ...) and are
// reported verbatim.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Path not found
	ErrCodeParseFailed = "E003" // CUE parse failed
	ErrCodeBadConfig   = "E004" // Config decode/validation failed
	ErrCodeArtifact    = "E005" // Artifact open/load failed
	ErrCodeResults     = "E006" // Results store error
)

// LoadError represents an error that occurred during config loading.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadConfig reads, evaluates, and decodes a CUE run configuration.
//
// The file is a plain CUE value whose fields mirror the configuration
// schema, with dates as "YYYY-MM-DD" strings:
//
//	location:        "bangladesh"
//	random_seed:     42
//	population_size: 10_000
//	start_date:      "2025-01-01"
//	end_date:        "2027-01-01"
//	vaccine: {schedule: "9_12", coverage: 0.8}
//
// Omitted fields keep their documented defaults. The returned config is
// decoded but not yet validated; callers run Validate when appropriate.
func LoadConfig(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error reading config: %v", err)}
	}

	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("parsing CUE config: %v", err)}
	}

	cfg := config.Default()
	if err := value.Decode(&cfg); err != nil {
		return nil, &LoadError{Code: ErrCodeBadConfig, Message: fmt.Sprintf("decoding config: %v", err)}
	}

	cfg.StartDate, err = dateField(value, "start_date")
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBadConfig, Message: err.Error()}
	}
	cfg.EndDate, err = dateField(value, "end_date")
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBadConfig, Message: err.Error()}
	}

	return &cfg, nil
}

// dateField extracts a required "YYYY-MM-DD" date from the CUE value.
func dateField(value cue.Value, name string) (time.Time, error) {
	field := value.LookupPath(cue.ParsePath(name))
	if !field.Exists() {
		return time.Time{}, fmt.Errorf("config is missing required field %q", name)
	}
	s, err := field.String()
	if err != nil {
		return time.Time{}, fmt.Errorf("config field %q: %v", name, err)
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("config field %q: expected YYYY-MM-DD, got %q", name, s)
	}
	return t.UTC(), nil
}
