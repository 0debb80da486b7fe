package gtsample

import "fmt"

// ConfigError reports malformed run configuration or ploidy registry input.
// It is fatal: nothing downstream can proceed without a valid registry.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Msg
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

func configErrorf(field, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// DataError reports a malformed genotype vector for one variant. SampleIndex
// is -1 when the problem concerns the variant as a whole.
type DataError struct {
	VariantID   string
	SampleIndex int
	Msg         string
}

func (e *DataError) Error() string {
	if e.SampleIndex < 0 {
		return fmt.Sprintf("variant %s: %s", e.VariantID, e.Msg)
	}
	return fmt.Sprintf("variant %s: sample %d: %s", e.VariantID, e.SampleIndex, e.Msg)
}

func dataErrorf(variantID string, sampleIndex int, format string, args ...interface{}) *DataError {
	return &DataError{VariantID: variantID, SampleIndex: sampleIndex, Msg: fmt.Sprintf(format, args...)}
}

// NewDataError is used by adapters to report records that cannot be turned
// into a genotype vector.
func NewDataError(variantID string, sampleIndex int, format string, args ...interface{}) *DataError {
	return dataErrorf(variantID, sampleIndex, format, args...)
}
