// Package validation provides common validation utilities.
package validation

import (
	"fmt"
	"strings"

	"github.com/iwvelando/portion-planner/pkg/constants"
)

// SupportedOutputFormats lists every accepted output format.
var SupportedOutputFormats = []string{
	constants.OutputFormatPretty,
	constants.OutputFormatCSV,
	constants.OutputFormatJSON,
	constants.OutputFormatYAML,
}

// SupportedModes lists every accepted run mode.
var SupportedModes = []string{
	constants.ModeSequence,
	constants.ModeCombinations,
	constants.ModeServe,
}

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	for _, f := range SupportedOutputFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("expected output format of %s, got %s", strings.Join(SupportedOutputFormats, ", "), format)
}

// ValidateMode checks if the run mode is supported.
func ValidateMode(mode string) error {
	for _, m := range SupportedModes {
		if mode == m {
			return nil
		}
	}
	return fmt.Errorf("expected mode of %s, got %s", strings.Join(SupportedModes, ", "), mode)
}
