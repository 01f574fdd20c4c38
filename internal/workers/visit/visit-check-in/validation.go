package visitcheckin

import (
	"fmt"

	"fieldsales-workers/internal/common/validation"
)

var inputSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"principal":         {Type: "object"},
		"clientId":          {Type: "string", MinLength: validation.IntPtr(1)},
		"position":          {Type: "object"},
		"overrideConfirmed": {Type: "boolean"},
		"scheduledVisitId":  {Type: "string"},
	},
	Required: []string{"clientId"},
}

func validateInput(input *Input) error {
	if err := input.Principal.Validate(); err != nil {
		return err
	}
	if res := validation.ValidateObject(input, inputSchema); !res.Valid {
		return fmt.Errorf("%w: %s", ErrValidation, res.Error())
	}
	return nil
}
