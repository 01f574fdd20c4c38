package clientcreate

import (
	"fmt"
	"strings"

	"fieldsales-workers/internal/common/validation"
	"fieldsales-workers/internal/models"
)

var inputSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"principal":   {Type: "object"},
		"name":        {Type: "string", MinLength: validation.IntPtr(1), MaxLength: validation.IntPtr(200)},
		"address":     {Type: "string", MaxLength: validation.IntPtr(300)},
		"zone":        {Type: "string", MaxLength: validation.IntPtr(100)},
		"latitude":    {Type: "number", Minimum: validation.FloatPtr(-90), Maximum: validation.FloatPtr(90)},
		"longitude":   {Type: "number", Minimum: validation.FloatPtr(-180), Maximum: validation.FloatPtr(180)},
		"phone":       {Type: "string"},
		"email":       {Type: "string"},
		"contactName": {Type: "string", MaxLength: validation.IntPtr(200)},
		"status":      {Type: "string", Enum: []string{models.ClientStatusLead, models.ClientStatusProspect, models.ClientStatusActive}},
		"ownerId":     {Type: "string"},
	},
	Required: []string{"name", "latitude", "longitude"},
}

func validateInput(input *Input) error {
	if err := input.Principal.Validate(); err != nil {
		return err
	}
	if res := validation.ValidateObject(input, inputSchema); !res.Valid {
		return fmt.Errorf("%w: %s", ErrValidation, res.Error())
	}
	if email := strings.TrimSpace(input.Email); email != "" && !validation.ValidateEmail(email) {
		return fmt.Errorf("%w: email: invalid address", ErrValidation)
	}
	return nil
}
