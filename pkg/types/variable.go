package types

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// VarType is the declared data type of a template variable.
type VarType string

const (
	TypeString  VarType = "string"
	TypeDate    VarType = "date"
	TypeNumber  VarType = "number"
	TypeBoolean VarType = "boolean"
	TypeEnum    VarType = "enum"
)

var (
	keyPattern  = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Variable declares a fill-in slot in a template body.
type Variable struct {
	Key         string
	Label       string
	Description string
	Example     string
	Required    bool
	DType       VarType
	Regex       string
	EnumValues  []string
}

// Validate checks the variable declaration itself.
func (v *Variable) Validate() error {
	if !keyPattern.MatchString(v.Key) {
		return fmt.Errorf("%w: variable key %q must match %s", ErrInvalidInput, v.Key, keyPattern.String())
	}
	if v.Label == "" {
		return fmt.Errorf("%w: variable %q has no label", ErrInvalidInput, v.Key)
	}
	switch v.DType {
	case TypeString, TypeDate, TypeNumber, TypeBoolean:
	case TypeEnum:
		if len(v.EnumValues) == 0 {
			return fmt.Errorf("%w: enum variable %q has no values", ErrInvalidInput, v.Key)
		}
	case "":
		return fmt.Errorf("%w: variable %q has no dtype", ErrInvalidInput, v.Key)
	default:
		return fmt.Errorf("%w: variable %q has unknown dtype %q", ErrInvalidInput, v.Key, v.DType)
	}
	if v.Regex != "" {
		if _, err := regexp.Compile(v.Regex); err != nil {
			return fmt.Errorf("%w: variable %q regex: %v", ErrInvalidInput, v.Key, err)
		}
	}
	return nil
}

// ValidateValue checks a candidate answer against the declared dtype, regex,
// and enum constraints. Enum comparison is case-insensitive.
func (v *Variable) ValidateValue(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		if v.Required {
			return fmt.Errorf("%w: %s is required", ErrInvalidInput, v.Key)
		}
		return nil
	}
	switch v.DType {
	case TypeDate:
		if !datePattern.MatchString(value) {
			return fmt.Errorf("%w: %s must be an ISO date (YYYY-MM-DD)", ErrInvalidInput, v.Key)
		}
	case TypeNumber:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("%w: %s must be numeric", ErrInvalidInput, v.Key)
		}
	case TypeBoolean:
		switch strings.ToLower(value) {
		case "true", "false", "yes", "no":
		default:
			return fmt.Errorf("%w: %s must be a boolean", ErrInvalidInput, v.Key)
		}
	case TypeEnum:
		ok := false
		for _, allowed := range v.EnumValues {
			if strings.EqualFold(allowed, value) {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%w: %s must be one of %s",
				ErrInvalidInput, v.Key, strings.Join(v.EnumValues, ", "))
		}
	}
	if v.Regex != "" {
		re, err := regexp.Compile(v.Regex)
		if err == nil && !re.MatchString(value) {
			return fmt.Errorf("%w: %s does not match required format", ErrInvalidInput, v.Key)
		}
	}
	return nil
}
