package types

import "fmt"

// PrefillValue is an answer candidate extracted from the user's request,
// with the model's confidence that it is correct.
type PrefillValue struct {
	Value      string
	Confidence float64
}

// Question asks the user for one variable's value. Prefill, when present,
// has already passed the variable's value validation.
type Question struct {
	VariableKey string
	Prompt      string
	Prefill     *PrefillValue
	Answered    bool
}

// DefaultPrompt builds the fallback question text for a variable when the
// generator did not supply one.
func DefaultPrompt(v *Variable) string {
	label := v.Label
	if label == "" {
		label = v.Key
	}
	return fmt.Sprintf("What is the %s?", label)
}
