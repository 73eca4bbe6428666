// Package types provides shared type definitions for the DraftForge server.
//
// This package defines the domain vocabulary used across the pipeline:
// templates, variables, questions, match results, instances, progress
// events, and the shared error taxonomy.
//
// # Core Types
//
// Template is a reusable legal document with {{key}} placeholders and a
// declared variable schema:
//
//	tpl := &types.Template{
//	    Name:    "Mutual NDA",
//	    DocType: "nda",
//	    Body:    "This Agreement is made on {{effective_date}}...",
//	    Variables: []types.Variable{
//	        {Key: "effective_date", Label: "Effective date", DType: types.TypeDate, Required: true},
//	    },
//	}
//	err := tpl.Validate() // placeholders and variables must agree
//
// Variable carries the fill-in schema (dtype, regex, enum values) and
// validates candidate answers via ValidateValue.
//
// # Errors
//
// Sentinel errors (ErrCapabilityUnavailable, ErrGenerationFailed,
// ErrNoMatchFound, ErrFallbackExhausted, ...) are matched with errors.Is;
// ErrorCode maps any pipeline error to its wire-level code.
//
// # Progress
//
// ProgressEvent values trace a request through the pipeline stages
// (received, extracting, embedding, matching, generating, done, failed).
// A Reporter callback receives them; nil reporters are permitted and
// ignored by emitters.
package types
