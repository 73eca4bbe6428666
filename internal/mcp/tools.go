package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/draftforge/draftforge/internal/draft"
	"github.com/draftforge/draftforge/internal/pipeline"
	"github.com/draftforge/draftforge/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams         = -32602 // Invalid method parameters
	ErrorCodeInternalError         = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound              = -32001 // Template or instance does not exist
	ErrorCodeNoMatchFound          = -32002 // No stored template survived the quality gate
	ErrorCodeFallbackExhausted     = -32003 // Web fallback terminated without a template
	ErrorCodeClassificationFailed  = -32004 // Source is not recognizably a legal document
	ErrorCodeCapabilityUnavailable = -32005 // Embedding/generation capability failed
	ErrorCodeGenerationFailed      = -32006 // Generator produced no usable template
)

// handleIngestDocument handles the ingest_document tool invocation
func (s *Server) handleIngestDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	sourceText, ok := args["source_text"].(string)
	if !ok || sourceText == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "source_text parameter is required", map[string]interface{}{
			"param":  "source_text",
			"reason": "missing or empty",
		})
	}

	req := pipeline.IngestRequest{
		SourceText: sourceText,
		Name:       getStringDefault(args, "name", ""),
		DocType:    getStringDefault(args, "doc_type", ""),
	}

	var trail pipeline.Trail
	res, err := s.pipeline.Ingest(ctx, req, trail.Report)
	if err != nil {
		return nil, domainError(err)
	}

	response := map[string]interface{}{
		"created":  res.Created,
		"template": templateSummary(res.Template),
		"progress": progressTrail(trail.Events()),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleMatchTemplate handles the match_template tool invocation
func (s *Server) handleMatchTemplate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	topK := getIntDefault(args, "top_k", 5)
	if topK < 1 || topK > 20 {
		return nil, newMCPError(ErrorCodeInvalidParams, "top_k must be between 1 and 20", map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}
	allowFallback := getBoolDefault(args, "allow_fallback", true)

	var trail pipeline.Trail
	res, err := s.pipeline.Match(ctx, pipeline.MatchRequest{
		Query:           query,
		TopK:            topK,
		DisableFallback: !allowFallback,
	}, trail.Report)
	if err != nil {
		return nil, domainError(err)
	}

	questions := make([]map[string]interface{}, 0, len(res.Questions))
	for _, q := range res.Questions {
		entry := map[string]interface{}{
			"variable_key": q.VariableKey,
			"prompt":       q.Prompt,
			"answered":     q.Answered,
		}
		if q.Prefill != nil {
			entry["prefill"] = map[string]interface{}{
				"value":      q.Prefill.Value,
				"confidence": q.Prefill.Confidence,
			}
		}
		questions = append(questions, entry)
	}

	response := map[string]interface{}{
		"template":      templateSummary(res.Template),
		"questions":     questions,
		"from_fallback": res.FromFallback,
		"progress":      progressTrail(trail.Events()),
	}
	if res.Decision != nil {
		response["decision"] = map[string]interface{}{
			"similarity": res.Decision.Similarity,
			"confidence": res.Decision.Confidence,
			"quality":    res.Decision.Quality,
		}
	}
	if res.FromFallback {
		response["fallback_created"] = res.FallbackCreated
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRenderDraft handles the render_draft tool invocation
func (s *Server) handleRenderDraft(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	templateID, ok := args["template_id"].(string)
	if !ok || templateID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "template_id parameter is required", map[string]interface{}{
			"param":  "template_id",
			"reason": "missing or empty",
		})
	}
	rawAnswers, ok := args["answers"].(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "answers parameter is required", map[string]interface{}{
			"param":  "answers",
			"reason": "missing or not an object",
		})
	}
	answers := make(map[string]string, len(rawAnswers))
	for key, val := range rawAnswers {
		str, ok := val.(string)
		if !ok {
			return nil, newMCPError(ErrorCodeInvalidParams, "answer values must be strings", map[string]interface{}{
				"param": "answers",
				"key":   key,
			})
		}
		answers[key] = str
	}

	tpl, err := s.store.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, domainError(err)
	}

	body, missing, err := draft.Render(tpl, answers)
	if err != nil {
		return nil, domainError(err)
	}

	response := map[string]interface{}{
		"template_id":  tpl.ID,
		"draft":        body,
		"missing_keys": missing,
		"complete":     len(missing) == 0,
	}

	// A complete draft is persisted as an instance; a partial one is
	// only previewed.
	if len(missing) == 0 {
		inst, err := draft.Materialize(ctx, s.store, tpl, getStringDefault(args, "query", ""), answers)
		if err != nil {
			return nil, domainError(err)
		}
		response["instance_id"] = inst.ID
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetTemplate handles the get_template tool invocation
func (s *Server) handleGetTemplate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	templateID, ok := args["template_id"].(string)
	if !ok || templateID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "template_id parameter is required", map[string]interface{}{
			"param":  "template_id",
			"reason": "missing or empty",
		})
	}

	tpl, err := s.store.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, domainError(err)
	}

	body := tpl.Body
	if getBoolDefault(args, "with_frontmatter", false) {
		body, err = draft.BuildFrontmatter(tpl)
		if err != nil {
			return nil, domainError(err)
		}
	}

	variables := make([]map[string]interface{}, 0, len(tpl.Variables))
	for _, v := range tpl.Variables {
		entry := map[string]interface{}{
			"key":      v.Key,
			"label":    v.Label,
			"type":     string(v.DType),
			"required": v.Required,
		}
		if len(v.EnumValues) > 0 {
			entry["enum_values"] = v.EnumValues
		}
		variables = append(variables, entry)
	}

	response := templateSummary(tpl)
	response["body"] = body
	response["variables"] = variables
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDeleteTemplate handles the delete_template tool invocation
func (s *Server) handleDeleteTemplate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	templateID, ok := args["template_id"].(string)
	if !ok || templateID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "template_id parameter is required", map[string]interface{}{
			"param":  "template_id",
			"reason": "missing or empty",
		})
	}

	if err := s.store.DeleteTemplate(ctx, templateID); err != nil {
		return nil, domainError(err)
	}
	s.logger.Info("template deleted", zap.String("template_id", templateID))

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted":     true,
		"template_id": templateID,
	})), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.store.Status(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"statistics": map[string]interface{}{
			"templates_count": status.TemplatesCount,
			"variables_count": status.VariablesCount,
			"instances_count": status.InstancesCount,
		},
		"health": map[string]interface{}{
			"database_accessible": status.Health.DatabaseAccessible,
			"vector_fast_path":    status.Health.VectorFastPath,
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// templateSummary formats the template fields every tool response shares.
func templateSummary(tpl *types.Template) map[string]interface{} {
	summary := map[string]interface{}{
		"id":       tpl.ID,
		"name":     tpl.Name,
		"doc_type": tpl.DocType,
		"source":   string(tpl.Source),
	}
	if tpl.Jurisdiction != "" {
		summary["jurisdiction"] = tpl.Jurisdiction
	}
	if tpl.SourceURL != "" {
		summary["source_url"] = tpl.SourceURL
	}
	if len(tpl.SimilarityTags) > 0 {
		summary["similarity_tags"] = tpl.SimilarityTags
	}
	keys := make([]string, 0, len(tpl.Variables))
	for _, v := range tpl.Variables {
		keys = append(keys, v.Key)
	}
	summary["variable_keys"] = keys
	return summary
}

// progressTrail formats recorded progress events for a tool response.
func progressTrail(events []types.ProgressEvent) []map[string]interface{} {
	trail := make([]map[string]interface{}, 0, len(events))
	for _, ev := range events {
		entry := map[string]interface{}{
			"stage": string(ev.Stage),
			"at":    ev.At.Format("2006-01-02T15:04:05.000Z07:00"),
		}
		if ev.Detail != "" {
			entry["detail"] = ev.Detail
		}
		if ev.Code != "" {
			entry["code"] = ev.Code
		}
		trail = append(trail, entry)
	}
	return trail
}

// domainError maps a pipeline error onto the MCP error code space.
func domainError(err error) error {
	data := map[string]interface{}{
		"error": err.Error(),
		"code":  types.ErrorCode(err),
	}
	switch {
	case errors.Is(err, types.ErrInvalidInput):
		return newMCPError(ErrorCodeInvalidParams, "invalid input", data)
	case errors.Is(err, types.ErrNotFound):
		return newMCPError(ErrorCodeNotFound, "not found", data)
	case errors.Is(err, types.ErrNoMatchFound):
		return newMCPError(ErrorCodeNoMatchFound, "no template matched", data)
	case errors.Is(err, types.ErrFallbackExhausted):
		return newMCPError(ErrorCodeFallbackExhausted, "web fallback exhausted", data)
	case errors.Is(err, types.ErrClassificationAmbiguous):
		return newMCPError(ErrorCodeClassificationFailed, "source is not a recognizable legal document", data)
	case errors.Is(err, types.ErrCapabilityUnavailable):
		return newMCPError(ErrorCodeCapabilityUnavailable, "capability unavailable", data)
	case errors.Is(err, types.ErrGenerationFailed):
		return newMCPError(ErrorCodeGenerationFailed, "generation failed", data)
	default:
		return newMCPError(ErrorCodeInternalError, "internal error", data)
	}
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
