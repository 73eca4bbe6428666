package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// ingestDocumentTool returns the tool definition for ingest_document
func ingestDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_document",
		Description: "Turn a legal document into a reusable template with variables and questions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"source_text": map[string]interface{}{
					"type":        "string",
					"description": "Full text of the source document",
				},
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Template name override (generated from the document when omitted)",
				},
				"doc_type": map[string]interface{}{
					"type":        "string",
					"description": "Document type hint (e.g., 'nda', 'lease', 'service_agreement')",
				},
			},
			Required: []string{"source_text"},
		},
	}
}

// matchTemplateTool returns the tool definition for match_template
func matchTemplateTool() mcp.Tool {
	return mcp.Tool{
		Name:        "match_template",
		Description: "Find the stored template best matching a drafting request, falling back to the web when nothing fits",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language description of the document to draft",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum candidates to consider (1-20)",
					"default":     5,
					"minimum":     1,
					"maximum":     20,
				},
				"allow_fallback": map[string]interface{}{
					"type":        "boolean",
					"description": "If false, never search the web when no stored template matches",
					"default":     true,
				},
			},
			Required: []string{"query"},
		},
	}
}

// renderDraftTool returns the tool definition for render_draft
func renderDraftTool() mcp.Tool {
	return mcp.Tool{
		Name:        "render_draft",
		Description: "Fill a template's variables with answers and produce a draft document",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"template_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the template to render",
				},
				"answers": map[string]interface{}{
					"type":        "object",
					"description": "Variable key to answer value map",
					"additionalProperties": map[string]interface{}{
						"type": "string",
					},
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Original drafting request, stored with the rendered instance",
				},
			},
			Required: []string{"template_id", "answers"},
		},
	}
}

// getTemplateTool returns the tool definition for get_template
func getTemplateTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_template",
		Description: "Fetch a stored template with its body and variable schema",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"template_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the template",
				},
				"with_frontmatter": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, return the body with a YAML frontmatter header",
					"default":     false,
				},
			},
			Required: []string{"template_id"},
		},
	}
}

// deleteTemplateTool returns the tool definition for delete_template
func deleteTemplateTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_template",
		Description: "Delete a stored template and its rendered instances",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"template_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the template to delete",
				},
			},
			Required: []string{"template_id"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report template store statistics and health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
