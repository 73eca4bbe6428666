// Package mcp implements the Model Context Protocol (MCP) server for DraftForge.
//
// The MCP server exposes six tools to AI drafting assistants:
//   - ingest_document: Turn a legal document into a reusable template
//   - match_template: Find the stored template best matching a drafting request
//   - render_draft: Fill a template's variables and produce a draft
//   - get_template: Fetch a stored template with its variable schema
//   - delete_template: Remove a template and its rendered instances
//   - get_status: Check store statistics and health
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server communicates with MCP clients via standard input/output,
// making it simple to integrate with any MCP-compatible client.
//
// # Basic Usage
//
// Running the binary starts the server directly:
//
//	draftforge
//
// It then listens on stdin for MCP protocol messages and writes responses
// to stdout. Logs go to stderr so the protocol stream stays clean.
//
// # Tool: ingest_document
//
// Turn a source document into a stored template:
//
//	Request:
//	{
//	  "name": "ingest_document",
//	  "arguments": {
//	    "source_text": "This Agreement is made between ...",
//	    "doc_type": "nda"
//	  }
//	}
//
//	Response:
//	{
//	  "created": true,
//	  "template": {
//	    "id": "1f2e3d...",
//	    "name": "Mutual NDA",
//	    "doc_type": "nda",
//	    "variable_keys": ["party_a", "party_b", "effective_date"]
//	  },
//	  "progress": [
//	    {"stage": "received", "at": "..."},
//	    {"stage": "embedding", "at": "..."},
//	    {"stage": "generating", "at": "..."},
//	    {"stage": "done", "at": "..."}
//	  ]
//	}
//
// "created" is false when the document collapsed onto an existing
// near-duplicate template; "template" then describes the survivor.
//
// # Tool: match_template
//
// Find the best stored template for a drafting request:
//
//	Request:
//	{
//	  "name": "match_template",
//	  "arguments": {
//	    "query": "NDA between Acme Corp and Bolt LLC",
//	    "top_k": 5,
//	    "allow_fallback": true
//	  }
//	}
//
//	Response:
//	{
//	  "template": {"id": "...", "name": "Mutual NDA"},
//	  "decision": {"similarity": 0.91, "confidence": 0.85, "quality": 0.91},
//	  "questions": [
//	    {
//	      "variable_key": "party_a",
//	      "prompt": "What is the First party?",
//	      "answered": true,
//	      "prefill": {"value": "Acme Corp", "confidence": 0.9}
//	    }
//	  ],
//	  "from_fallback": false
//	}
//
// When no stored template survives the quality gate and allow_fallback is
// true, the server searches the web for a template source, generates a
// template from it, persists it, and answers from that. "from_fallback"
// and "fallback_created" report that path.
//
// # Tool: render_draft
//
// Fill a template with answers:
//
//	Request:
//	{
//	  "name": "render_draft",
//	  "arguments": {
//	    "template_id": "1f2e3d...",
//	    "answers": {"party_a": "Acme Corp", "party_b": "Bolt LLC"}
//	  }
//	}
//
//	Response:
//	{
//	  "draft": "This Agreement is made between Acme Corp and Bolt LLC ...",
//	  "complete": true,
//	  "missing_keys": null,
//	  "instance_id": "9a8b7c..."
//	}
//
// When required answers are missing the draft is returned as a preview
// with "complete": false and the missing keys listed; no instance is
// persisted.
//
// # Error Handling
//
// The server returns standard JSON-RPC error responses:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "invalid input",
//	    "data": {"param": "query", "reason": "missing or empty"}
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: Template or instance not found
//   - -32002: No stored template survived the quality gate
//   - -32003: Web fallback exhausted without producing a template
//   - -32004: Source is not recognizably a legal document
//   - -32005: Embedding or generation capability unavailable
//   - -32006: Generation produced no usable template
//
// The "data" object of domain errors carries the taxonomy code string
// (e.g. "no_match_found") so clients can branch without parsing messages.
//
// # MCP Client Configuration
//
// Configure in an MCP client's settings:
//
//	{
//	  "mcpServers": {
//	    "draftforge": {
//	      "command": "/usr/local/bin/draftforge",
//	      "env": {
//	        "OPENAI_API_KEY": "your-api-key",
//	        "DRAFTFORGE_EXA_API_KEY": "your-api-key"
//	      }
//	    }
//	  }
//	}
package mcp
