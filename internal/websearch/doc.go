// Package websearch finds and extracts template source material from the web.
//
// It has three parts, each usable on its own:
//
//   - Searcher queries the Exa neural search API with a legal-enhanced
//     query and filters the hits down to pages that look like actual
//     document templates.
//   - Fetcher retrieves pages with SSRF protection: HTTPS only, private
//     IPs blocked at dial time (so DNS rebinding cannot bypass the check),
//     a redirect cap, and a body size limit.
//   - Extractor pulls the readable article out of a page and converts it
//     to markdown, rejecting pages whose text is too short to generate
//     a template from.
//
// The fallback package drives all three as a unit when no stored template
// matches a drafting request.
package websearch
