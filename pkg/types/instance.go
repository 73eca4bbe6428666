package types

import "time"

// Instance is one filled-in rendering of a template: the query that led to
// it, the collected answers, and the produced draft markdown.
type Instance struct {
	ID         string
	TemplateID string
	UserQuery  string
	Answers    map[string]string
	DraftMD    string
	CreatedAt  time.Time
}
