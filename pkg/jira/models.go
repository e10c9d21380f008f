package jira

import (
	"encoding/json"
	"fmt"
)

// Envelope is a search response kept verbatim. Only the keys the engine
// inspects are decoded; everything else passes through untouched.
type Envelope map[string]json.RawMessage

// Total returns the reported total and whether it was present and numeric
func (e Envelope) Total() (int, bool) {
	raw, ok := e["total"]
	if !ok {
		return 0, false
	}
	var total int
	if err := json.Unmarshal(raw, &total); err != nil {
		return 0, false
	}
	return total, true
}

// HasIssueList reports whether "issues" is present and is a JSON array
func (e Envelope) HasIssueList() bool {
	raw, ok := e["issues"]
	if !ok {
		return false
	}
	var items []json.RawMessage
	return json.Unmarshal(raw, &items) == nil && items != nil
}

// Valid reports whether the envelope carries an issue list or an explicit
// zero total.
func (e Envelope) Valid() bool {
	if e.HasIssueList() {
		return true
	}
	total, ok := e.Total()
	return ok && total == 0
}

// Issues decodes the issue list
func (e Envelope) Issues() ([]Issue, error) {
	raw, ok := e["issues"]
	if !ok {
		return nil, nil
	}
	var issues []Issue
	if err := json.Unmarshal(raw, &issues); err != nil {
		return nil, fmt.Errorf("failed to decode issues: %w", err)
	}
	return issues, nil
}

// Issue is one search hit
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

// IssueFields holds the selected fields of an issue
type IssueFields struct {
	Summary     Text         `json:"summary"`
	Description Text         `json:"description"`
	Status      *Ref         `json:"status"`
	Priority    *Ref         `json:"priority"`
	Assignee    *Ref         `json:"assignee"`
	Reporter    *Ref         `json:"reporter"`
	Created     Text         `json:"created"`
	Updated     Text         `json:"updated"`
	Labels      Labels       `json:"labels"`
	Comment     *CommentPage `json:"comment"`
}

// Ref is a named object such as a user, status or priority
type Ref struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Key         string `json:"key"`
}

// UnmarshalJSON accepts an object, or a bare scalar taken as the name.
// Any other shape decodes as an empty ref.
func (r *Ref) UnmarshalJSON(data []byte) error {
	type plain Ref
	var obj plain
	if err := json.Unmarshal(data, &obj); err == nil {
		*r = Ref(obj)
		return nil
	}

	*r = Ref{}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.Name = s
		return nil
	}
	var scalar interface{}
	if err := json.Unmarshal(data, &scalar); err == nil {
		switch v := scalar.(type) {
		case float64, bool:
			r.Name = fmt.Sprint(v)
		}
	}
	return nil
}

// Label returns name, then displayName, then key
func (r *Ref) Label() string {
	if r == nil {
		return ""
	}
	switch {
	case r.Name != "":
		return r.Name
	case r.DisplayName != "":
		return r.DisplayName
	default:
		return r.Key
	}
}

// CommentPage is the embedded comment listing of an issue
type CommentPage struct {
	Comments []Comment `json:"comments"`
	Total    int       `json:"total"`
}

// UnmarshalJSON accepts the paged object form and a bare list of comments.
// Entries that are not comment objects are dropped.
func (p *CommentPage) UnmarshalJSON(data []byte) error {
	var obj struct {
		Comments json.RawMessage `json:"comments"`
		Total    int             `json:"total"`
	}
	list := json.RawMessage(data)
	if err := json.Unmarshal(data, &obj); err == nil {
		list = obj.Comments
	}

	*p = CommentPage{Total: obj.Total}
	var items []json.RawMessage
	if err := json.Unmarshal(list, &items); err != nil {
		return nil
	}
	for _, item := range items {
		var c Comment
		if err := json.Unmarshal(item, &c); err == nil {
			p.Comments = append(p.Comments, c)
		}
	}
	return nil
}

// Comment is a single issue comment
type Comment struct {
	Author  *Ref   `json:"author"`
	Body    Text   `json:"body"`
	Created Text   `json:"created"`
}

// Text decodes a JSON string and treats any other shape (null, rich-text
// documents) as empty.
type Text string

// UnmarshalJSON implements json.Unmarshaler
func (t *Text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = ""
		return nil
	}
	*t = Text(s)
	return nil
}

func (t Text) String() string {
	return string(t)
}

// Labels decodes a list of strings; any other shape is empty
type Labels []string

// UnmarshalJSON implements json.Unmarshaler
func (l *Labels) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		*l = nil
		return nil
	}
	*l = items
	return nil
}
