package models

// Issue is a cleaned issue as written to {project}_processed.json
type Issue struct {
	IssueKey    string    `json:"issue_key"`
	Project     string    `json:"project"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	Reporter    string    `json:"reporter"`
	Assignee    string    `json:"assignee"`
	Created     string    `json:"created"`
	Updated     string    `json:"updated"`
	Labels      []string  `json:"labels"`
	Comments    []Comment `json:"comments"`
}

// Comment is a non-empty, HTML-free comment
type Comment struct {
	Author string `json:"author"`
	Body   string `json:"body"`
}

// Record is one line of the final dataset
type Record struct {
	Issue
	DerivedTasks DerivedTasks `json:"derived_tasks"`
}

// DerivedTasks holds the generated training targets for an issue
type DerivedTasks struct {
	Summarization  string `json:"summarization"`
	Classification string `json:"classification"`
	QnA            []QnA  `json:"qna"`
}

// QnA is a question/answer pair
type QnA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Classification labels
const (
	ClassBug         = "Bug"
	ClassFeature     = "Feature"
	ClassImprovement = "Improvement"
	ClassTask        = "Task"
)
