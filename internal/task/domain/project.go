package domain

// Project groups tasks under an owner. TaskList only ever grows through a
// set-union append, so duplicate appends are harmless.
type Project struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Owner       Ref    `json:"owner"`
	TaskList    []Ref  `json:"taskList"`
}

// HasTask reports whether ref is already linked into the project
func (p *Project) HasTask(ref Ref) bool {
	for _, r := range p.TaskList {
		if r == ref {
			return true
		}
	}
	return false
}
