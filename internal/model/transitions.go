package model

// Transitions maps a status to the statuses it may move to
type Transitions map[string][]string

// Allows reports whether from may move to to
func (t Transitions) Allows(from, to string) bool {
	for _, next := range t[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Valid reports whether status appears anywhere in the table
func (t Transitions) Valid(status string) bool {
	if _, ok := t[status]; ok {
		return true
	}
	for _, nexts := range t {
		for _, n := range nexts {
			if n == status {
				return true
			}
		}
	}
	return false
}
