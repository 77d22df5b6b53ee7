package engine

// Property is an entry of a session's property list.
type Property struct {
	Key       string
	Label     string
	Tooltip   string
	Visible   bool
	Sensitive bool
}

// StatusPropertyKey names the property that carries the status text.
const StatusPropertyKey = "status"

// Host receives the output of sessions. Calls happen on the goroutine that
// drives the session.
type Host interface {
	CommitText(s *Session, text string)
	UpdatePreedit(s *Session, text string, attrs []Attribute, cursorPos int, visible bool)
	HidePreedit(s *Session)
	UpdateCandidates(s *Session, page *CandidatePage)
	HideCandidates(s *Session)
	UpdateStatusProperty(s *Session, label string, visible bool)
	RegisterProperties(s *Session, props []Property)
}
