package domain

// Event types delivered over the SSE stream.
const (
	EventConnected       = "connected"
	EventFragmentUpdated = "fragment_updated"
)

// FragmentEvent is one frame on a project's event stream. The first frame of
// every subscription is a bare {type, projectId} greeting; subsequent frames
// describe fragment mutations.
type FragmentEvent struct {
	Type       string `json:"type"`
	ProjectID  string `json:"projectId"`
	FragmentID string `json:"fragmentId,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
	Operation  string `json:"operation,omitempty"`
}

// ConnectedEvent builds the greeting frame for a fresh subscription.
func ConnectedEvent(projectID string) FragmentEvent {
	return FragmentEvent{Type: EventConnected, ProjectID: projectID}
}

// FragmentRecord is the changed row carried by a database webhook.
type FragmentRecord struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
}

// WebhookPayload is the notification body sent by the database trigger on
// fragment inserts and updates.
type WebhookPayload struct {
	Type      string          `json:"type"`
	Table     string          `json:"table"`
	Schema    string          `json:"schema"`
	Record    FragmentRecord  `json:"record"`
	OldRecord *FragmentRecord `json:"old_record"`
}
