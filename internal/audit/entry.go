package audit

// Events recorded for investigation. Publishes and retirements change
// what students are held to, so every one is logged; invariant
// violations are logged because an operator has to repair the store.
const (
	EventPublish            = "policy.publish"
	EventDeactivate         = "policy.deactivate"
	EventPolicyEdit         = "policy.edit"
	EventTemplateEdit       = "template.edit"
	EventInvariantViolation = "invariant.violation"
)

// Entry is one line in the hash-chained JSONL audit log.
// All fields are scalars to guarantee deterministic json.Marshal field
// order for reproducible hashing.
type Entry struct {
	Timestamp string `json:"ts"`
	Event     string `json:"event"`
	CourseID  string `json:"course_id"`
	Actor     string `json:"actor"`
	Role      string `json:"role"`
	PolicyID  string `json:"policy_id,omitempty"`
	Detail    string `json:"detail,omitempty"`
	PrevHash  string `json:"prev_hash"`
}
