package bitwarden

// Login state values reported by `bw status`.
const (
	StateUnauthenticated = "unauthenticated"
	StateLocked          = "locked"
	StateUnlocked        = "unlocked"
)

// Status is the decoded output of `bw status`.
type Status struct {
	ServerURL string `json:"serverUrl"`
	LastSync  string `json:"lastSync"`
	UserEmail string `json:"userEmail"`
	State     string `json:"status"`
}

// Configured reports whether an account is logged in (locked or unlocked).
func (s Status) Configured() bool {
	return s.State == StateLocked || s.State == StateUnlocked
}

// Attachment describes a single binary attachment on a vault item.
type Attachment struct {
	ID       string `json:"id"`
	FileName string `json:"fileName"`
	Size     int64  `json:"size,string"`
}

// Item is a vault entry as reported by `bw list items`. Only the fields the
// exporter consumes are decoded.
type Item struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Attachments []Attachment `json:"attachments"`
}

// HasAttachments reports whether the item carries at least one attachment.
func (i Item) HasAttachments() bool {
	return len(i.Attachments) > 0
}

// Export formats accepted by `bw export`.
const (
	FormatJSON          = "json"
	FormatEncryptedJSON = "encrypted_json"
)
