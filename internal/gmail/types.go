// internal/gmail/types.go
package gmail

type MessageID string
type LabelID string

// InboxLabel is the well-known system label warming mail is removed from.
const InboxLabel LabelID = "INBOX"

type Header struct {
	Name  string
	Value string
}

// BodyPart is one MIME leaf of a message, payload already base64url-decoded.
type BodyPart struct {
	MIMEType string
	Data     []byte
}

// MessageDetail is the full fetched form of a message: ordered headers plus
// decoded body parts. Discarded after classification, never persisted.
type MessageDetail struct {
	ID      MessageID
	Headers []Header
	Parts   []BodyPart
}

// Header returns the value of the first header with the given name, or "".
func (d MessageDetail) Header(name string) string {
	for _, h := range d.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// ListPage is one page of a message listing. An empty NextPageToken marks the
// terminal page.
type ListPage struct {
	IDs           []MessageID
	NextPageToken string
}

type ModifyOps struct {
	AddLabels    []LabelID
	RemoveLabels []LabelID
}

type Query struct {
	Raw     string  // Gmail query string (e.g. `after:2024/01/01`); empty for label-only listings
	LabelID LabelID // restrict to a label (e.g. INBOX); empty for query-only listings
}
