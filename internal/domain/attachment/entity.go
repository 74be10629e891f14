package attachment

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusReady    Status = "ready"
	StatusRejected Status = "rejected"
)

// Attachment is an uploaded supporting document. Uploading itself happens elsewhere.
type Attachment struct {
	ID          string
	OwnerID     string
	Status      Status
	FileName    string
	ContentType string
	SizeBytes   int64
	CreatedAt   time.Time
}

func (a Attachment) AssertOwnedBy(userID string) error {
	if a.OwnerID != userID {
		return ErrAttachmentNotOwned
	}
	return nil
}

func (a Attachment) AssertReady() error {
	if a.Status != StatusReady {
		return ErrAttachmentNotReady
	}
	return nil
}
