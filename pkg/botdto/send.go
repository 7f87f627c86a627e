package botdto

// SendRequest is the Send API payload for one outbound message.
type SendRequest struct {
	Recipient Principal   `json:"recipient"`
	Message   SendMessage `json:"message"`
}

// SendMessage carries either plain text or a single attachment.
type SendMessage struct {
	Text       string      `json:"text,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

type Attachment struct {
	Type    string            `json:"type"`
	Payload AttachmentPayload `json:"payload"`
}

type AttachmentPayload struct {
	URL string `json:"url"`
}

// SendResponse is the platform's acknowledgement.
type SendResponse struct {
	RecipientID string `json:"recipient_id"`
	MessageID   string `json:"message_id"`
}
