// Package botdto holds the wire types exchanged with the messenger
// platform: inbound webhook payloads and outbound Send API requests.
package botdto

// WebhookEvent is the envelope the platform POSTs to the webhook. One
// request can batch events for several pages and conversations.
type WebhookEvent struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID        string      `json:"id"`
	Time      int64       `json:"time"`
	Messaging []Messaging `json:"messaging"`
}

// Messaging is one conversation event. Message is nil for delivery and
// read receipts, which the bot ignores.
type Messaging struct {
	Sender    Principal `json:"sender"`
	Recipient Principal `json:"recipient"`
	Timestamp int64     `json:"timestamp"`
	Message   *Message  `json:"message,omitempty"`
}

type Principal struct {
	ID string `json:"id"`
}

type Message struct {
	MID  string `json:"mid"`
	Text string `json:"text"`
}
