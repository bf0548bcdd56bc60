package model

import "time"

// Message is one mail as returned by the backend. Empty HTMLBody or TextBody
// means the backend sent null or nothing for that part.
type Message struct {
	From     string `json:"from"`
	Title    string `json:"title"`
	HTMLBody string `json:"HtmlContent"`
	TextBody string `json:"TextContent"`

	// ReceivedAt is assigned by the client when the message is rendered;
	// the backend's own timestamp is not part of the wire format.
	ReceivedAt time.Time `json:"-"`
}
