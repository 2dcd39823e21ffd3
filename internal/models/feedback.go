package models

// ToastKind classifies a transient notification
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// ToastMessage is the text of a visible notification. Reading it does not
// dismiss it.
type ToastMessage struct {
	Kind ToastKind `json:"kind"`
	Text string    `json:"text"`
}

// AlertState describes the native dialog channel: either no dialog, or a
// dialog with Text that has not been accepted yet
type AlertState struct {
	Present bool   `json:"present"`
	Text    string `json:"text,omitempty"`
}

// FeedbackKind is the classified outcome of an action
type FeedbackKind string

const (
	FeedbackNone    FeedbackKind = "none"
	FeedbackAlert   FeedbackKind = "alert"
	FeedbackSuccess FeedbackKind = "success"
	FeedbackError   FeedbackKind = "error"
)

// Feedback is what the page showed after an action
type Feedback struct {
	Kind FeedbackKind `json:"kind"`
	Text string       `json:"text,omitempty"`
}
