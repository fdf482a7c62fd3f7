package messaging

import "context"

// ListRow is one selectable row inside a selection list. The ID travels back
// as the interactive reply identifier (`namespace:value`).
type ListRow struct {
	ID          string
	Title       string
	Description string
}

// ListSection groups rows under a title.
type ListSection struct {
	Title string
	Rows  []ListRow
}

// SelectionList is an interactive list message.
type SelectionList struct {
	Header   string
	Body     string
	Button   string
	Sections []ListSection
}

// Button is one reply button; its ID comes back as the interactive reply id.
type Button struct {
	ID    string
	Title string
}

// ButtonGroup is an interactive button message.
type ButtonGroup struct {
	Body    string
	Buttons []Button
}

// Document points at a retrievable file to deliver.
type Document struct {
	URL      string
	Filename string
	Caption  string
}

// Transport delivers outbound messages to a recipient address. Sends are
// fire-and-forget from the flow's perspective but delivery failures must be
// returned, never swallowed: a failed send aborts the transition before the
// record is persisted.
type Transport interface {
	SendText(ctx context.Context, to, body string) error
	SendSelectionList(ctx context.Context, to string, list SelectionList) error
	SendButtonGroup(ctx context.Context, to string, group ButtonGroup) error
	SendDocument(ctx context.Context, to string, doc Document) error
}
