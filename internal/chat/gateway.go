package chat

import "context"

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type Field struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Selected string   `json:"selected,omitempty"`
	Options  []Option `json:"options,omitempty"`
}

type FormSpec struct {
	Title       string  `json:"title"`
	Destination string  `json:"destination"`
	Actor       string  `json:"actor"`
	SubmitLabel string  `json:"submitLabel,omitempty"`
	Fields      []Field `json:"fields"`
}

type Gateway interface {
	OpenForm(ctx context.Context, form FormSpec) (string, error)
	UpdateForm(ctx context.Context, token string, form FormSpec) error
	PostMessage(ctx context.Context, destination, text string) error
	PostEphemeralNotice(ctx context.Context, destination, actor, text string) error
}
