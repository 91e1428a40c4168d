package domain

// Button is an inline keyboard button. Data is routed back as a callback.
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Keyboard is a grid of buttons, one slice per row.
type Keyboard [][]Button

// Reply is one outbound chat message.
type Reply struct {
	Text     string   `json:"text"`
	Markdown bool     `json:"markdown,omitempty"`
	Keyboard Keyboard `json:"keyboard,omitempty"`
}

// Text builds a plain reply.
func Text(s string) Reply {
	return Reply{Text: s}
}

// Markdown builds a Markdown reply with an optional keyboard.
func Markdown(s string, kb Keyboard) Reply {
	return Reply{Text: s, Markdown: true, Keyboard: kb}
}

// Row builds a keyboard row.
func Row(buttons ...Button) []Button {
	return buttons
}

// Btn builds a button.
func Btn(label, data string) Button {
	return Button{Label: label, Data: data}
}
