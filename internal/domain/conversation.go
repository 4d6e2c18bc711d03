package domain

// Conversation is an ordered sequence of turns plus the selected model.
// It is a plain value; synchronisation lives in the conversation package.
type Conversation struct {
	Model string `json:"model"`
	Turns []Turn `json:"turns"`
}

// Clone returns a deep copy that shares no backing array with c.
func (c Conversation) Clone() Conversation {
	turns := make([]Turn, len(c.Turns))
	copy(turns, c.Turns)
	return Conversation{Model: c.Model, Turns: turns}
}

// IsEmpty reports whether the conversation holds no turns.
func (c Conversation) IsEmpty() bool {
	return len(c.Turns) == 0
}
