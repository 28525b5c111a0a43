package llm

// Message is a single chat-completion message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation accumulates the messages sent to an agent. The orchestrator
// appends corrective instructions to it between attempts.
type Conversation struct {
	messages []Message
}

// NewConversation returns an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

// AddSystem appends a system message.
func (c *Conversation) AddSystem(content string) {
	c.messages = append(c.messages, Message{Role: "system", Content: content})
}

// AddUser appends a user message.
func (c *Conversation) AddUser(content string) {
	c.messages = append(c.messages, Message{Role: "user", Content: content})
}

// AddAssistant appends an assistant message.
func (c *Conversation) AddAssistant(content string) {
	c.messages = append(c.messages, Message{Role: "assistant", Content: content})
}

// Messages returns a copy of the conversation so far.
func (c *Conversation) Messages() []Message {
	return append([]Message(nil), c.messages...)
}

// Len returns the number of messages in the conversation.
func (c *Conversation) Len() int {
	return len(c.messages)
}
