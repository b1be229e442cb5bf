package cart

// Kind of a Message sent from the real-time context.
type Kind uint8

const (
	ReadSector Kind = iota + 1
	LoadROM
)

func (k Kind) String() string {
	switch k {
	case ReadSector:
		return "read sector"
	case LoadROM:
		return "load rom"
	}
	return "unknown"
}

// Message asks the cooperative context to start a storage request. It is
// passed by value, so the real-time context may reuse its registers right
// after pushing.
type Message struct {
	Kind Kind
	Seq  uint32 // request sequence, see State.BeginRequest

	Request SDRequest

	Title    [MaxTitleLen]byte
	TitleLen uint8
}

func (m *Message) TitleString() string {
	return string(m.Title[:m.TitleLen])
}

// Mailbox is a single-slot, push-only channel from the real-time context to the
// cooperative one. A pushed message is consumed exactly once.
type Mailbox struct {
	c chan Message
}

func (m *Mailbox) init() {
	m.c = make(chan Message, 1)
}

// Push hands msg over if the slot is free. It never blocks and reports
// whether the message was accepted.
func (m *Mailbox) Push(msg *Message) bool {
	select {
	case m.c <- *msg:
		return true
	default:
		return false
	}
}

// C returns the channel to receive pushed messages from.
func (m *Mailbox) C() <-chan Message {
	return m.c
}

// Pop returns the pending message without waiting.
func (m *Mailbox) Pop() (msg Message, ok bool) {
	select {
	case msg = <-m.c:
		return msg, true
	default:
		return msg, false
	}
}
