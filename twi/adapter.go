package twi

// Handler is the protocol state machine of one device.
type Handler interface {
	// HandleMessage is called for every message addressed to the device.
	HandleMessage(m Message)

	// ResetStateMachine returns the device to its idle bus state.
	ResetStateMachine()
}

// Matcher reports whether a message is addressed to the device.
type Matcher func(m Message) bool

// MatchAddress matches any of the given 7 bit addresses.
func MatchAddress(addrs ...uint8) Matcher {
	return func(m Message) bool {
		for _, a := range addrs {
			if m.Address == a&0x7f {
				return true
			}
		}
		return false
	}
}

// MatchMask matches addresses equal to addr in the bits set in mask.
func MatchMask(addr, mask uint8) Matcher {
	return func(m Message) bool {
		return m.Address&mask == addr&mask
	}
}

// Adapter connects a Handler to the host bus. It filters traffic by address,
// resets the handler when another device is selected, and gives the handler
// the means to answer.
type Adapter struct {
	host    Host
	addr    uint8
	match   Matcher
	handler Handler
	cancel  func()
}

// Attach subscribes h to the host's bus output. A nil match selects exactly
// addr.
func Attach(host Host, addr uint8, match Matcher, h Handler) *Adapter {
	if match == nil {
		match = MatchAddress(addr)
	}
	a := &Adapter{
		host:    host,
		addr:    addr & 0x7f,
		match:   match,
		handler: h,
	}
	a.cancel = host.TWIOutput().Notify(a.notify)
	return a
}

// Address returns the device's primary 7 bit address.
func (a *Adapter) Address() uint8 { return a.addr }

// Detach unsubscribes from the bus. It is safe to call more than once.
func (a *Adapter) Detach() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

// Ack acknowledges the current message.
func (a *Adapter) Ack() {
	a.host.TWIInput().Raise(Message{Address: a.addr, Cond: CondAck, Data: 1}.Encode())
}

// AckByte acknowledges a read request and returns b to the firmware.
func (a *Adapter) AckByte(b uint8) {
	a.host.TWIInput().Raise(Message{Address: a.addr, Read: true, Cond: CondAck | CondRead, Data: b}.Encode())
}

func (a *Adapter) notify(v uint32) {
	m := Decode(v)
	if !a.match(m) {
		// a START for another device deselects this one
		if m.Cond.Has(CondStart) {
			a.handler.ResetStateMachine()
		}
		return
	}
	a.handler.HandleMessage(m)
	if m.Cond.Has(CondStop) {
		a.handler.ResetStateMachine()
	}
}
