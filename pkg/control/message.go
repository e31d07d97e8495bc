// ABOUTME: Control messages exchanged between buttons, LEDs and the processing app
// ABOUTME: One byte per message; zero means no message
package control

import "fmt"

// NumButtons and NumLEDs are the controls on the reference board
const (
	NumButtons = 4
	NumLEDs    = 4
)

// Message is a single control event
type Message uint8

const (
	None Message = iota

	Button0Down
	Button1Down
	Button2Down
	Button3Down
	Button0Up
	Button1Up
	Button2Up
	Button3Up

	Led0On
	Led1On
	Led2On
	Led3On
	Led0Off
	Led1Off
	Led2Off
	Led3Off
)

// ButtonMessage returns the message for a button press or release
func ButtonMessage(button int, pressed bool) (Message, error) {
	if button < 0 || button >= NumButtons {
		return None, fmt.Errorf("button %d out of range", button)
	}
	if pressed {
		return Button0Down + Message(button), nil
	}
	return Button0Up + Message(button), nil
}

// LEDMessage returns the message switching an LED
func LEDMessage(led int, on bool) (Message, error) {
	if led < 0 || led >= NumLEDs {
		return None, fmt.Errorf("led %d out of range", led)
	}
	if on {
		return Led0On + Message(led), nil
	}
	return Led0Off + Message(led), nil
}

// Button decodes a button message
func (m Message) Button() (button int, pressed bool, ok bool) {
	switch {
	case m >= Button0Down && m <= Button3Down:
		return int(m - Button0Down), true, true
	case m >= Button0Up && m <= Button3Up:
		return int(m - Button0Up), false, true
	}
	return 0, false, false
}

// LED decodes an LED message
func (m Message) LED() (led int, on bool, ok bool) {
	switch {
	case m >= Led0On && m <= Led3On:
		return int(m - Led0On), true, true
	case m >= Led0Off && m <= Led3Off:
		return int(m - Led0Off), false, true
	}
	return 0, false, false
}

func (m Message) String() string {
	if b, pressed, ok := m.Button(); ok {
		if pressed {
			return fmt.Sprintf("Button%dDown", b)
		}
		return fmt.Sprintf("Button%dUp", b)
	}
	if l, on, ok := m.LED(); ok {
		if on {
			return fmt.Sprintf("Led%dOn", l)
		}
		return fmt.Sprintf("Led%dOff", l)
	}
	if m == None {
		return "None"
	}
	return fmt.Sprintf("Message(%d)", uint8(m))
}
