package sim

import (
	"bytes"
	"strings"
	"sync"
)

// Modem emulates the AT interface of a Wio-E5 LoRa modem. Responses to a command are
// available as soon as its line terminator is written.
type Modem struct {
	mu    sync.Mutex
	rx    bytes.Buffer
	line  []byte
	joins int

	// JoinFailures is the number of join attempts rejected before one succeeds
	JoinFailures int
	// Silent makes the modem ignore every command
	Silent bool

	Joined   bool
	Commands []string
	Messages []string
}

// NewModem creates a modem that joins on the first attempt
func NewModem() *Modem {
	return &Modem{}
}

// Write accepts command bytes. Each CR or LF terminated line is handled as a command.
func (m *Modem) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range p {
		if c != '\r' && c != '\n' {
			m.line = append(m.line, c)
			continue
		}
		if len(m.line) == 0 {
			continue
		}
		cmd := string(m.line)
		m.line = m.line[:0]
		m.Commands = append(m.Commands, cmd)
		if !m.Silent {
			m.respond(cmd)
		}
	}
	return len(p), nil
}

// Read returns pending response bytes
func (m *Modem) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rx.Len() == 0 {
		return 0, nil
	}
	return m.rx.Read(p)
}

// Buffered is the number of response bytes not yet read
func (m *Modem) Buffered() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.rx.Len()
}

// Count returns how many times cmd was received
func (m *Modem) Count(cmd string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.Commands {
		if c == cmd {
			n++
		}
	}
	return n
}

// SentMessages returns a copy of the message payloads received while joined
func (m *Modem) SentMessages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.Messages...)
}

func (m *Modem) reply(lines ...string) {
	for _, l := range lines {
		m.rx.WriteString(l + "\r\n")
	}
}

func (m *Modem) respond(cmd string) {
	name, arg, _ := strings.Cut(cmd, "=")
	switch name {
	case "AT":
		m.reply("+AT: OK")
	case "AT+VER":
		m.reply("+VER: 4.0.11")
	case "AT+ID":
		m.reply("+ID: DevEui, 2C:F7:F1:20:32:30:A5:E6")
	case "AT+MODE":
		m.reply("+MODE: " + arg)
	case "AT+KEY":
		key, value, _ := strings.Cut(arg, ",")
		m.reply("+KEY: " + key + " " + strings.ToUpper(strings.Trim(value, `"`)))
	case "AT+CLASS":
		m.reply("+CLASS: " + arg)
	case "AT+PORT":
		m.reply("+PORT: " + arg)
	case "AT+JOIN":
		m.join()
	case "AT+MSG":
		if !m.Joined {
			m.reply("+MSG: Please join network first")
			return
		}
		m.Messages = append(m.Messages, strings.Trim(arg, `"`))
		m.reply("+MSG: Start", "+MSG: FPENDING", "+MSG: RXWIN1, RSSI -106, SNR 4", "+MSG: Done")
	default:
		m.reply("+" + strings.TrimPrefix(name, "AT+") + ": ERROR(-1)")
	}
}

func (m *Modem) join() {
	if m.Joined {
		m.reply("+JOIN: Joined already")
		return
	}

	m.joins++
	if m.joins <= m.JoinFailures {
		m.reply("+JOIN: Starting", "+JOIN: NORMAL", "+JOIN: Join failed")
		return
	}

	m.Joined = true
	m.reply("+JOIN: Starting", "+JOIN: NORMAL", "+JOIN: NetID 000024 DevAddr 48:00:00:01", "+JOIN: Done")
}
