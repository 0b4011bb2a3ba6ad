package lora

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinmclean/pilldispenser/internal/sim"
)

// scriptedUART answers the n-th written command with the n-th batch of lines
type scriptedUART struct {
	rx      bytes.Buffer
	script  [][]string
	written []string
	err     error
	readErr error
}

func (u *scriptedUART) Write(p []byte) (int, error) {
	if u.err != nil {
		return 0, u.err
	}
	u.written = append(u.written, strings.TrimRight(string(p), "\r\n"))
	if len(u.script) > 0 {
		for _, l := range u.script[0] {
			u.rx.WriteString(l + "\r\n")
		}
		u.script = u.script[1:]
	}
	return len(p), nil
}

func (u *scriptedUART) Read(p []byte) (int, error) {
	if u.rx.Len() == 0 {
		return 0, u.readErr
	}
	return u.rx.Read(p)
}

func (u *scriptedUART) Buffered() int {
	return u.rx.Len()
}

func newTestModem(t *testing.T, uart UART) (*Modem, *sim.Clock) {
	t.Helper()
	clock := sim.NewClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	cfg := DefaultConfig()
	cfg.Clock = clock
	cfg.PollInterval = 10 * time.Millisecond
	return New(uart, cfg), clock
}

func TestInit(t *testing.T) {
	modem := sim.NewModem()
	m, _ := newTestModem(t, modem)

	info, err := m.Init()
	require.NoError(t, err)
	assert.Equal(t, Info{Version: "4.0.11", DevEUI: "2C:F7:F1:20:32:30:A5:E6"}, info)
	assert.Equal(t, []string{
		"AT",
		"AT+VER",
		"AT+ID=DevEui",
		"AT+MODE=LWOTAA",
		`AT+KEY=APPKEY,"5c43da79b99e52403bce20fb9770dc42"`,
		"AT+CLASS=A",
		"AT+PORT=8",
	}, modem.Commands)
}

func TestInitCommandRetry(t *testing.T) {
	uart := &scriptedUART{script: [][]string{
		{"+AT: ERROR(-1)"},
		{"garbage", "+AT: OK"},
		{"+VER: 4.0.11"},
		{"+ID: DevEui, 01"},
		{"+MODE: LWOTAA"},
		{"+KEY: APPKEY 5C43"},
		{"+CLASS: A"},
		{"+PORT: 8"},
	}}
	m, _ := newTestModem(t, uart)

	info, err := m.Init()
	require.NoError(t, err)
	assert.Equal(t, "01", info.DevEUI)
	assert.Equal(t, []string{"AT", "AT"}, uart.written[:2])
}

func TestInitFailsWhenCommandExhaustsRetries(t *testing.T) {
	uart := &scriptedUART{script: [][]string{
		{"+AT: OK"},
		{"+VER: 4.0.11"},
	}}
	m, clock := newTestModem(t, uart)
	start := clock.Now()

	_, err := m.Init()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "deveui")
	assert.Equal(t, []string{"AT", "AT+VER", "AT+ID=DevEui", "AT+ID=DevEui", "AT+ID=DevEui"}, uart.written)
	assert.GreaterOrEqual(t, clock.Now().Sub(start), 3*500*time.Millisecond)
}

func TestJoinTranscript(t *testing.T) {
	uart := &scriptedUART{script: [][]string{
		{"+JOIN: trying"},
		{"+JOIN: trying"},
		{"+JOIN: Network joined"},
	}}
	m, _ := newTestModem(t, uart)

	err := m.Join(3, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, m.Joined())
	assert.Equal(t, []string{"AT+JOIN", "AT+JOIN", "AT+JOIN"}, uart.written)
}

func TestJoinExhaustsRetries(t *testing.T) {
	uart := &scriptedUART{}
	m, _ := newTestModem(t, uart)

	err := m.Join(2, time.Second)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.False(t, m.Joined())
	assert.Equal(t, []string{"AT+JOIN", "AT+JOIN"}, uart.written)
}

func TestJoinResponses(t *testing.T) {
	tests := []struct {
		name        string
		lines       []string
		expectedErr error
	}{
		{"Done", []string{"+JOIN: Starting", "+JOIN: NORMAL", "+JOIN: NetID 000024 DevAddr 48:00:00:01", "+JOIN: Done"}, nil},
		{"AlreadyJoined", []string{"+JOIN: Joined already"}, nil},
		{"Rejected", []string{"+JOIN: Starting", "+JOIN: Join failed"}, ErrRejected},
		{"Busy", []string{"+JOIN: LoRaWAN modem is busy"}, ErrUnexpectedResponse},
		{"OnlyProgress", []string{"+JOIN: Starting", "+JOIN: NORMAL"}, ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uart := &scriptedUART{script: [][]string{tt.lines}}
			m, _ := newTestModem(t, uart)

			err := m.Join(1, time.Second)
			if tt.expectedErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestJoinRejectedThenRetried(t *testing.T) {
	modem := sim.NewModem()
	modem.JoinFailures = 2
	m, _ := newTestModem(t, modem)

	require.NoError(t, m.Join(3, 5*time.Second))
	assert.Equal(t, 3, modem.Count("AT+JOIN"))
}

func TestSendAndConfirm(t *testing.T) {
	uart := &scriptedUART{script: [][]string{
		{"+MSG: Start", "+MSG: ERROR", "+MSG: Done"},
	}}
	m, _ := newTestModem(t, uart)

	require.NoError(t, m.SendAndConfirm(`AT+MSG="hi"`, time.Second))
}

func TestSendAndConfirmTimeout(t *testing.T) {
	uart := &scriptedUART{script: [][]string{{"+MSG: Start"}}}
	m, clock := newTestModem(t, uart)
	start := clock.Now()

	err := m.SendAndConfirm(`AT+MSG="hi"`, 2*time.Second)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Len(t, uart.written, 1, "no internal retry")
	assert.GreaterOrEqual(t, clock.Now().Sub(start), 2*time.Second)
}

func TestSendNoopWhenNotJoined(t *testing.T) {
	modem := sim.NewModem()
	m, _ := newTestModem(t, modem)

	require.NoError(t, m.Send("Day 1: pill detected"))
	assert.Empty(t, modem.Commands)
}

func TestSetup(t *testing.T) {
	modem := sim.NewModem()
	m, _ := newTestModem(t, modem)

	require.True(t, m.Setup())
	require.NoError(t, m.Send(`Day 2: "pill" detected`))
	assert.Equal(t, []string{"Day 2: 'pill' detected"}, modem.SentMessages())
}

func TestSetupSilentModem(t *testing.T) {
	modem := sim.NewModem()
	modem.Silent = true
	m, _ := newTestModem(t, modem)

	assert.False(t, m.Setup())
	assert.False(t, m.Joined())
	assert.Equal(t, 3, modem.Count("AT"))
	assert.Zero(t, modem.Count("AT+JOIN"))
}

func TestWriteFlushesStaleInput(t *testing.T) {
	uart := &scriptedUART{script: [][]string{{"+AT: OK"}}}
	uart.rx.WriteString("+MSG: Done\r\n+AT: ERROR\r\n")
	m, _ := newTestModem(t, uart)

	line, err := m.exchange(Command{Name: "check", Text: "AT", Marker: "+AT: OK"})
	require.NoError(t, err)
	assert.Equal(t, "+AT: OK", line)
}

func TestReadLine(t *testing.T) {
	uart := &scriptedUART{}
	uart.rx.WriteString("\r\n\r\nfirst\rsecond\n" + strings.Repeat("x", 100) + "\r\npartial")
	m, clock := newTestModem(t, uart)
	deadline := clock.Now().Add(time.Second)

	line, err := m.readLine(deadline)
	require.NoError(t, err)
	assert.Equal(t, "first", line)

	line, err = m.readLine(deadline)
	require.NoError(t, err)
	assert.Equal(t, "second", line)

	line, err = m.readLine(deadline)
	require.NoError(t, err)
	assert.Len(t, line, maxLineLen)

	_, err = m.readLine(deadline)
	assert.ErrorIs(t, err, ErrTimeout, "a line without terminator is never returned")
}

func TestWriteFailure(t *testing.T) {
	uart := &scriptedUART{err: errors.New("port closed")}
	m, _ := newTestModem(t, uart)

	err := m.Join(1, time.Second)
	assert.ErrorIs(t, err, ErrUART)
}

func TestReadFailure(t *testing.T) {
	uart := &scriptedUART{readErr: io.ErrClosedPipe}
	m, clock := newTestModem(t, uart)

	_, err := m.readLine(clock.Now().Add(time.Second))
	assert.ErrorIs(t, err, ErrUART)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.NotErrorIs(t, err, ErrTimeout)

	err = m.SendAndConfirm(MessageCommand("hello"), time.Second)
	assert.ErrorIs(t, err, ErrUART)
}

func TestReadLineDrainsBeforeReportingError(t *testing.T) {
	uart := &scriptedUART{readErr: io.EOF}
	uart.rx.WriteString("+MSG: Done\r\n")
	m, clock := newTestModem(t, uart)

	line, err := m.readLine(clock.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "+MSG: Done", line)

	_, err = m.readLine(clock.Now().Add(time.Second))
	assert.ErrorIs(t, err, ErrUART)
}
