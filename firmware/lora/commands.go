package lora

import (
	"strconv"
	"strings"
)

// Command is one AT exchange of the init sequence. The response line containing Marker
// completes it.
type Command struct {
	Name   string
	Text   string
	Marker string
}

// InitSequence is the ordered list of commands that configures the modem for OTAA
func InitSequence(cfg Config) []Command {
	port := strconv.Itoa(int(cfg.Port))
	return []Command{
		{Name: "check", Text: "AT", Marker: "+AT: OK"},
		{Name: "version", Text: "AT+VER", Marker: "+VER"},
		{Name: "deveui", Text: "AT+ID=DevEui", Marker: "+ID: DevEui"},
		{Name: "mode", Text: "AT+MODE=LWOTAA", Marker: "+MODE: LWOTAA"},
		{Name: "appkey", Text: `AT+KEY=APPKEY,"` + cfg.AppKey + `"`, Marker: "+KEY: APPKEY"},
		{Name: "class", Text: "AT+CLASS=" + cfg.Class, Marker: "+CLASS: " + cfg.Class},
		{Name: "port", Text: "AT+PORT=" + port, Marker: "+PORT: " + port},
	}
}

const (
	joinCommand = "AT+JOIN"
	msgDone     = "+MSG: Done"
	errorMarker = "ERROR"
)

// MessageCommand wraps text in the unconfirmed message command. Double quotes would
// end the AT string early so they are replaced.
func MessageCommand(text string) string {
	return `AT+MSG="` + strings.ReplaceAll(text, `"`, "'") + `"`
}

type joinResult int

const (
	joinOther joinResult = iota
	joinSuccess
	joinRejected
	joinProgress
)

// progress lines printed by the modem while a join is still running
var joinProgressPrefixes = []string{
	"+JOIN: Start",
	"+JOIN: NORMAL",
	"+JOIN: NetID",
	"+JOIN: Auto",
}

func classifyJoin(line string) joinResult {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "join failed"):
		return joinRejected
	case strings.Contains(lower, "joined"), strings.Contains(line, "+JOIN: Done"):
		return joinSuccess
	}
	for _, p := range joinProgressPrefixes {
		if strings.HasPrefix(line, p) {
			return joinProgress
		}
	}
	return joinOther
}

// responseValue returns the part of a response after the marker, like the version in
// "+VER: 4.0.11" or the EUI in "+ID: DevEui, 2C:F7:F1:20:32:30:A5:E6"
func responseValue(line, marker string) string {
	_, v, ok := strings.Cut(line, marker)
	if !ok {
		return ""
	}
	return strings.TrimLeft(v, ":, ")
}
