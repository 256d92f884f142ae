package matrix

import (
	"bytes"
	"log"
	"regexp"
	"strings"
)

// RouteEvent is a video-switch notification reported by the unit.
type RouteEvent struct {
	Output int `json:"output"`
	Input  int `json:"input"`
}

var terminatorRun = regexp.MustCompile(`[\r\n]+`)

// Parser reassembles newline-delimited responses from an arbitrarily
// fragmented stream and extracts routing events from them.
//
// A full status dump looks like:
//
//	ADDR 00
//	OUT1 VS IN1
//	OUT1 STREAM ON
//	OUT1 EXA EN
//	OUT1 VIDEO1
//	IN1 EDID 0
//	RIP 192.168.001.001
//	TIP 23
//	DHCP 0
//	MAC 00.01.02.03.04.05
//	IN1 SIG STA 0
//
// Only the "OUT<n> VS IN<m>" lines change state; everything else is accepted and dropped.
type Parser struct {
	backlog      []byte
	LogResponses bool
	LogTokens    bool
	logf         func(format string, args ...any)
}

func NewParser() *Parser {
	return &Parser{logf: log.Printf}
}

// Feed appends chunk to the backlog and returns the events of every complete
// line now available, in stream order. Partial lines stay buffered.
func (p *Parser) Feed(chunk []byte) []RouteEvent {
	p.backlog = append(p.backlog, chunk...)

	var events []RouteEvent
	n := bytes.IndexByte(p.backlog, '\n')
	for n >= 0 {
		line := string(p.backlog[:n])
		p.backlog = p.backlog[n+1:]
		events = append(events, p.ParseLine(line)...)
		n = bytes.IndexByte(p.backlog, '\n')
	}

	if len(p.backlog) == 0 {
		p.backlog = nil
	}
	return events
}

// Pending returns the number of buffered bytes not yet terminated by '\n'.
func (p *Parser) Pending() int {
	return len(p.backlog)
}

// Reset drops any partial line, e.g. after the socket was replaced.
func (p *Parser) Reset() {
	p.backlog = nil
}

// ParseLine handles one raw line. Embedded CR/LF runs split it further.
func (p *Parser) ParseLine(raw string) []RouteEvent {
	if p.LogResponses {
		p.logf("Response: %s", raw)
	}

	var events []RouteEvent
	for _, response := range terminatorRun.Split(raw, -1) {
		if response == "" {
			continue
		}
		tokens := strings.Split(response, " ")
		if p.LogTokens {
			p.logf("Tokens: %s", strings.Join(tokens, ","))
		}
		if ev, ok := parseTokens(tokens); ok {
			events = append(events, ev)
		}
	}
	return events
}

func parseTokens(tokens []string) (RouteEvent, bool) {
	if len(tokens) < 3 {
		return RouteEvent{}, false
	}
	switch tokens[1] {
	case "VS":
		// Port ids are taken from the last character of each token, so only
		// single-digit ids are supported.
		output, ok := lastDigit(tokens[0])
		if !ok {
			return RouteEvent{}, false
		}
		input, ok := lastDigit(tokens[2])
		if !ok {
			return RouteEvent{}, false
		}
		return RouteEvent{Output: output, Input: input}, true
	}
	return RouteEvent{}, false
}

func lastDigit(token string) (int, bool) {
	if token == "" {
		return 0, false
	}
	c := token[len(token)-1]
	if c < '0' || c > '9' {
		return 0, false
	}
	return int(c - '0'), true
}
