package matrix

import "fmt"

// LineTerminator is appended by the transport to every outbound command.
const LineTerminator = "\r\n"

const statusQuery = "EZG STA"

// EncodeRoute builds a video-switch command. Output 0 switches every output.
// Ids are not validated here.
func EncodeRoute(output, input int) string {
	return fmt.Sprintf("EZS OUT%d VS IN%d", output, input)
}

// EncodeStatusQuery asks the unit for a full status dump.
func EncodeStatusQuery() string {
	return statusQuery
}
