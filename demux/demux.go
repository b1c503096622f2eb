// Package demux splits an interleaved LM token stream into separate
// "thinking" and "answer" streams, delimited by literal <think>/</think>
// tags that may straddle chunk boundaries.
package demux

import "strings"

const (
	tagOpen  = "<think>"
	tagClose = "</think>"
)

type mode int

const (
	modeAnswer mode = iota
	modeThink
)

// Demuxer holds the state needed to split an arbitrarily-chunked stream.
// Zero value starts in answer mode with an empty buffer, ready to use.
type Demuxer struct {
	mode mode
	buf  string
}

// Feed consumes one chunk of the interleaved stream and returns the think
// and answer text it can safely emit so far. When no delimiter is found, the
// last len(delimiter)-1 bytes are held back in internal state, whatever they
// contain, until the next Feed or Flush call.
func (d *Demuxer) Feed(chunk string) (think, answer string) {
	buf := d.buf + chunk
	d.buf = ""

	var thinkOut, answerOut []string

	for len(buf) > 0 {
		if d.mode == modeAnswer {
			idx := strings.Index(buf, tagOpen)
			if idx == -1 {
				safeLen := max0(len(buf) - (len(tagOpen) - 1))
				if safeLen == 0 {
					break
				}
				answerOut = append(answerOut, buf[:safeLen])
				buf = buf[safeLen:]
				continue
			}
			if idx > 0 {
				answerOut = append(answerOut, buf[:idx])
			}
			buf = buf[idx+len(tagOpen):]
			d.mode = modeThink
		} else {
			idx := strings.Index(buf, tagClose)
			if idx == -1 {
				safeLen := max0(len(buf) - (len(tagClose) - 1))
				if safeLen == 0 {
					break
				}
				thinkOut = append(thinkOut, buf[:safeLen])
				buf = buf[safeLen:]
				continue
			}
			if idx > 0 {
				thinkOut = append(thinkOut, buf[:idx])
			}
			buf = buf[idx+len(tagClose):]
			d.mode = modeAnswer
		}
	}

	d.buf = buf
	return strings.Join(thinkOut, ""), strings.Join(answerOut, "")
}

// Flush returns whatever is left in the internal buffer, attributed to the
// current mode. The caller must call this once the stream ends; failing to
// do so truncates the last fragment.
func (d *Demuxer) Flush() (think, answer string) {
	buf := d.buf
	d.buf = ""
	if buf == "" {
		return "", ""
	}
	if d.mode == modeThink {
		return buf, ""
	}
	return "", buf
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
