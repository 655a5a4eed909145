package agent

import (
	"context"
	"strings"
	"unicode/utf8"
)

// sentenceBoundaries are the runes that may end a speakable fragment.
const sentenceBoundaries = ".?!\n"

// minChunkRunes prevents clipped, too-short utterances from reaching the
// synthesizer. Only the final chunk of a stream may be shorter.
const minChunkRunes = 6

// Segment converts a stream of reply deltas into TTS-ready chunks. A chunk
// is flushed as soon as a delta carries a sentence boundary and the pending
// buffer holds at least minChunkRunes runes; a delta with several boundaries
// is still a single flush, which bounds synthesis calls per reply. Whatever
// remains when the input closes is flushed as-is, so concatenating the
// emitted chunks reproduces the streamed text exactly.
//
// The returned channel is unbuffered: the consumer's pull is the only
// back-pressure, and cancelling ctx releases the producer promptly.
func Segment(ctx context.Context, deltas <-chan string) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		var buf strings.Builder
		emit := func() bool {
			select {
			case out <- buf.String():
				buf.Reset()
				return true
			case <-ctx.Done():
				return false
			}
		}
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deltas:
				if !ok {
					if buf.Len() > 0 {
						emit()
					}
					return
				}
				if d == "" {
					continue
				}
				buf.WriteString(d)
				if strings.ContainsAny(d, sentenceBoundaries) && utf8.RuneCountInString(buf.String()) >= minChunkRunes {
					if !emit() {
						return
					}
				}
			}
		}
	}()
	return out
}
