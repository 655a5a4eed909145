// Package bridge relays two independent flows over one logical connection:
// inbound audio frames from a client socket into a live transcription
// session, and finalized transcripts from that session back to the socket.
package bridge

import (
	"context"
	"log"

	"github.com/gorilla/websocket"
)

// Socket is the subset of a websocket connection the bridge needs.
// *websocket.Conn satisfies it.
type Socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// LiveTranscriber is one open streaming STT session.
// transcript.DeepgramLive satisfies it.
type LiveTranscriber interface {
	Send(frame []byte) error
	Finals() <-chan string
	Close() error
}

// Run pumps the two directions until either side stops, then tears down
// both. Inbound binary frames are forwarded unmodified and immediately;
// non-binary frames are ignored. Finalized transcripts go out as text
// messages. The live session is always closed when Run returns, whichever
// side failed first, so no provider session can outlive the socket.
func Run(ctx context.Context, sock Socket, live LiveTranscriber) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer func() { _ = live.Close() }()
	defer func() { _ = sock.Close() }()

	inboundDone := make(chan struct{})
	go func() {
		defer close(inboundDone)
		defer cancel()
		for {
			mt, frame, err := sock.ReadMessage()
			if err != nil {
				return
			}
			if mt != websocket.BinaryMessage {
				continue
			}
			if err := live.Send(frame); err != nil {
				log.Printf("bridge: forward audio: %v", err)
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			// Closing the socket unblocks a ReadMessage still in flight.
			_ = sock.Close()
			<-inboundDone
			return
		case text, ok := <-live.Finals():
			if !ok {
				_ = sock.Close()
				<-inboundDone
				return
			}
			if err := sock.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
				log.Printf("bridge: relay transcript: %v", err)
				_ = sock.Close()
				<-inboundDone
				return
			}
		}
	}
}
