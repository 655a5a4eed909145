package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type frame struct {
	mt   int
	data []byte
}

// fakeSocket feeds scripted inbound frames and records outbound messages.
type fakeSocket struct {
	in chan frame

	mu     sync.Mutex
	sent   []frame
	closed bool
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{in: make(chan frame, 16)}
}

func (s *fakeSocket) ReadMessage() (int, []byte, error) {
	f, ok := <-s.in
	if !ok {
		return 0, nil, errors.New("socket closed")
	}
	return f.mt, f.data, nil
}

func (s *fakeSocket) WriteMessage(mt int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("write on closed socket")
	}
	s.sent = append(s.sent, frame{mt: mt, data: append([]byte(nil), data...)})
	return nil
}

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.in)
	}
	return nil
}

func (s *fakeSocket) sentMessages() []frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]frame, len(s.sent))
	copy(out, s.sent)
	return out
}

// fakeLive records forwarded frames and lets the test inject finals.
type fakeLive struct {
	finals chan string

	mu       sync.Mutex
	received [][]byte
	closed   bool
}

func newFakeLive() *fakeLive {
	return &fakeLive{finals: make(chan string, 16)}
}

func (l *fakeLive) Send(frame []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.received = append(l.received, append([]byte(nil), frame...))
	return nil
}

func (l *fakeLive) Finals() <-chan string { return l.finals }

func (l *fakeLive) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func (l *fakeLive) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func runBridge(sock *fakeSocket, live *fakeLive) chan struct{} {
	done := make(chan struct{})
	go func() {
		Run(context.Background(), sock, live)
		close(done)
	}()
	return done
}

func TestRun_ForwardsBinaryFramesToLiveSession(t *testing.T) {
	sock := newFakeSocket()
	live := newFakeLive()
	done := runBridge(sock, live)

	sock.in <- frame{mt: websocket.BinaryMessage, data: []byte{1, 2, 3}}
	sock.in <- frame{mt: websocket.TextMessage, data: []byte("ping")} // ignored
	sock.in <- frame{mt: websocket.BinaryMessage, data: []byte{4}}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		live.mu.Lock()
		n := len(live.received)
		live.mu.Unlock()
		if n == 2 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	live.mu.Lock()
	got := len(live.received)
	live.mu.Unlock()
	if got != 2 {
		t.Fatalf("expected 2 forwarded frames, got %d", got)
	}
	sock.Close()
	<-done
}

func TestRun_RelaysFinalsAsTextMessages(t *testing.T) {
	sock := newFakeSocket()
	live := newFakeLive()
	done := runBridge(sock, live)

	live.finals <- "Bonjour."
	live.finals <- "Deuxième phrase."

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && len(sock.sentMessages()) < 2 {
		time.Sleep(2 * time.Millisecond)
	}
	sent := sock.sentMessages()
	if len(sent) != 2 {
		t.Fatalf("expected 2 relayed messages, got %d", len(sent))
	}
	if sent[0].mt != websocket.TextMessage || string(sent[0].data) != "Bonjour." {
		t.Fatalf("unexpected first relay: %+v", sent[0])
	}
	sock.Close()
	<-done
}

func TestRun_SocketCloseTearsDownBothDirections(t *testing.T) {
	sock := newFakeSocket()
	live := newFakeLive()
	done := runBridge(sock, live)

	sock.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("bridge did not stop after socket close")
	}
	if !live.isClosed() {
		t.Fatalf("live session must be closed when the socket goes away")
	}
}

func TestRun_LiveSessionEndTearsDownSocket(t *testing.T) {
	sock := newFakeSocket()
	live := newFakeLive()
	done := runBridge(sock, live)

	close(live.finals)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("bridge did not stop after live session end")
	}
	sock.mu.Lock()
	closed := sock.closed
	sock.mu.Unlock()
	if !closed {
		t.Fatalf("socket must be closed when the live session ends")
	}
}

func TestRun_ContextCancellationStopsBridge(t *testing.T) {
	sock := newFakeSocket()
	live := newFakeLive()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Run(ctx, sock, live)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("bridge did not honour context cancellation")
	}
	if !live.isClosed() {
		t.Fatalf("live session must be closed on cancellation")
	}
}
