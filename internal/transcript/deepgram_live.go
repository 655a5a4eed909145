package transcript

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DeepgramLive is one streaming transcription session against Deepgram's
// live WebSocket API. Inbound audio frames are forwarded as-is; only
// finalized, non-empty results are surfaced on Finals. Interim results are
// discarded, and filler-word tagging stays off on this fast path.
type DeepgramLive struct {
	apiKey   string
	model    string
	language string

	conn   *websocket.Conn
	finals chan string
	audio  chan []byte
	stopCh chan struct{}

	mu        sync.RWMutex
	connected bool
	closeOnce sync.Once
	// finalsOnce guards closing finals: the message pump owns the close on
	// a connected session, Close owns it when Connect never ran.
	finalsOnce sync.Once
}

// liveResult is the subset of Deepgram's live messages the session reads.
type liveResult struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

type liveError struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// NewDeepgramLive creates a live session; Connect must be called before use.
func NewDeepgramLive(apiKey, model, language string) *DeepgramLive {
	if model == "" {
		model = "nova-2"
	}
	if language == "" {
		language = "fr"
	}
	return &DeepgramLive{
		apiKey:   apiKey,
		model:    model,
		language: language,
		finals:   make(chan string, 10),
		audio:    make(chan []byte, 1000),
		stopCh:   make(chan struct{}),
	}
}

// Connect opens the WebSocket session with fixed decoding options and starts
// the send and receive pumps.
func (s *DeepgramLive) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}
	if s.apiKey == "" {
		return fmt.Errorf("transcript: deepgram api key missing")
	}

	params := url.Values{}
	params.Set("model", s.model)
	params.Set("language", s.language)
	params.Set("smart_format", "true")
	params.Set("interim_results", "true")
	params.Set("punctuate", "true")
	params.Set("filler_words", "false")

	wsURL := fmt.Sprintf("wss://api.deepgram.com/v1/listen?%s", params.Encode())
	headers := map[string][]string{
		"Authorization": {"Token " + s.apiKey},
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.Dial(wsURL, headers)
	if err != nil {
		if resp != nil {
			log.Printf("transcript: deepgram live dial failed with status %d", resp.StatusCode)
		}
		return fmt.Errorf("transcript: connect deepgram live: %w", err)
	}

	s.conn = conn
	s.connected = true

	go s.handleMessages()
	go s.sendAudioData()

	log.Printf("transcript: deepgram live session open (model=%s lang=%s)", s.model, s.language)
	return nil
}

// Send queues one inbound audio frame for forwarding.
func (s *DeepgramLive) Send(frame []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return fmt.Errorf("transcript: live session not connected")
	}
	select {
	case s.audio <- frame:
		return nil
	default:
		log.Println("transcript: live audio buffer full, dropping frame")
		return nil
	}
}

// Finals returns the channel of finalized transcript texts.
func (s *DeepgramLive) Finals() <-chan string { return s.finals }

// Close terminates the provider session and releases all resources. It is
// safe to call from any goroutine and more than once. The finals channel is
// closed by the message pump once it drains out, never while a relay may
// still be selecting a send on it.
func (s *DeepgramLive) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopCh)
		s.mu.Lock()
		conn := s.conn
		wasConnected := s.connected
		s.connected = false
		s.conn = nil
		s.mu.Unlock()
		if conn != nil {
			closeMsg := map[string]string{"type": "CloseStream"}
			_ = conn.WriteJSON(closeMsg)
			_ = conn.Close()
		}
		if !wasConnected {
			// no pump was ever started, so nothing else can close finals
			s.finalsOnce.Do(func() { close(s.finals) })
		}
		log.Println("transcript: deepgram live session closed")
	})
	return nil
}

func (s *DeepgramLive) handleMessages() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("transcript: recovered in handleMessages: %v", r)
		}
		// sole sender on finals; closing here cannot race processMessage
		s.finalsOnce.Do(func() { close(s.finals) })
	}()
	for {
		select {
		case <-s.stopCh:
			return
		default:
			s.mu.RLock()
			conn := s.conn
			s.mu.RUnlock()
			if conn == nil {
				return
			}
			_, message, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-s.stopCh:
				default:
					log.Printf("transcript: live read error: %v", err)
					_ = s.Close()
				}
				return
			}
			s.processMessage(message)
		}
	}
}

// processMessage classifies one provider event. Only final results with
// non-empty text reach the Finals channel.
func (s *DeepgramLive) processMessage(message []byte) {
	var res liveResult
	if err := json.Unmarshal(message, &res); err != nil {
		log.Printf("transcript: unmarshal live message: %v", err)
		return
	}
	switch res.Type {
	case "Results":
		if !res.IsFinal {
			return
		}
		if len(res.Channel.Alternatives) == 0 {
			return
		}
		text := strings.TrimSpace(res.Channel.Alternatives[0].Transcript)
		if text == "" {
			return
		}
		select {
		case s.finals <- text:
		case <-s.stopCh:
		}
	case "Metadata", "SpeechStarted", "UtteranceEnd":
		// informational, nothing to relay
	case "Error":
		var e liveError
		_ = json.Unmarshal(message, &e)
		log.Printf("transcript: deepgram live error: %s", e.Description)
		_ = s.Close()
	default:
		log.Printf("transcript: unknown live message type: %s", res.Type)
	}
}

func (s *DeepgramLive) sendAudioData() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("transcript: recovered in sendAudioData: %v", r)
		}
	}()
	for {
		select {
		case <-s.stopCh:
			return
		case frame, ok := <-s.audio:
			if !ok {
				return
			}
			s.mu.RLock()
			conn := s.conn
			s.mu.RUnlock()
			if conn == nil {
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				log.Printf("transcript: live send error: %v", err)
				_ = s.Close()
				return
			}
		}
	}
}
