package http

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Izzoudine/back-flow/internal/bridge"
	svc "github.com/Izzoudine/back-flow/internal/usecase"
)

// maxUploadBytes caps a single audio upload (chat or analysis).
const maxUploadBytes = 25 << 20

// LiveFactory dials a connected live transcription session for one
// websocket client.
type LiveFactory func(ctx context.Context) (bridge.LiveTranscriber, error)

type Handlers struct {
	Coach svc.CoachService
	Live  LiveFactory

	upgrader websocket.Upgrader
}

func NewHandlers(coach svc.CoachService, live LiveFactory) Handlers {
	return Handlers{
		Coach: coach,
		Live:  live,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser demo clients connect from arbitrary origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h Handlers) Register(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.POST("/config", h.config)
	e.POST("/chat", h.chat)
	e.POST("/chat_audio", h.chatAudio)
	e.POST("/analyze_audio", h.analyzeAudio)
	e.POST("/stop", h.stop)
	e.POST("/status", h.status)
	e.GET("/ws/transcribe", h.transcribe)
}

type configRequest struct {
	Character string `json:"character"`
	Gender    string `json:"gender"`
	Scenario  string `json:"scenario"`
	Behavior  string `json:"behavior"`
}

func (h Handlers) config(c echo.Context) error {
	var req configRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": "invalid body"})
	}
	if err := h.Coach.Reconfigure(req.Character, req.Gender, req.Scenario, req.Behavior); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "configured"})
}

type chatRequest struct {
	Text string `json:"text"`
}

func (h Handlers) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": "invalid body"})
	}

	audio, err := h.Coach.HandleTextTurn(c.Request().Context(), req.Text)
	if err != nil {
		return h.turnError(c, err)
	}
	return c.Blob(http.StatusOK, "audio/mpeg", audio)
}

func (h Handlers) chatAudio(c echo.Context) error {
	audio, mimeType, err := readUpload(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": err.Error()})
	}

	out, err := h.Coach.HandleAudioTurn(c.Request().Context(), audio, mimeType)
	if err != nil {
		return h.turnError(c, err)
	}
	return c.Blob(http.StatusOK, "audio/mpeg", out)
}

func (h Handlers) analyzeAudio(c echo.Context) error {
	audio, mimeType, err := readUpload(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": err.Error()})
	}

	res, err := h.Coach.AnalyzeRecording(c.Request().Context(), audio, mimeType)
	if err != nil {
		return h.turnError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "ok",
		"metrics": res.Metrics,
		"advice":  res.Advice,
	})
}

// stop and status are compatibility endpoints for clients that poll
// playback state; synthesis here is request-scoped so nothing is ever
// speaking between requests.
func (h Handlers) stop(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "stopped"})
}

func (h Handlers) status(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"is_speaking": false})
}

// transcribe upgrades the connection and bridges client audio frames to the
// live transcription provider until either side disconnects.
func (h Handlers) transcribe(c echo.Context) error {
	if h.Live == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "error", "message": "live transcription not configured"})
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		return nil
	}

	live, err := h.Live(c.Request().Context())
	if err != nil {
		log.Printf("http: live transcription dial failed: %v", err)
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "transcription unavailable"))
		_ = conn.Close()
		return nil
	}

	bridge.Run(c.Request().Context(), conn, live)
	return nil
}

// readUpload pulls the "file" part out of a multipart form.
func readUpload(c echo.Context) ([]byte, string, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, "", errors.New("missing file upload")
	}
	if fh.Size > maxUploadBytes {
		return nil, "", errors.New("upload too large")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	body, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return nil, "", err
	}
	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "audio/webm"
	}
	return body, mimeType, nil
}

// turnError maps pipeline failures onto HTTP statuses: bad input is the
// caller's fault, everything else is ours.
func (h Handlers) turnError(c echo.Context, err error) error {
	var vErr *svc.ValidationError
	if errors.As(err, &vErr) {
		return c.JSON(http.StatusBadRequest, echo.Map{"status": "error", "message": vErr.Reason})
	}
	log.Printf("http: turn failed: %v", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "message": err.Error()})
}
