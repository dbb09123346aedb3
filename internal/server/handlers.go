package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Veraticus/textledger/internal/common"
	"github.com/Veraticus/textledger/internal/engine"
	"github.com/Veraticus/textledger/internal/messaging"
	"github.com/Veraticus/textledger/internal/model"
	"github.com/gin-gonic/gin"
)

const twimlContentType = "text/xml; charset=utf-8"

func (s *Server) handleRoot(c *gin.Context) {
	c.String(http.StatusOK, "Hello World!")
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleSMS answers Twilio's inbound message webhook with TwiML.
func (s *Server) handleSMS(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "invalid form body")
		return
	}

	if s.validator != nil {
		signature := c.GetHeader("X-Twilio-Signature")
		if !s.validator.Valid(s.requestURL(c), c.Request.PostForm, signature) {
			s.logger.Warn("rejected sms webhook with invalid signature", "from", c.Request.PostForm.Get("From"))
			c.String(http.StatusForbidden, "invalid signature")
			return
		}
	}

	msg := model.InboundMessage{
		ReceivedAt: time.Now(),
		Channel:    model.ChannelSMS,
		Sender:     c.Request.PostForm.Get("From"),
		Text:       c.Request.PostForm.Get("Body"),
	}

	outcome, err := s.engine.Process(c.Request.Context(), msg)
	reply := outcome.Reply
	if errors.Is(err, common.ErrUnauthorizedSender) {
		reply = ""
	}

	doc, renderErr := messaging.RenderTwiML(reply)
	if renderErr != nil {
		s.logger.Error("failed to render twiml", "error", renderErr)
		c.String(http.StatusInternalServerError, "failed to render reply")
		return
	}

	c.Data(http.StatusOK, twimlContentType, []byte(doc))
}

// handleTelegram processes a bot Update and replies through the Bot API.
// It always answers 200 so Telegram does not redeliver the update.
func (s *Server) handleTelegram(c *gin.Context) {
	defer c.JSON(http.StatusOK, gin.H{"ok": true})

	update, err := messaging.DecodeUpdate(c.Request.Body)
	if err != nil {
		s.logger.Warn("ignoring malformed telegram update", "error", err)
		return
	}

	msg, ok := messaging.InboundFromUpdate(update)
	if !ok {
		return
	}

	outcome, err := s.engine.Process(c.Request.Context(), msg)
	if errors.Is(err, common.ErrUnauthorizedSender) || outcome.Reply == "" {
		return
	}

	// The reply outlives a client that hangs up early.
	replyCtx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 15*time.Second)
	defer cancel()

	if err := s.telegram.Reply(replyCtx, msg.ChatID, outcome.Reply); err != nil {
		s.logger.Error("failed to send telegram reply", "error", err, "chat_id", msg.ChatID)
	}
}

type classifyRequest struct {
	Text string `json:"text"`
}

// handleClassify classifies JSON {"text": "..."} and returns the result.
func (s *Server) handleClassify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be JSON with a text field"})
		return
	}

	outcome, err := s.engine.Process(c.Request.Context(), model.InboundMessage{
		Channel: model.ChannelAPI,
		Text:    req.Text,
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":  engine.UserMessage(err),
			"detail": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, outcome.Result)
}

// statusFor maps an engine error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorizedSender):
		return http.StatusForbidden
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, common.ErrUpstreamCall):
		return http.StatusBadGateway
	case common.IsClassificationError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// requestURL returns the URL Twilio signed: the configured webhook URL, or
// the request URL as seen by the client.
func (s *Server) requestURL(c *gin.Context) string {
	if s.webhookURL != "" {
		return s.webhookURL
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	host := c.Request.Host
	if fwd := c.GetHeader("X-Forwarded-Host"); fwd != "" {
		host = fwd
	}

	return scheme + "://" + host + c.Request.URL.RequestURI()
}
