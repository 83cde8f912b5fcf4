//go:build unit

package mail

import (
	"bytes"
	"context"
	"errors"
	"go-pages-app/internal/config"
	"go-pages-app/internal/logger"
	"net/smtp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSender_NoHostLogs(t *testing.T) {
	s := NewSender(config.MailConfig{}, logger.Nop())
	_, ok := s.(*LogSender)
	assert.True(t, ok, "expected LogSender when no host is configured")
}

func TestSMTPSender_Send(t *testing.T) {
	cfg := config.MailConfig{Host: "smtp.example.com", Port: 2525, Username: "u", Password: "p", From: "site@example.com"}
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	s := &SMTPSender{cfg: cfg, send: func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		assert.NotNil(t, a)
		return nil
	}}

	err := s.Send(context.Background(), Message{To: "alice@example.com", Subject: "Code", Body: "123456"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:2525", gotAddr)
	assert.Equal(t, "site@example.com", gotFrom)
	assert.Equal(t, []string{"alice@example.com"}, gotTo)
	assert.True(t, strings.HasSuffix(string(gotMsg), "\r\n\r\n123456"))
	assert.Contains(t, string(gotMsg), "Subject: Code\r\n")
}

func TestSMTPSender_SendError(t *testing.T) {
	s := &SMTPSender{cfg: config.MailConfig{Host: "h", Port: 25}, send: func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}}
	err := s.Send(context.Background(), Message{To: "bob@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bob@example.com")
}

func TestLogSender_Send(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(config.LogConfig{Level: "info", Format: "json"}, &buf)
	require.NoError(t, NewLogSender(log).Send(context.Background(), Message{To: "c@example.com", Subject: "Hi", Body: "body"}))
	assert.Contains(t, buf.String(), `"to":"c@example.com"`)
	assert.Contains(t, buf.String(), `"message":"body"`)
}
