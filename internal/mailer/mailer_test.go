package mailer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResetMessage(t *testing.T) {
	m := resetMessage("shop@krosty.test", "ana@example.com", "https://shop.test/reset?token=a&b")

	assert.Equal(t, []string{"ana@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"shop@krosty.test"}, m.GetHeader("From"))

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "text/html")
	assert.Contains(t, buf.String(), "text/plain")
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, NewLog().SendPasswordReset("ana@example.com", "https://x"))
}
