package emailsvc

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trezcool/seatplan/core"
	logsvc "github.com/trezcool/seatplan/services/logger"
)

func TestConsoleService(t *testing.T) {
	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(zap.NewNop(), conf)
	logger.Enable(false)
	svc := NewConsoleServiceMock(conf, logger)

	tests := []struct {
		name     string
		msg      *core.EmailMessage
		wantSent bool
	}{
		{name: "no recipient", msg: &core.EmailMessage{Subject: "Hi", BodyStr: "Hello"}},
		{name: "no content", msg: &core.EmailMessage{To: []mail.Address{{Address: "a@school.edu"}}, Subject: "Hi"}},
		{
			name:     "plain text",
			msg:      &core.EmailMessage{To: []mail.Address{{Address: "a@school.edu"}}, Subject: "Hi", BodyStr: "Hello"},
			wantSent: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc.Reset()
			svc.SendMessages(tt.msg)
			assert.Equal(t, tt.wantSent, len(svc.SentMessages()) == 1)
		})
	}

	t.Run("mime with attachment", func(t *testing.T) {
		msg := &core.EmailMessage{To: []mail.Address{{Address: "a@school.edu"}}, Subject: "Report", BodyStr: "See attached"}
		require.NoError(t, msg.Attach(strings.NewReader(`{"students":{}}`), "daily_report.json", "application/json"))
		require.NoError(t, msg.Render())

		body, err := svc.mime(*msg)
		require.NoError(t, err)
		assert.Contains(t, body, "Subject: ["+conf.AppName+"] Report")
		assert.Contains(t, body, "Content-Type: multipart/mixed")
		assert.Contains(t, body, "attachment; filename=daily_report.json")
		assert.Contains(t, body, "See attached")
	})
}
