package notify

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gopkg.in/gomail.v2"

	"potencialize/internal/models"
)

type flakySink struct {
	failures  int
	delivered []models.Event
}

func (s *flakySink) Name() string          { return "flaky" }
func (s *flakySink) Accepts(_ string) bool { return true }
func (s *flakySink) Deliver(_ context.Context, e models.Event) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("unreachable")
	}
	s.delivered = append(s.delivered, e)
	return nil
}

func openOutbox(t *testing.T) *Outbox {
	t.Helper()
	ob, err := OpenOutbox(filepath.Join(t.TempDir(), "outbox.db"))
	if err != nil {
		t.Fatalf("open outbox: %v", err)
	}
	t.Cleanup(func() { ob.Close() })
	return ob
}

func TestPublishParksFailedDelivery(t *testing.T) {
	ob := openOutbox(t)
	sink := &flakySink{failures: 1}
	d := NewDispatcher(ob, 3, nil, sink)

	d.Publish(context.Background(), models.Event{ID: "e1", Type: models.EventMembershipActivated})
	if n, _ := ob.Size(); n != 1 {
		t.Fatalf("expected 1 parked delivery, got %d", n)
	}

	delivered, err := d.Drain(context.Background(), 10)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if delivered != 1 || len(sink.delivered) != 1 {
		t.Fatalf("expected redelivery, got %d", delivered)
	}
	if n, _ := ob.Size(); n != 0 {
		t.Fatalf("outbox should be empty, has %d", n)
	}
}

func TestDrainDropsAfterMaxAttempts(t *testing.T) {
	ob := openOutbox(t)
	sink := &flakySink{failures: 10}
	d := NewDispatcher(ob, 2, nil, sink)

	d.Publish(context.Background(), models.Event{ID: "e2", Type: "x"})
	if _, err := d.Drain(context.Background(), 10); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if n, _ := ob.Size(); n != 0 {
		t.Fatalf("entry should be dropped after max attempts, outbox has %d", n)
	}
}

type fakeMailer struct{ sent []*gomail.Message }

func (m *fakeMailer) DialAndSend(msgs ...*gomail.Message) error {
	m.sent = append(m.sent, msgs...)
	return nil
}

func TestEmailSinkSendsWelcome(t *testing.T) {
	mailer := &fakeMailer{}
	sink := NewEmailSink(mailer, "noreply@potencialize.test", "Potencialize Club", 5)
	if sink.Accepts(models.EventMembershipUserMissing) {
		t.Fatalf("email sink must ignore warnings")
	}
	err := sink.Deliver(context.Background(), models.Event{
		Type:    models.EventMembershipActivated,
		Payload: map[string]any{"email": "ceo@acme.test", "user_name": "Ana", "company": "Acme"},
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(mailer.sent))
	}
	if got := mailer.sent[0].GetHeader("To"); len(got) != 1 || got[0] != "ceo@acme.test" {
		t.Fatalf("unexpected recipient %v", got)
	}
}

type fakeBot struct{ texts []string }

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		b.texts = append(b.texts, m.Text)
	}
	return tgbotapi.Message{}, nil
}

func TestTelegramSinkFormatsWarning(t *testing.T) {
	bot := &fakeBot{}
	sink := NewTelegramSink(bot, 42)
	err := sink.Deliver(context.Background(), models.Event{
		Type:    models.EventMembershipUserMissing,
		Payload: map[string]any{"company": "Nobody Ltda"},
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(bot.texts) != 1 || !strings.Contains(bot.texts[0], "Nobody Ltda") {
		t.Fatalf("unexpected messages %v", bot.texts)
	}
}
