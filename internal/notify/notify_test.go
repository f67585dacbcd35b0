package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/segyhp/lending-engine/internal/domain"
)

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
	closed   bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

type recordingNotifier struct {
	calls int
	err   error
}

func (r *recordingNotifier) Notify(context.Context, string, string, string) error {
	r.calls++
	return r.err
}

func TestEmailNotifier(t *testing.T) {
	logger, _ := test.NewNullLogger()
	sender := &fakeSender{}
	notifier := NewEmailNotifierWithSender(sender, "loans@example.com", logger)

	err := notifier.Notify(context.Background(), "borrower@example.com", "Hello", "Body")

	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"borrower@example.com"}, sender.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"loans@example.com"}, sender.sent[0].GetHeader("From"))
	assert.Equal(t, []string{"Hello"}, sender.sent[0].GetHeader("Subject"))
}

func TestEmailNotifier_SkipsEmptyRecipient(t *testing.T) {
	logger, _ := test.NewNullLogger()
	sender := &fakeSender{}
	notifier := NewEmailNotifierWithSender(sender, "loans@example.com", logger)

	assert.NoError(t, notifier.Notify(context.Background(), "", "Hello", "Body"))
	assert.Empty(t, sender.sent)
}

func TestEmailNotifier_SendFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	notifier := NewEmailNotifierWithSender(&fakeSender{err: errors.New("smtp down")}, "loans@example.com", logger)

	err := notifier.Notify(context.Background(), "borrower@example.com", "Hello", "Body")

	assert.ErrorContains(t, err, "smtp down")
}

func TestEventPublisher(t *testing.T) {
	logger, _ := test.NewNullLogger()
	channel := &fakeChannel{}
	publisher := NewEventPublisherWithOpener(func() (Channel, error) { return channel, nil }, "lending.events", logger)

	err := publisher.Notify(context.Background(), "borrower@example.com", "Approved", "Congratulations")

	require.NoError(t, err)
	assert.Equal(t, "lending.events", channel.exchange)
	assert.Equal(t, RoutingKeyNotification, channel.key)
	assert.Equal(t, "application/json", channel.msg.ContentType)
	assert.Equal(t, amqp.Persistent, channel.msg.DeliveryMode)
	assert.True(t, channel.closed)

	var event NotificationEvent
	require.NoError(t, json.Unmarshal(channel.msg.Body, &event))
	assert.Equal(t, "borrower@example.com", event.Recipient)
	assert.Equal(t, "Approved", event.Subject)
}

func TestEventPublisher_Failures(t *testing.T) {
	logger, hook := test.NewNullLogger()

	openFail := NewEventPublisherWithOpener(func() (Channel, error) { return nil, errors.New("closed") }, "x", logger)
	assert.ErrorContains(t, openFail.Notify(context.Background(), "a", "b", "c"), "failed to open channel")

	channel := &fakeChannel{err: errors.New("nack")}
	publishFail := NewEventPublisherWithOpener(func() (Channel, error) { return channel, nil }, "x", logger)
	assert.ErrorContains(t, publishFail.Notify(context.Background(), "a", "b", "c"), "failed to publish")
	assert.True(t, channel.closed)
	assert.Len(t, hook.Entries, 2)
}

func TestFanout(t *testing.T) {
	first := &recordingNotifier{err: errors.New("first failed")}
	second := &recordingNotifier{}

	err := Fanout{first, second}.Notify(context.Background(), "a", "b", "c")

	assert.ErrorContains(t, err, "first failed")
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.NoError(t, Fanout{}.Notify(context.Background(), "a", "b", "c"))
}

func TestMessages(t *testing.T) {
	loan := &domain.Loan{
		ID:                 uuid.New(),
		AccountID:          "ACC-1",
		Principal:          decimal.NewFromInt(120000),
		EmiAmount:          decimal.RequireFromString("10549.91"),
		RemainingPrincipal: decimal.NewFromInt(115000),
		TermMonths:         12,
	}

	approved := LoanApproved(loan)
	assert.Equal(t, "Loan Application Approved", approved.Subject)
	assert.Contains(t, approved.Body, "120000.00")
	assert.Contains(t, approved.Body, "10549.91")

	repaid := RepaymentReceived(loan, decimal.NewFromInt(5000))
	assert.Contains(t, repaid.Body, "5000.00")
	assert.Contains(t, repaid.Body, "115000.00")

	rejected := ApplicationRejected(&domain.LoanApplication{ID: uuid.New(), AccountID: "ACC-1"}, decimal.NewFromInt(42))
	assert.Contains(t, rejected.Body, "42.00")

	reminder := InstallmentReminder(&domain.UpcomingInstallment{
		LoanID:            loan.ID,
		AccountID:         "ACC-1",
		InstallmentNumber: 3,
		DueDate:           time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC),
		EmiAmount:         decimal.RequireFromString("10549.91"),
	})
	assert.Contains(t, reminder.Subject, "installment 3")
	assert.Contains(t, reminder.Body, "2025-04-15")
}
