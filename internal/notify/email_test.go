package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/clinic-reservation/pkg/logging"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "",
		FromEmail: "clinic@example.com",
	}, nil)

	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "clinic@example.com",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != defaultFromName {
		t.Errorf("expected default from name %q, got %q", defaultFromName, sender.fromName)
	}
}

type fakeSendGrid struct {
	status int
	err    error
	sent   []*mail.SGMailV3
}

func (f *fakeSendGrid) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, email)
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status}, nil
}

func TestSendGridSender_Send(t *testing.T) {
	fake := &fakeSendGrid{status: 202}
	sender := &SendGridSender{client: fake, fromEmail: "clinic@example.com", fromName: "Clinic", logger: logging.New("error")}

	err := sender.Send(context.Background(), EmailMessage{To: "pat@example.com", Subject: "Hello", Body: "Body"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(fake.sent) != 1 || fake.sent[0].Subject != "Hello" {
		t.Fatalf("unexpected sent mail %+v", fake.sent)
	}

	fake.status = 401
	if err := sender.Send(context.Background(), EmailMessage{To: "pat@example.com"}); err == nil {
		t.Fatal("expected error for 4xx status")
	}

	fake.err = errors.New("network down")
	if err := sender.Send(context.Background(), EmailMessage{To: "pat@example.com"}); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{}
	if err := sender.Send(context.Background(), EmailMessage{To: "pat@example.com"}); err == nil {
		t.Error("expected error when client is nil")
	}
}

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
}

func (f *fakeSES) SendEmail(ctx context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.inputs = append(f.inputs, in)
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	fake := &fakeSES{}
	sender := NewSESSender(fake, SESConfig{FromEmail: "clinic@example.com"}, nil)

	if err := sender.Send(context.Background(), EmailMessage{To: "pat@example.com", Subject: "Hi", Body: "Text"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	in := fake.inputs[0]
	if got := aws.ToString(in.FromEmailAddress); got != "Clinic Reservations <clinic@example.com>" {
		t.Fatalf("unexpected from %q", got)
	}
	if got := aws.ToString(in.Content.Simple.Body.Text.Data); got != "Text" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestNewEmailSender(t *testing.T) {
	if s, err := NewEmailSender(SenderConfig{}, nil); err != nil {
		t.Fatalf("stub: %v", err)
	} else if _, ok := s.(*StubEmailSender); !ok {
		t.Fatalf("expected stub sender, got %T", s)
	}

	if _, err := NewEmailSender(SenderConfig{Provider: "sendgrid"}, nil); err == nil {
		t.Fatal("expected error without API key")
	}
	if s, err := NewEmailSender(SenderConfig{Provider: "SendGrid", SendGrid: SendGridConfig{APIKey: "k"}, FromEmail: "a@example.com"}, nil); err != nil {
		t.Fatalf("sendgrid: %v", err)
	} else if sg := s.(*SendGridSender); sg.fromEmail != "a@example.com" {
		t.Fatalf("expected from address to fall back, got %q", sg.fromEmail)
	}

	if _, err := NewEmailSender(SenderConfig{Provider: "ses"}, nil); err == nil {
		t.Fatal("expected error without SES client")
	}
	if _, err := NewEmailSender(SenderConfig{Provider: "ses", SES: &fakeSES{}}, nil); err != nil {
		t.Fatalf("ses: %v", err)
	}
	if _, err := NewEmailSender(SenderConfig{Provider: "pigeon"}, nil); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
