package broadcast

import (
	"context"
	"errors"
	"testing"

	tele "gopkg.in/telebot.v4"
)

type staticRecipients []int64

func (r staticRecipients) AllChatIDs(context.Context) ([]int64, error) {
	return r, nil
}

type failingRecipients struct{}

func (failingRecipients) AllChatIDs(context.Context) ([]int64, error) {
	return nil, errors.New("db down")
}

type recordingSender struct {
	texts  []int64
	photos []int64
	fail   map[int64]bool
}

func (s *recordingSender) SendText(_ context.Context, chatID int64, _ string, _ *tele.ReplyMarkup) error {
	if s.fail[chatID] {
		return errors.New("forbidden: bot was blocked by the user")
	}
	s.texts = append(s.texts, chatID)
	return nil
}

func (s *recordingSender) SendPhoto(_ context.Context, chatID int64, _, _ string, _ *tele.ReplyMarkup) error {
	if s.fail[chatID] {
		return errors.New("forbidden: bot was blocked by the user")
	}
	s.photos = append(s.photos, chatID)
	return nil
}

func TestRunDeliversToEveryChat(t *testing.T) {
	sender := &recordingSender{}
	eng := New(staticRecipients{1, 2, 3}, sender)

	report, err := eng.Run(context.Background(), Message{Text: "maintenance tonight"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Total != 3 || report.Sent != 3 || report.Failed != 0 {
		t.Fatalf("report = %+v", report)
	}
	if len(sender.texts) != 3 {
		t.Fatalf("text sends = %d, want 3", len(sender.texts))
	}
	if len(sender.photos) != 0 {
		t.Fatalf("unexpected photo sends: %d", len(sender.photos))
	}
}

func TestRunToleratesPerChatFailures(t *testing.T) {
	sender := &recordingSender{fail: map[int64]bool{2: true, 4: true}}
	eng := New(staticRecipients{1, 2, 3, 4, 5}, sender)

	report, err := eng.Run(context.Background(), Message{Text: "hello"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Total != 5 {
		t.Fatalf("total = %d, want 5", report.Total)
	}
	if report.Sent != 3 {
		t.Fatalf("sent = %d, want 3", report.Sent)
	}
	if report.Failed != 2 {
		t.Fatalf("failed = %d, want 2", report.Failed)
	}
}

func TestRunPrefersPhotoWhenAttached(t *testing.T) {
	sender := &recordingSender{}
	eng := New(staticRecipients{7}, sender)

	report, err := eng.Run(context.Background(), Message{Text: "caption", PhotoID: "file-abc"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Sent != 1 || len(sender.photos) != 1 || len(sender.texts) != 0 {
		t.Fatalf("report = %+v, photos = %d, texts = %d", report, len(sender.photos), len(sender.texts))
	}
}

func TestRunRejectsEmptyMessage(t *testing.T) {
	eng := New(staticRecipients{1}, &recordingSender{})
	if _, err := eng.Run(context.Background(), Message{}); err == nil {
		t.Fatal("expected error for empty message")
	}
}

func TestRunPropagatesRecipientError(t *testing.T) {
	eng := New(failingRecipients{}, &recordingSender{})
	if _, err := eng.Run(context.Background(), Message{Text: "x"}); err == nil {
		t.Fatal("expected recipient load error")
	}
}

func TestMarkupLayout(t *testing.T) {
	withURL := Markup("https://example.com")
	if len(withURL.InlineKeyboard) != 2 {
		t.Fatalf("rows with url = %d, want 2", len(withURL.InlineKeyboard))
	}
	if withURL.InlineKeyboard[0][0].URL != "https://example.com" {
		t.Fatalf("first row should be the link button, got %+v", withURL.InlineKeyboard[0][0])
	}

	plain := Markup("")
	if len(plain.InlineKeyboard) != 1 {
		t.Fatalf("rows without url = %d, want 1", len(plain.InlineKeyboard))
	}
}
