package messenger

import (
	"strings"
	"testing"

	"github.com/kapu/messenger-chess-bot/internal/domain"
	"github.com/kapu/messenger-chess-bot/internal/rules"
)

func TestBoardImageURLWhitePerspective(t *testing.T) {
	c := NewClient("https://graph.example/v2.6", "tok", "https://bot.example")
	got := c.boardImageURL(rules.StartFEN, domain.White)
	if !strings.HasPrefix(got, "https://bot.example/board?fen=") {
		t.Fatalf("url = %q", got)
	}
	if strings.Contains(got, " ") {
		t.Fatal("only the placement field goes into the url")
	}
	if !strings.Contains(got, "RNBQKBNR") {
		t.Fatalf("white perspective keeps the original placement: %q", got)
	}
}

func TestBoardImageURLBlackPerspective(t *testing.T) {
	c := NewClient("https://graph.example/v2.6", "tok", "https://bot.example")
	white := c.boardImageURL(rules.StartFEN, domain.White)
	black := c.boardImageURL(rules.StartFEN, domain.Black)
	if white == black {
		t.Fatal("black perspective must rotate the board")
	}
	// Rotating twice restores the original placement.
	if reverseString(reverseString("rnbq/8/8/RNBQ")) != "rnbq/8/8/RNBQ" {
		t.Fatal("reversal must be an involution")
	}
}
