package relay

import (
	"strings"
	"testing"
)

func TestReplyMatchesCaseInsensitive(t *testing.T) {
	bot := NewResponder()

	reply := bot.Reply("Preciso de AJUDA")
	if !strings.Contains(reply, "gerenciar contatos") {
		t.Fatalf("expected ajuda reply, got %q", reply)
	}
}

func TestReplyMatchesSubstring(t *testing.T) {
	bot := NewResponder()

	reply := bot.Reply("como faço para adicionar um contato novo?")
	if !strings.Contains(reply, "Seus Contatos") {
		t.Fatalf("expected contato reply, got %q", reply)
	}
}

func TestReplyTableOrderBreaksTies(t *testing.T) {
	bot := NewResponder()

	// "admin" appears first in the input, but "oi" comes first in the table.
	reply := bot.Reply("admin, oi")
	if reply != "Olá! Como posso ajudar você hoje?" {
		t.Fatalf("expected oi reply to win, got %q", reply)
	}
}

func TestReplyFallback(t *testing.T) {
	bot := NewResponder()

	reply := bot.Reply("xyzzy")
	if !strings.Contains(reply, "não entendi") {
		t.Fatalf("expected fallback reply, got %q", reply)
	}
}

func TestReplyIsStateless(t *testing.T) {
	bot := NewResponder()

	first := bot.Reply("oi")
	for i := 0; i < 3; i++ {
		if got := bot.Reply("oi"); got != first {
			t.Fatalf("reply changed across calls: %q vs %q", got, first)
		}
	}
}
