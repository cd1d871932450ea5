package relay

import "strings"

// replyEntry pairs a keyword with its canned reply.
type replyEntry struct {
	keyword string
	reply   string
}

// Responder maps inbound text to a canned reply using an ordered keyword
// table. Matching is case-insensitive and substring-based; the first entry
// found in the message wins, so table order is part of the contract.
type Responder struct {
	entries  []replyEntry
	fallback string
}

// NewResponder returns a Responder loaded with the default reply table.
func NewResponder() *Responder {
	return &Responder{
		entries: []replyEntry{
			{"oi", "Olá! Como posso ajudar você hoje?"},
			{"ajuda", "Claro! Você pode gerenciar contatos, acessar relatórios (se for admin) ou conversar aqui. O que precisa?"},
			{"contato", "Para gerenciar contatos, volte à página principal e use a seção \"Seus Contatos\". Quer ajuda com algo específico?"},
			{"admin", "Se precisar de um administrador, continue enviando mensagens. Após 5 respostas automáticas, um admin será notificado!"},
			{"relatório", "Relatórios estão disponíveis para administradores na seção \"Relatórios\" da agenda. Quer saber mais?"},
		},
		fallback: "Desculpe, não entendi. Tente palavras como \"ajuda\", \"contato\" ou \"admin\".",
	}
}

// Reply returns the canned reply for the first matching keyword, or the
// fallback when nothing matches. Pure; no state is touched.
func (r *Responder) Reply(message string) string {
	lower := strings.ToLower(message)
	for _, entry := range r.entries {
		if strings.Contains(lower, entry.keyword) {
			return entry.reply
		}
	}
	return r.fallback
}
