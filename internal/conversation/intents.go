package conversation

import "github.com/tbourn/go-booking-bot/internal/search"

// intentMenus are the menus free text may open. Menus that act on state
// (delete, play) always need an explicit button.
var intentMenus = map[string]bool{
	MenuBook: true, MenuServices: true, MenuAbout: true,
	MenuContacts: true, MenuMine: true, MenuDiscount: true,
}

// DefaultIntents returns the English phrases matched against free text
// outside the verification steps. Labels are menu names.
func DefaultIntents() []search.Entry {
	return []search.Entry{
		{Label: MenuBook, Phrase: "book appointment"},
		{Label: MenuBook, Phrase: "make reservation booking"},
		{Label: MenuBook, Phrase: "sign up visit"},
		{Label: MenuServices, Phrase: "services prices price list"},
		{Label: MenuServices, Phrase: "how much cost"},
		{Label: MenuAbout, Phrase: "about studio who"},
		{Label: MenuAbout, Phrase: "opening hours open"},
		{Label: MenuContacts, Phrase: "contacts phone number"},
		{Label: MenuContacts, Phrase: "address where located"},
		{Label: MenuMine, Phrase: "my bookings appointments"},
		{Label: MenuMine, Phrase: "show reservations"},
		{Label: MenuDiscount, Phrase: "discount game dice"},
	}
}

// matchIntent maps free text to a menu, or "" when nothing matches well.
func (m *Machine) matchIntent(text string) string {
	if m.Intents == nil {
		return ""
	}
	r, ok := m.Intents.Best(text)
	if !ok || !intentMenus[r.Label] {
		return ""
	}
	return r.Label
}
