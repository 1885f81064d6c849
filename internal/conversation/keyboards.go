package conversation

import (
	"context"
	"time"

	"github.com/tbourn/go-booking-bot/internal/domain"
	"github.com/tbourn/go-booking-bot/internal/utils"
)

// ButtonsPerRow is the width of date and time keyboards.
const ButtonsPerRow = 3

const (
	shortDateLayout = "02.01"
	longDateLayout  = "02.01.2006"
)

func (m *Machine) backRow() []Button {
	return []Button{{Label: m.Texts.MenuMain, Token: MenuToken(MenuMain)}}
}

func (m *Machine) mainMenu(text string) Reply {
	t := m.Texts
	return Reply{
		Text: text,
		Buttons: [][]Button{
			{{Label: t.MenuBook, Token: MenuToken(MenuBook)}},
			{{Label: t.MenuServices, Token: MenuToken(MenuServices)}},
			{{Label: t.MenuMine, Token: MenuToken(MenuMine)}},
			{{Label: t.MenuDiscount, Token: MenuToken(MenuDiscount)}},
			{{Label: t.MenuAbout, Token: MenuToken(MenuAbout)}},
			{{Label: t.MenuContacts, Token: MenuToken(MenuContacts)}},
		},
	}
}

func (m *Machine) info(text string) Reply {
	return Reply{Text: text, Markdown: true, Buttons: [][]Button{m.backRow()}}
}

func (m *Machine) servicesMenu() Reply {
	rows := make([][]Button, 0, len(m.Catalog)+1)
	for _, s := range m.Catalog {
		rows = append(rows, []Button{{Label: s.Name, Token: ServiceToken(s.Key)}})
	}
	rows = append(rows, m.backRow())
	return Reply{Text: m.Texts.ChooseService, Buttons: rows}
}

func (m *Machine) datesReply(ctx context.Context, text string) (Reply, error) {
	dates, err := m.Booker.BookableDates(ctx)
	if err != nil {
		return Reply{}, err
	}
	return m.datesFrom(dates, text), nil
}

// datesFrom renders dates three per row. With nothing left it falls back to
// the "no dates" notice and the main menu.
func (m *Machine) datesFrom(dates []time.Time, text string) Reply {
	if len(dates) == 0 {
		return m.mainMenu(m.Texts.NoDates)
	}
	buttons := make([]Button, 0, len(dates))
	for _, d := range dates {
		buttons = append(buttons, Button{Label: d.Format(shortDateLayout), Token: DateToken(d)})
	}
	rows := append(utils.Chunk(buttons, ButtonsPerRow), m.backRow())
	return Reply{Text: text, Buttons: rows}
}

func (m *Machine) timesReply(times []string, text string) Reply {
	buttons := make([]Button, 0, len(times))
	for _, slot := range times {
		buttons = append(buttons, Button{Label: slot, Token: TimeToken(slot)})
	}
	rows := append(utils.Chunk(buttons, ButtonsPerRow), m.backRow())
	return Reply{Text: text, Buttons: rows}
}

func shortDate(iso string) string { return reformat(iso, shortDateLayout) }
func longDate(iso string) string  { return reformat(iso, longDateLayout) }

func reformat(iso, layout string) string {
	d, err := time.Parse(domain.DateLayout, iso)
	if err != nil {
		return iso
	}
	return d.Format(layout)
}
