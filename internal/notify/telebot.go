package notify

import tele "gopkg.in/telebot.v4"

// TelebotMessenger adapts a telebot instance to the Messenger port.
type TelebotMessenger struct {
	Bot *tele.Bot
}

func (m *TelebotMessenger) SendText(chatID int64, text string) error {
	_, err := m.Bot.Send(&tele.User{ID: chatID}, text)
	return err
}
