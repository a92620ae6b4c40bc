package bot

import (
	"bytes"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/gruppenrun/clubbot/core/telegram/keyboard"
	"github.com/gruppenrun/clubbot/internal/dialogue"
)

func userKey(id int64) string { return strconv.FormatInt(id, 10) }

// deliver translates dialogue outputs into telebot sends, preserving order.
func (b *Bot) deliver(c tele.Context, outs []dialogue.Output) error {
	for _, out := range outs {
		if err := b.sendOne(c, out); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) sendOne(c tele.Context, out dialogue.Output) error {
	if out.PhotoPNG != nil {
		photo := &tele.Photo{
			File:    tele.FromReader(bytes.NewReader(out.PhotoPNG)),
			Caption: out.Text,
		}
		if out.Rows != nil {
			return c.Send(photo, keyboard.InlineRows(out.Rows...))
		}
		return c.Send(photo)
	}

	switch {
	case out.ContactRequest:
		return c.Send(out.Text, keyboard.ContactButton("📱 Отправить номер телефона"))
	case out.RemoveReply:
		return c.Send(out.Text, keyboard.RemoveKeyboard())
	case out.Rows != nil:
		return c.Send(out.Text, keyboard.InlineRows(out.Rows...))
	default:
		return c.Send(out.Text)
	}
}
