package main

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"
)

// telegramMessenger implements services.Messenger over telebot.
type telegramMessenger struct {
	bot *tele.Bot
}

func (m *telegramMessenger) SendText(chatID int64, text string) error {
	_, err := m.bot.Send(&tele.Chat{ID: chatID}, text)
	return err
}

func (m *telegramMessenger) SendMention(chatID int64, userID int64, text string) error {
	mention := fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, userID, m.Nickname(userID))
	_, err := m.bot.Send(&tele.Chat{ID: chatID}, mention+"\n"+text, &tele.SendOptions{
		ParseMode: tele.ModeHTML,
	})
	return err
}

func (m *telegramMessenger) SendImage(chatID int64, image []byte) error {
	photo := &tele.Photo{File: tele.FromReader(bytes.NewReader(image))}
	_, err := m.bot.Send(&tele.Chat{ID: chatID}, photo)
	return err
}

func (m *telegramMessenger) Nickname(userID int64) string {
	chat, err := m.bot.ChatByID(userID)
	if err != nil || chat == nil {
		return strconv.FormatInt(userID, 10)
	}
	if chat.Username != "" {
		return chat.Username
	}
	if name := strings.TrimSpace(chat.FirstName + " " + chat.LastName); name != "" {
		return name
	}
	return strconv.FormatInt(userID, 10)
}
