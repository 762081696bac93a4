package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const cookieName = "flash"

type Category string

const (
	Success Category = "success"
	Error   Category = "error"
	Info    Category = "info"
	Warning Category = "warning"
)

type Message struct {
	Category Category `json:"category"`
	Text     string   `json:"message"`
}

// Add queues a message for the next page the client loads. Messages already
// queued on this request or response are kept.
func Add(w http.ResponseWriter, r *http.Request, category Category, text string) {
	messages := pending(w, r)
	messages = append(messages, Message{Category: category, Text: text})
	write(w, messages)
}

// Pop returns every queued message and clears them.
func Pop(w http.ResponseWriter, r *http.Request) []Message {
	messages := pending(w, r)
	if len(messages) > 0 {
		http.SetCookie(w, &http.Cookie{Name: cookieName, Path: "/", MaxAge: -1, Expires: time.Unix(1, 0)})
	}
	return messages
}

// pending collects messages set earlier on this response, falling back to
// the request cookie.
func pending(w http.ResponseWriter, r *http.Request) []Message {
	for _, raw := range w.Header().Values("Set-Cookie") {
		c, err := http.ParseSetCookie(raw)
		if err == nil && c.Name == cookieName && c.MaxAge >= 0 {
			return decode(c.Value)
		}
	}
	c, err := r.Cookie(cookieName)
	if err != nil {
		return nil
	}
	return decode(c.Value)
}

func write(w http.ResponseWriter, messages []Message) {
	data, err := json.Marshal(messages)
	if err != nil {
		log.Errorf("failed to encode flash messages: %v", err)
		return
	}
	header := w.Header()
	cookies := header.Values("Set-Cookie")
	header.Del("Set-Cookie")
	for _, raw := range cookies {
		if c, err := http.ParseSetCookie(raw); err == nil && c.Name == cookieName {
			continue
		}
		header.Add("Set-Cookie", raw)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    base64.URLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func decode(value string) []Message {
	data, err := base64.URLEncoding.DecodeString(value)
	if err != nil {
		log.Debugf("ignoring malformed flash cookie: %v", err)
		return nil
	}
	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		log.Debugf("ignoring malformed flash cookie: %v", err)
		return nil
	}
	return messages
}

// Read returns the messages queued by a response, as a client would see them.
func Read(resp *http.Response) []Message {
	for _, c := range resp.Cookies() {
		if c.Name == cookieName && c.MaxAge >= 0 {
			return decode(c.Value)
		}
	}
	return nil
}
