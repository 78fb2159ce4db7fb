package feed

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/ppiankov/airwatch/internal/model"
)

// ParseChannelPage extracts the posts of a Telegram channel web preview.
// Posts of other channels (forwards rendered inline) are ignored; posts
// without text are kept so their IDs still advance the cursor.
func ParseChannelPage(feed string, r io.Reader) ([]model.RawMessage, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	var msgs []model.RawMessage
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "tgme_widget_message") {
			if msg, ok := parsePost(feed, n); ok {
				msgs = append(msgs, msg)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return msgs, nil
}

func parsePost(feed string, n *html.Node) (model.RawMessage, bool) {
	channel, idText, ok := strings.Cut(attr(n, "data-post"), "/")
	if !ok || !strings.EqualFold(channel, feed) {
		return model.RawMessage{}, false
	}
	id, err := strconv.ParseInt(idText, 10, 64)
	if err != nil || id <= 0 {
		return model.RawMessage{}, false
	}

	msg := model.RawMessage{Feed: feed, ID: id}

	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.ElementNode {
			switch {
			case hasClass(c, "tgme_widget_message_reply"):
				return
			case hasClass(c, "tgme_widget_message_text") && msg.Text == "":
				msg.Text = strings.TrimSpace(nodeText(c))
				return
			case hasClass(c, "tgme_widget_message_photo_wrap") && msg.MediaRef == "":
				msg.MediaRef = backgroundImage(attr(c, "style"))
			case c.Data == "time" && msg.ReceivedAt.IsZero():
				if ts, err := time.Parse(time.RFC3339, attr(c, "datetime")); err == nil {
					msg.ReceivedAt = ts.UTC()
				}
			}
		}
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			walk(cc)
		}
	}
	walk(n)

	return msg, true
}

// nodeText renders the visible text of n, turning <br> into line breaks
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
		case html.ElementNode:
			switch c.Data {
			case "br":
				b.WriteByte('\n')
			case "script", "style":
				return
			}
		}
		for cc := c.FirstChild; cc != nil; cc = cc.NextSibling {
			walk(cc)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// backgroundImage pulls the URL out of "background-image:url('...')"
func backgroundImage(style string) string {
	_, rest, ok := strings.Cut(style, "background-image:url(")
	if !ok {
		return ""
	}
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return ""
	}
	return strings.Trim(rest[:end], `'"`)
}
