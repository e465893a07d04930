package media

import (
	"regexp"

	"github.com/pkg/errors"
	tb "gopkg.in/telebot.v3"

	"github.com/graynk/magikbot/tools"
)

// DefaultLinkPattern matches CDN attachment links pasted into chat.
const DefaultLinkPattern = `https?://cdn\.discordapp\.com/attachments/\S+`

type Origin int

const (
	ReplyAttachment Origin = iota
	ReplyLink
	OwnAttachment
	OwnLink
)

func (o Origin) String() string {
	switch o {
	case ReplyAttachment:
		return "reply attachment"
	case ReplyLink:
		return "reply link"
	case OwnAttachment:
		return "attachment"
	case OwnLink:
		return "link"
	}
	return "unknown"
}

// Source is where the media for one command lives.
type Source struct {
	URL    string
	Origin Origin
	Type   Type
}

// FileLocator turns a file id into a downloadable URL. *tb.Bot is one.
type FileLocator interface {
	FileURLByID(fileID string) (string, error)
}

type Resolver struct {
	locator     FileLocator
	linkPattern *regexp.Regexp
	maxSize     int64
}

func NewResolver(locator FileLocator, linkPattern *regexp.Regexp, maxSize int64) Resolver {
	if linkPattern == nil {
		linkPattern = regexp.MustCompile(DefaultLinkPattern)
	}
	if maxSize <= 0 {
		maxSize = tools.MaxSizeMb
	}
	return Resolver{locator: locator, linkPattern: linkPattern, maxSize: maxSize}
}

// ResolveVideo looks at the replied-to attachment, the replied-to link,
// the own attachment and the own link, in that order.
func (r Resolver) ResolveVideo(m *tb.Message) (Source, error) {
	if reply := m.ReplyTo; reply != nil {
		if attachment := JustGetTheMedia(reply); attachment != nil {
			return r.fromAttachment(attachment, ReplyAttachment)
		}
		if link := r.FindLink(reply); link != "" {
			return Source{URL: link, Origin: ReplyLink, Type: DocumentType}, nil
		}
	}
	if attachment := JustGetTheMedia(m); attachment != nil {
		return r.fromAttachment(attachment, OwnAttachment)
	}
	if link := r.FindLink(m); link != "" {
		return Source{URL: link, Origin: OwnLink, Type: DocumentType}, nil
	}
	return Source{}, tools.NoFileErr
}

// ResolveImage only accepts attachments, links are not followed here.
func (r Resolver) ResolveImage(m *tb.Message) (Source, error) {
	if attachment := JustGetTheMedia(m.ReplyTo); attachment != nil && attachment.IsImage() {
		return r.fromAttachment(attachment, ReplyAttachment)
	}
	if attachment := JustGetTheMedia(m); attachment != nil && attachment.IsImage() {
		return r.fromAttachment(attachment, OwnAttachment)
	}
	return Source{}, tools.NoFileErr
}

// FindLink returns the first link in the text or caption that matches the
// pattern, falling back to hidden text_link targets.
func (r Resolver) FindLink(m *tb.Message) string {
	text, entities := m.Text, m.Entities
	if text == "" {
		text, entities = m.Caption, m.CaptionEntities
	}
	if link := r.linkPattern.FindString(text); link != "" {
		return link
	}
	for _, entity := range entities {
		if entity.Type != tb.EntityTextLink {
			continue
		}
		if link := r.linkPattern.FindString(entity.URL); link != "" {
			return link
		}
	}
	return ""
}

// StripLinks removes everything the link pattern matches, so a link that was
// picked as the source doesn't end up among the command's arguments.
func (r Resolver) StripLinks(text string) string {
	return r.linkPattern.ReplaceAllString(text, "")
}

func (r Resolver) fromAttachment(attachment *Attachment, origin Origin) (Source, error) {
	if attachment.File == nil || attachment.File.FileID == "" {
		return Source{}, tools.NoFileErr
	}
	if int64(attachment.File.FileSize) > r.maxSize {
		return Source{}, tools.TooBigErr
	}
	url, err := r.locator.FileURLByID(attachment.File.FileID)
	if err != nil {
		return Source{}, &tools.DownloadError{Err: errors.WithStack(err)}
	}
	return Source{URL: url, Origin: origin, Type: attachment.Type}, nil
}
