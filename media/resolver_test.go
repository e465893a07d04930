package media

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tb "gopkg.in/telebot.v3"

	"github.com/graynk/magikbot/tools"
)

const cdnLink = "https://cdn.discordapp.com/attachments/1/2/clip.mp4"

type fakeLocator struct {
	calls []string
	err   error
}

func (f *fakeLocator) FileURLByID(fileID string) (string, error) {
	f.calls = append(f.calls, fileID)
	if f.err != nil {
		return "", f.err
	}
	return "https://files.example/" + fileID, nil
}

func newTestResolver() (Resolver, *fakeLocator) {
	locator := &fakeLocator{}
	return NewResolver(locator, nil, 0), locator
}

func video(id string) *tb.Video {
	return &tb.Video{File: tb.File{FileID: id, FileSize: 1024}}
}

func TestResolveVideo_NothingFound(t *testing.T) {
	r, locator := newTestResolver()
	_, err := r.ResolveVideo(&tb.Message{Text: "/ffmpeg -vf hflip"})
	assert.ErrorIs(t, err, tools.NoFileErr)
	assert.Empty(t, locator.calls)
}

func TestResolveVideo_ReplyAttachmentBeatsOwnLink(t *testing.T) {
	r, _ := newTestResolver()
	m := &tb.Message{
		Text:    "/ffmpeg -an " + cdnLink,
		ReplyTo: &tb.Message{Video: video("replied"), Text: "look " + cdnLink},
	}
	source, err := r.ResolveVideo(m)
	require.NoError(t, err)
	assert.Equal(t, ReplyAttachment, source.Origin)
	assert.Equal(t, "https://files.example/replied", source.URL)
}

func TestResolveVideo_ReplyLinkBeatsOwnAttachment(t *testing.T) {
	r, _ := newTestResolver()
	m := &tb.Message{
		Video:   video("own"),
		ReplyTo: &tb.Message{Text: "look " + cdnLink},
	}
	source, err := r.ResolveVideo(m)
	require.NoError(t, err)
	assert.Equal(t, ReplyLink, source.Origin)
	assert.Equal(t, cdnLink, source.URL)
}

func TestResolveVideo_OwnAttachmentBeatsOwnLink(t *testing.T) {
	r, _ := newTestResolver()
	m := &tb.Message{Caption: "/ffmpeg " + cdnLink, Video: video("own")}
	source, err := r.ResolveVideo(m)
	require.NoError(t, err)
	assert.Equal(t, OwnAttachment, source.Origin)
}

func TestResolveVideo_OwnLink(t *testing.T) {
	r, _ := newTestResolver()
	m := &tb.Message{Text: "/ffmpeg -an " + cdnLink, ReplyTo: &tb.Message{Text: "no media here"}}
	source, err := r.ResolveVideo(m)
	require.NoError(t, err)
	assert.Equal(t, OwnLink, source.Origin)
	assert.Equal(t, cdnLink, source.URL)
}

func TestResolveVideo_HiddenTextLink(t *testing.T) {
	r, _ := newTestResolver()
	m := &tb.Message{
		Text:     "/ffmpeg this",
		Entities: []tb.MessageEntity{{Type: tb.EntityTextLink, Offset: 8, Length: 4, URL: cdnLink}},
	}
	source, err := r.ResolveVideo(m)
	require.NoError(t, err)
	assert.Equal(t, cdnLink, source.URL)
}

func TestResolveVideo_UnknownLinksAreIgnored(t *testing.T) {
	r, _ := newTestResolver()
	_, err := r.ResolveVideo(&tb.Message{Text: "/ffmpeg http://169.254.169.254/latest/meta-data"})
	assert.ErrorIs(t, err, tools.NoFileErr)
}

func TestResolveVideo_CustomPattern(t *testing.T) {
	r := NewResolver(&fakeLocator{}, regexp.MustCompile(`https://media\.example/\S+`), 0)
	source, err := r.ResolveVideo(&tb.Message{Text: "/ffmpeg https://media.example/a.webm"})
	require.NoError(t, err)
	assert.Equal(t, "https://media.example/a.webm", source.URL)
}

func TestResolveVideo_TooBig(t *testing.T) {
	r, locator := newTestResolver()
	m := &tb.Message{Video: &tb.Video{File: tb.File{FileID: "huge", FileSize: tools.MaxSizeMb + 1}}}
	_, err := r.ResolveVideo(m)
	assert.ErrorIs(t, err, tools.TooBigErr)
	assert.Empty(t, locator.calls)
}

func TestResolveVideo_LocatorFailure(t *testing.T) {
	locator := &fakeLocator{err: errors.New("telegram: file is temporarily unavailable (400)")}
	r := NewResolver(locator, nil, 0)
	_, err := r.ResolveVideo(&tb.Message{Video: video("gone")})
	assert.ErrorIs(t, err, tools.FailedToDownloadErr)
}

func TestResolveImage_IgnoresLinks(t *testing.T) {
	r, _ := newTestResolver()
	m := &tb.Message{Text: "/magik " + cdnLink, ReplyTo: &tb.Message{Text: cdnLink}}
	_, err := r.ResolveImage(m)
	assert.ErrorIs(t, err, tools.NoFileErr)
}

func TestResolveImage_ReplyFirst(t *testing.T) {
	r, _ := newTestResolver()
	m := &tb.Message{
		Photo:   &tb.Photo{File: tb.File{FileID: "own"}},
		ReplyTo: &tb.Message{Photo: &tb.Photo{File: tb.File{FileID: "replied"}}},
	}
	source, err := r.ResolveImage(m)
	require.NoError(t, err)
	assert.Equal(t, ReplyAttachment, source.Origin)
	assert.Equal(t, "https://files.example/replied", source.URL)
}

func TestResolveImage_SkipsNonImages(t *testing.T) {
	r, _ := newTestResolver()
	m := &tb.Message{
		Photo:   &tb.Photo{File: tb.File{FileID: "own"}},
		ReplyTo: &tb.Message{Video: video("replied")},
	}
	source, err := r.ResolveImage(m)
	require.NoError(t, err)
	assert.Equal(t, OwnAttachment, source.Origin)
}

func TestAttachment_IsImage(t *testing.T) {
	assert.True(t, JustGetTheMedia(&tb.Message{Photo: &tb.Photo{}}).IsImage())
	assert.True(t, JustGetTheMedia(&tb.Message{Sticker: &tb.Sticker{}}).IsImage())
	assert.False(t, JustGetTheMedia(&tb.Message{Sticker: &tb.Sticker{Animated: true}}).IsImage())
	assert.True(t, JustGetTheMedia(&tb.Message{Document: &tb.Document{MIME: "image/png"}}).IsImage())
	assert.False(t, JustGetTheMedia(&tb.Message{Document: &tb.Document{MIME: "application/pdf"}}).IsImage())
	assert.False(t, JustGetTheMedia(&tb.Message{Video: &tb.Video{}}).IsImage())
	assert.Nil(t, JustGetTheMedia(&tb.Message{Text: "hi"}))
	assert.Nil(t, JustGetTheMedia(nil))
}

func TestStripLinks(t *testing.T) {
	r, _ := newTestResolver()
	assert.Equal(t, "-an ", r.StripLinks("-an "+cdnLink))
	assert.Equal(t, " -vf hflip", r.StripLinks(cdnLink+" -vf hflip"))
	assert.Equal(t, "-an https://example.com/x.mp4", r.StripLinks("-an https://example.com/x.mp4"))
}
