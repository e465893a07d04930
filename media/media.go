package media

import (
	"strings"

	tb "gopkg.in/telebot.v3"
)

type Type int

// why isn't this a separate type declared in the telebot?
const (
	AnimationType Type = iota
	AudioType
	DocumentType
	PhotoType
	StickerType
	VideoType
	VideoNoteType
	VoiceType
)

// Attachment is the file carried by a message, whatever its kind.
type Attachment struct {
	File *tb.File
	Type Type
	MIME string
	// Lottie and video stickers can't be decoded as images
	AnimatedSticker bool
}

func (a Attachment) IsImage() bool {
	switch a.Type {
	case PhotoType:
		return true
	case StickerType:
		return !a.AnimatedSticker
	case DocumentType:
		return strings.HasPrefix(a.MIME, "image/")
	}
	return false
}

// JustGetTheMedia returns nil when the message has nothing attached.
// there's a bug in telebot where media.MediaFile() does not check for Sticker.
func JustGetTheMedia(m *tb.Message) *Attachment {
	if m == nil {
		return nil
	}
	switch {
	case m.Photo != nil:
		return &Attachment{File: m.Photo.MediaFile(), Type: PhotoType, MIME: "image/jpeg"}
	case m.Animation != nil:
		return &Attachment{File: m.Animation.MediaFile(), Type: AnimationType, MIME: m.Animation.MIME}
	case m.Video != nil:
		return &Attachment{File: m.Video.MediaFile(), Type: VideoType, MIME: m.Video.MIME}
	case m.VideoNote != nil:
		return &Attachment{File: m.VideoNote.MediaFile(), Type: VideoNoteType, MIME: "video/mp4"}
	case m.Voice != nil:
		return &Attachment{File: m.Voice.MediaFile(), Type: VoiceType, MIME: m.Voice.MIME}
	case m.Audio != nil:
		return &Attachment{File: m.Audio.MediaFile(), Type: AudioType, MIME: m.Audio.MIME}
	case m.Sticker != nil:
		return &Attachment{
			File:            m.Sticker.MediaFile(),
			Type:            StickerType,
			MIME:            "image/webp",
			AnimatedSticker: m.Sticker.Animated || m.Sticker.Video,
		}
	case m.Document != nil:
		return &Attachment{File: m.Document.MediaFile(), Type: DocumentType, MIME: m.Document.MIME}
	}
	return nil
}
