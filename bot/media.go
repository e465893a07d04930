package bot

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	tb "gopkg.in/telebot.v3"

	"github.com/graynk/magikbot/distorters"
	"github.com/graynk/magikbot/media"
	"github.com/graynk/magikbot/tools"
)

const (
	startMessage = `Send me a command and I'll mess with your media.

/magik - reply to an image (or attach one) to get it liquid rescaled
/ffmpeg <args> - reply to a video, attach one or paste a link, and I'll run ffmpeg on it. Admins only`
	transcodeCaption = "Command executed successfully."
	magikCaption     = "Here's your magik image!"
	// telegram won't take bigger photos, those go out as documents
	maxPhotoSize  = 10_000_000
	maxPhotoSides = 10_000
	maxPhotoRatio = 20
)

func (d *magikBot) HandleStart(c tb.Context) error {
	return d.SendMessageWithRepeater(c, startMessage)
}

// HandleTranscode resolves the source before touching the disk, so a
// message without media costs nothing.
func (d *magikBot) HandleTranscode(c tb.Context) error {
	m := c.Message()
	source, err := d.resolver.ResolveVideo(m)
	if errors.Is(err, tools.NoFileErr) {
		return tools.NoVideoErr
	}
	if err != nil {
		return err
	}
	payload := commandPayload(m)
	if source.Origin == media.OwnLink {
		payload = d.resolver.StripLinks(payload)
	}
	job, err := d.transcoder.NewJob(payload)
	if err != nil {
		return err
	}
	defer job.Cleanup()

	logger := d.logger.With("job", job.ID, "origin", source.Origin.String(), "chat", chatID(c))
	_ = c.Notify(tb.UploadingVideo)
	ctx := d.ctx
	if err := d.fetcher.FetchToFile(ctx, source.URL, job.Input); err != nil {
		return err
	}
	logger.Debugw("running ffmpeg", "args", job.Args.Options)
	if err := d.transcoder.Run(ctx, job); err != nil {
		return err
	}
	return d.SendMessageWithRepeater(c, transcodeResult(job.Output))
}

func transcodeResult(output string) tb.Sendable {
	file := tb.FromDisk(output)
	ext := strings.ToLower(filepath.Ext(output))
	name := "output" + ext
	switch ext {
	case ".mp4":
		return &tb.Video{File: file, FileName: name, Caption: transcodeCaption}
	case ".gif":
		return &tb.Animation{File: file, FileName: name, Caption: transcodeCaption}
	}
	return &tb.Document{File: file, FileName: name, Caption: transcodeCaption}
}

// HandleMagik never writes the image to disk.
func (d *magikBot) HandleMagik(c tb.Context) error {
	source, err := d.resolver.ResolveImage(c.Message())
	if errors.Is(err, tools.NoFileErr) {
		return tools.NoImageErr
	}
	if err != nil {
		return err
	}
	_ = c.Notify(tb.UploadingPhoto)
	ctx := d.ctx
	data, err := d.fetcher.Fetch(ctx, source.URL)
	if err != nil {
		return err
	}
	warped, err := d.magik.Distort(ctx, data)
	if err != nil {
		return err
	}
	return d.sendWithRepeater(c, func() interface{} {
		return magikResult(warped)
	})
}

func magikResult(warped *distorters.Warped) tb.Sendable {
	file := tb.FromReader(bytes.NewReader(warped.PNG))
	width, height := warped.Size.X, warped.Size.Y
	if len(warped.PNG) <= maxPhotoSize && width+height <= maxPhotoSides &&
		width <= height*maxPhotoRatio && height <= width*maxPhotoRatio {
		return &tb.Photo{File: file, Caption: magikCaption}
	}
	return &tb.Document{File: file, FileName: "magik.png", Caption: magikCaption}
}
