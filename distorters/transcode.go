package distorters

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/graynk/magikbot/tools"
)

const DefaultTranscodeTimeout = 60 * time.Second

// Transcoder runs user supplied ffmpeg arguments against a downloaded file.
type Transcoder struct {
	ffmpegPath string
	workDir    string
	timeout    time.Duration
}

func NewTranscoder(ffmpegPath, workDir string, timeout time.Duration) Transcoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = DefaultTranscodeTimeout
	}
	return Transcoder{
		ffmpegPath: ffmpegPath,
		workDir:    workDir,
		timeout:    timeout,
	}
}

// Job is one invocation. Its scratch files are keyed by ID, never by user,
// so two requests from the same person can't step on each other.
type Job struct {
	ID     string
	Input  string
	Output string
	Args   Args
}

// NewJob vets raw arguments and picks file names. Nothing touches the disk yet.
func (t Transcoder) NewJob(raw string) (*Job, error) {
	args, err := ParseArgs(raw)
	if err != nil {
		return nil, err
	}
	id := uuid.New().String()
	return &Job{
		ID:     id,
		Input:  filepath.Join(t.workDir, "input_"+id),
		Output: filepath.Join(t.workDir, "output_"+id+"."+args.OutputExt),
		Args:   args,
	}, nil
}

// Cleanup removes both scratch files, whatever state they are in.
func (j *Job) Cleanup() {
	os.Remove(j.Input)
	os.Remove(j.Output)
}

func (t Transcoder) command(job *Job) []string {
	args := []string{"-hide_banner", "-nostdin", "-y", "-i", job.Input}
	args = append(args, job.Args.Options...)
	return append(args, job.Output)
}

// Run waits for ffmpeg at most the configured timeout. Success is judged by
// the output file, not the exit code: a *tools.ToolError with ffmpeg's stderr
// comes back whenever there is nothing to send.
func (t Transcoder) Run(ctx context.Context, job *Job) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	_, errbuf, err := runCommand(ctx, nil, t.ffmpegPath, t.command(job)...)
	if ctx.Err() == context.DeadlineExceeded {
		return &tools.ToolError{Diagnostics: errbuf.String(), TimedOut: true, Err: err}
	}
	if info, statErr := os.Stat(job.Output); statErr == nil && info.Size() > 0 {
		return nil
	}
	return &tools.ToolError{Diagnostics: errbuf.String(), Err: err}
}
