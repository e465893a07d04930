package tools

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// MaxSizeMb is the bot API download cap, anything bigger can't be fetched anyway
	MaxSizeMb       = 20_000_000
	NotEnoughRights = "The bot does not have enough rights to send media to your chat"
	Failed          = "An error occurred, try again later"
	diagnosticLimit = 3000
)

var NoFileErr = errors.New("no file found")
var NoVideoErr = errors.New("Please provide a video attachment, link, or reply to a video/link.")
var NoImageErr = errors.New("Please upload an image or reply to a message with an image.")
var PermissionErr = errors.New("You don't have permission to use this command.")
var TooBigErr = errors.New("Senpai, it's too big..")
var FailedToDownloadErr = errors.New("Failed to download the file.")
var DecodeErr = errors.New("Couldn't read that image.")
var BadArgumentsErr = errors.New("Couldn't parse the arguments, check your quotes.")

// DownloadError hides the URL on purpose: bot API file links carry the token.
type DownloadError struct {
	Status int
	Err    error
}

func (e *DownloadError) Error() string {
	if e.Err != nil {
		return "download failed: " + e.Err.Error()
	}
	return "download failed with status " + strconv.Itoa(e.Status)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

func (e *DownloadError) Is(target error) bool {
	return target == FailedToDownloadErr
}

// ArgumentError is returned for a tool argument that is not on the allow-list.
type ArgumentError struct {
	Arg    string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("Argument %q is not allowed: %s", e.Arg, e.Reason)
}

// ToolError carries whatever the external tool printed before it failed.
type ToolError struct {
	Diagnostics string
	TimedOut    bool
	Err         error
}

func (e *ToolError) Error() string {
	if e.TimedOut {
		return "command timed out"
	}
	if e.Err != nil {
		return "command failed: " + e.Err.Error()
	}
	return "command produced no output"
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return FormatRateLimitResponse(e.Wait)
}

var friendly = []error{
	NoVideoErr,
	NoImageErr,
	PermissionErr,
	TooBigErr,
	FailedToDownloadErr,
	DecodeErr,
	BadArgumentsErr,
}

// GetUserFriendlyErr turns any error into the HTML text sent back to the chat.
// The second value is false when the error is unexpected and worth logging.
func GetUserFriendlyErr(err error) (string, bool) {
	var toolErr *ToolError
	var argErr *ArgumentError
	var rateErr *RateLimitError
	switch {
	case errors.As(err, &toolErr):
		return formatToolError(toolErr), true
	case errors.As(err, &argErr):
		return html.EscapeString(argErr.Error()), true
	case errors.As(err, &rateErr):
		return html.EscapeString(rateErr.Error()), true
	}
	for _, known := range friendly {
		if errors.Is(err, known) {
			return known.Error(), true
		}
	}
	return Failed, false
}

func formatToolError(err *ToolError) string {
	header := "Error executing command:"
	if err.TimedOut {
		header = "Command timed out."
	}
	diagnostics := strings.TrimSpace(err.Diagnostics)
	if diagnostics == "" {
		return header
	}
	// ffmpeg puts the actual reason at the very end
	if len(diagnostics) > diagnosticLimit {
		diagnostics = "..." + diagnostics[len(diagnostics)-diagnosticLimit:]
	}
	return fmt.Sprintf("%s\n<pre>%s</pre>", header, html.EscapeString(diagnostics))
}

// Outcome is a short label of the error kind, used for stats and logs.
func Outcome(err error) string {
	var toolErr *ToolError
	var argErr *ArgumentError
	var rateErr *RateLimitError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &toolErr):
		if toolErr.TimedOut {
			return "timeout"
		}
		return "tool_failure"
	case errors.As(err, &argErr), errors.Is(err, BadArgumentsErr):
		return "forbidden_argument"
	case errors.As(err, &rateErr):
		return "rate_limited"
	case errors.Is(err, PermissionErr):
		return "permission_denied"
	case errors.Is(err, NoVideoErr), errors.Is(err, NoImageErr), errors.Is(err, NoFileErr):
		return "not_found"
	case errors.Is(err, TooBigErr):
		return "too_big"
	case errors.Is(err, FailedToDownloadErr):
		return "download_failed"
	case errors.Is(err, DecodeErr):
		return "decode_failure"
	}
	return "unexpected"
}

func ExtractPossibleTimeout(err error) (int, error) {
	// format: "telegram: retry after x (429)"
	errorString := err.Error()
	if strings.Contains(errorString, "kicked") {
		return 0, err
	}
	after := "after "
	retryAfterStringEnd := strings.LastIndex(errorString, after)
	if retryAfterStringEnd == -1 {
		return 0, err
	}
	timeoutEnd := strings.LastIndex(errorString, " (")
	if timeoutEnd == -1 || timeoutEnd < retryAfterStringEnd {
		timeoutEnd = len(errorString)
	}
	return strconv.Atoi(errorString[retryAfterStringEnd+len(after) : timeoutEnd])
}

func FormatRateLimitResponse(wait time.Duration) string {
	return fmt.Sprintf("Please, not so often. Try again in %d seconds", int64(wait.Seconds()))
}
