package distorters

import (
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/graynk/magikbot/tools"
)

const (
	DefaultOutputExt = "mp4"
	maxArguments     = 64
)

// Args is user input that survived vetting.
type Args struct {
	Options   []string
	OutputExt string // without the dot
}

// ffmpeg output options users may pass, mapped to whether they take a value.
// Stream specifiers are stripped before lookup, so "-c:v" is "c".
var allowedOptions = map[string]bool{
	"vf":             true,
	"af":             true,
	"filter":         true,
	"filter_complex": true,
	"c":              true,
	"codec":          true,
	"vcodec":         true,
	"acodec":         true,
	"b":              true,
	"maxrate":        true,
	"bufsize":        true,
	"crf":            true,
	"preset":         true,
	"tune":           true,
	"profile":        true,
	"level":          true,
	"r":              true,
	"s":              true,
	"aspect":         true,
	"pix_fmt":        true,
	"ss":             true,
	"t":              true,
	"to":             true,
	"frames":         true,
	"vframes":        true,
	"aframes":        true,
	"ar":             true,
	"ac":             true,
	"q":              true,
	"qscale":         true,
	"g":              true,
	"map":            true,
	"movflags":       true,
	"loop":           true,
	"fps_mode":       true,
	"vsync":          true,
	"f":              true,
	"an":             false,
	"vn":             false,
	"sn":             false,
	"dn":             false,
	"shortest":       false,
}

var filterOptions = map[string]bool{
	"vf":             true,
	"af":             true,
	"filter":         true,
	"filter_complex": true,
}

// Muxers that only ever write the one output file we hand them.
var allowedFormats = map[string]bool{
	"mp4":      true,
	"mov":      true,
	"webm":     true,
	"matroska": true,
	"gif":      true,
	"apng":     true,
	"mp3":      true,
	"ogg":      true,
	"opus":     true,
	"wav":      true,
	"flac":     true,
	"null":     true,
}

var outputExtensions = map[string]bool{
	"mp4":  true,
	"mov":  true,
	"webm": true,
	"mkv":  true,
	"gif":  true,
	"png":  true,
	"apng": true,
	"mp3":  true,
	"ogg":  true,
	"opus": true,
	"wav":  true,
	"flac": true,
}

// Filters without options that name files, so a graph built from them
// never reads anything but its inputs.
var allowedFilters = map[string]bool{
	// video
	"scale":             true,
	"crop":              true,
	"pad":               true,
	"hflip":             true,
	"vflip":             true,
	"transpose":         true,
	"rotate":            true,
	"setpts":            true,
	"setsar":            true,
	"setdar":            true,
	"fps":               true,
	"framestep":         true,
	"format":            true,
	"fade":              true,
	"reverse":           true,
	"loop":              true,
	"trim":              true,
	"select":            true,
	"split":             true,
	"overlay":           true,
	"hstack":            true,
	"vstack":            true,
	"blend":             true,
	"tblend":            true,
	"tmix":              true,
	"lagfun":            true,
	"minterpolate":      true,
	"zoompan":           true,
	"geq":               true,
	"lutrgb":            true,
	"lutyuv":            true,
	"negate":            true,
	"hue":               true,
	"eq":                true,
	"colorchannelmixer": true,
	"colorbalance":      true,
	"edgedetect":        true,
	"boxblur":           true,
	"gblur":             true,
	"unsharp":           true,
	"noise":             true,
	"pixelize":          true,
	"vignette":          true,
	"lenscorrection":    true,
	"chromashift":       true,
	"rgbashift":         true,
	"amplify":           true,
	"palettegen":        true,
	"paletteuse":        true,
	"null":              true,
	"copy":              true,
	// audio
	"volume":       true,
	"atempo":       true,
	"asetrate":     true,
	"aresample":    true,
	"areverse":     true,
	"afade":        true,
	"atrim":        true,
	"asetpts":      true,
	"aloop":        true,
	"apad":         true,
	"adelay":       true,
	"aecho":        true,
	"chorus":       true,
	"flanger":      true,
	"aphaser":      true,
	"vibrato":      true,
	"tremolo":      true,
	"acrusher":     true,
	"bass":         true,
	"treble":       true,
	"equalizer":    true,
	"highpass":     true,
	"lowpass":      true,
	"bandpass":     true,
	"compand":      true,
	"dynaudnorm":   true,
	"loudnorm":     true,
	"asplit":       true,
	"amix":         true,
	"amerge":       true,
	"anull":        true,
	"acopy":        true,
	"aselect":      true,
	"aformat":      true,
	"showwaves":    true,
	"showspectrum": true,
}

// ParseArgs splits raw like a shell would (quotes kept, no expansion) and
// checks every token against the allow-lists.
func ParseArgs(raw string) (Args, error) {
	parser := shellwords.NewParser()
	parser.ParseEnv = false
	parser.ParseBacktick = false
	tokens, err := parser.Parse(raw)
	if err != nil {
		return Args{}, tools.BadArgumentsErr
	}
	// the parser stops quietly at unquoted ; & | < >
	if runes := []rune(raw); parser.Position >= 0 && parser.Position < len(runes) {
		return Args{}, &tools.ArgumentError{Arg: string(runes[parser.Position]), Reason: "shell operators are not allowed"}
	}
	if len(tokens) > maxArguments {
		return Args{}, &tools.ArgumentError{Arg: tokens[maxArguments], Reason: "too many arguments"}
	}

	args := Args{Options: make([]string, 0, len(tokens))}
	for i := 0; i < len(tokens); i++ {
		token := tokens[i]
		if !isOption(token) {
			ext, err := outputExtension(token)
			if err != nil {
				return Args{}, err
			}
			if args.OutputExt != "" {
				return Args{}, &tools.ArgumentError{Arg: token, Reason: "only one output file is allowed"}
			}
			args.OutputExt = ext
			continue
		}

		name := optionName(token)
		takesValue, ok := allowedOptions[name]
		if !ok {
			return Args{}, &tools.ArgumentError{Arg: token, Reason: "unsupported option"}
		}
		args.Options = append(args.Options, token)
		if !takesValue {
			continue
		}
		if i+1 >= len(tokens) {
			return Args{}, &tools.ArgumentError{Arg: token, Reason: "missing value"}
		}
		i++
		value := tokens[i]
		if err := checkValue(name, value); err != nil {
			return Args{}, err
		}
		args.Options = append(args.Options, value)
	}
	if args.OutputExt == "" {
		args.OutputExt = DefaultOutputExt
	}
	return args, nil
}

func isOption(token string) bool {
	return len(token) > 1 && token[0] == '-'
}

func optionName(token string) string {
	name := strings.TrimPrefix(token, "-")
	if idx := strings.IndexByte(name, ':'); idx != -1 {
		name = name[:idx]
	}
	return name
}

func outputExtension(token string) (string, error) {
	if strings.ContainsAny(token, `/\`) || strings.HasPrefix(token, ".") {
		return "", &tools.ArgumentError{Arg: token, Reason: "output must be a plain file name"}
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(token), "."))
	if !outputExtensions[ext] {
		return "", &tools.ArgumentError{Arg: token, Reason: "unknown output format"}
	}
	return ext, nil
}

func checkValue(option, value string) error {
	if filterOptions[option] {
		return checkFilterGraph(value)
	}
	if strings.ContainsAny(value, `/\`) || strings.Contains(value, "..") {
		return &tools.ArgumentError{Arg: value, Reason: "paths and urls are not allowed"}
	}
	if option == "f" && !allowedFormats[strings.ToLower(value)] {
		return &tools.ArgumentError{Arg: value, Reason: "unsupported format"}
	}
	return nil
}

// checkFilterGraph resolves escapes and quotes the way ffmpeg does before
// looking at a graph like "[0:v]scale=320:-1,hflip[out]", so "mo\vie" is
// still movie. Every filter has to be on the allow-list.
func checkFilterGraph(graph string) error {
	for _, filter := range splitFilters(graph) {
		lower := strings.ToLower(filter)
		if strings.Contains(lower, "://") || strings.Contains(lower, "..") ||
			strings.Contains(lower, "file") || strings.Contains(lower, "path") {
			return &tools.ArgumentError{Arg: graph, Reason: "filters can't reference files"}
		}
		name := filterName(filter)
		if name == "" {
			continue
		}
		if !allowedFilters[name] {
			return &tools.ArgumentError{Arg: name, Reason: "filter is not allowed"}
		}
	}
	return nil
}

// splitFilters splits on unescaped, unquoted "," and ";" and returns every
// filter with backslash escapes and single quotes removed.
func splitFilters(graph string) []string {
	var filters []string
	var current strings.Builder
	quoted, escaped := false, false
	for _, r := range graph {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '\'':
			quoted = !quoted
		case !quoted && (r == ',' || r == ';'):
			filters = append(filters, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(filters, current.String())
}

// filterName drops the link labels in front and returns what comes before
// the arguments or the instance name.
func filterName(filter string) string {
	filter = strings.TrimSpace(filter)
	for strings.HasPrefix(filter, "[") {
		end := strings.IndexByte(filter, ']')
		if end == -1 {
			break
		}
		filter = strings.TrimSpace(filter[end+1:])
	}
	if idx := strings.IndexAny(filter, "=@["); idx != -1 {
		filter = filter[:idx]
	}
	return strings.TrimSpace(filter)
}
