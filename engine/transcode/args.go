// Package transcode runs the external transcoder and assembles its argument
// list from filter output, bitrate and seek position.
package transcode

import (
	"fmt"
	"strings"

	"github.com/rae1st/oscillate/engine"
)

// Stream-side defaults applied to every session. Reconnect flags keep
// remote HTTP sources alive across short network drops; the output side is
// fixed 48 kHz signed 16-bit stereo on stdout.
const (
	defaultBeforeArgs = "-reconnect 1 -reconnect_streamed 1 -reconnect_delay_max 5 -nostdin"
	defaultTailArgs   = "-f s16le -ar 48000 -ac 2 pipe:1"
)

// Options are the per-session knobs on top of the filter-derived arguments.
type Options struct {
	// Bitrate in bits per second. Zero falls back to 256 kbit/s.
	Bitrate int
	// SeekSeconds starts playback at an offset into the source.
	SeekSeconds float64
	// Volume is a linear gain multiplier; 1.0 leaves the signal untouched.
	Volume float64
}

// BuildArgs assembles the full transcoder argument vector for one session.
// Layout: input-side flags, seek, input, output-side flags, filter graph,
// fixed output format.
func BuildArgs(source string, args engine.TranscodeArgs, opt Options) []string {
	bitrate := opt.Bitrate
	if bitrate <= 0 {
		bitrate = 256000
	}

	argv := strings.Fields(defaultBeforeArgs)
	if args.Before != "" {
		argv = append(argv, strings.Fields(args.Before)...)
	}
	if opt.SeekSeconds > 0 {
		argv = append(argv, "-ss", fmt.Sprintf("%.3f", opt.SeekSeconds))
	}
	argv = append(argv, "-i", source)

	argv = append(argv, "-vn", "-b:a", fmt.Sprintf("%dk", bitrate/1000), "-threads", "1")
	if args.Options != "" {
		argv = append(argv, strings.Fields(args.Options)...)
	}

	if graph := buildGraph(args.FilterGraph, opt.Volume); graph != "" {
		argv = append(argv, "-af", graph)
	}

	return append(argv, strings.Fields(defaultTailArgs)...)
}

// buildGraph appends a volume stage to the filter graph when the gain
// deviates from unity.
func buildGraph(graph string, volume float64) string {
	if volume > 0 && fmt.Sprintf("%.2f", volume) != "1.00" {
		stage := fmt.Sprintf("volume=%.2f", volume)
		if graph == "" {
			return stage
		}
		return graph + "," + stage
	}
	return graph
}
