// Command aulos-render renders a composition text file to a WAV file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/cwbudde/aulos-go/aulos"
	"github.com/cwbudde/aulos-go/parser"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

func main() {
	input := flag.String("input", "", "composition text file path (required)")
	output := flag.String("output", "output.wav", "output WAV file path")
	sampleRate := flag.Int("sample-rate", 48000, "render sample rate in Hz")
	stereo := flag.Bool("stereo", true, "render in stereo (false for mono)")
	loop := flag.Bool("loop", false, "render the composition's loop window repeatedly")
	duration := flag.Float64("duration", 10.0, "render duration in seconds when -loop is set")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Error: -input is required")
		os.Exit(1)
	}

	text, err := os.ReadFile(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %q: %v\n", *input, err)
		os.Exit(1)
	}

	comp, err := parser.Parse(text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing %q: %v\n", *input, err)
		os.Exit(1)
	}

	channels := aulos.Mono
	numChannels := 1
	if *stereo {
		channels = aulos.Stereo
		numChannels = 2
	}

	r, err := aulos.NewRenderer(comp, aulos.AudioFormat{SamplingRate: uint32(*sampleRate), Channels: channels}, *loop)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating renderer: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Rendering %q at %d Hz (%d ch, loop=%v) ...\n", *input, *sampleRate, numChannels, *loop)

	const blockFrames = 4096
	block := make([]float32, blockFrames*numChannels)
	samples := make([]float32, 0, blockFrames*numChannels)

	if *loop {
		totalFrames := int(*duration * float64(*sampleRate))
		for framesRendered := 0; framesRendered < totalFrames; {
			frames := blockFrames
			if framesRendered+frames > totalFrames {
				frames = totalFrames - framesRendered
			}
			produced := r.Render(block, uint32(frames))
			samples = append(samples, block[:int(produced)*numChannels]...)
			framesRendered += int(produced)
		}
	} else {
		for {
			produced := r.Render(block, blockFrames)
			samples = append(samples, block[:int(produced)*numChannels]...)
			if produced < blockFrames {
				break
			}
		}
	}

	file, err := os.Create(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	encoder := wav.NewEncoder(file, *sampleRate, 16, numChannels, 1)
	defer encoder.Close()

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  *sampleRate,
			NumChannels: numChannels,
		},
		Data:           samples,
		SourceBitDepth: 16,
	}

	if err := encoder.Write(buf); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing WAV file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully wrote %s (%d frames)\n", *output, len(samples)/numChannels)
}
