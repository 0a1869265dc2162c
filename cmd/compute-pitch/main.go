// Command compute-pitch runs the streaming pitch tracker over raw
// little-endian int16 PCM read from stdin and writes one "pov\tpitch" line
// per frame to stdout.
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/Idlak/idlak/logging"
	"github.com/Idlak/idlak/pitch"
)

func main() {
	sampFreq := flag.Float64("samp-freq", 16000, "input sampling rate in Hz")
	minF0 := flag.Float64("min-f0", 50, "minimum pitch frequency in Hz")
	maxF0 := flag.Float64("max-f0", 400, "maximum pitch frequency in Hz")
	framesPerChunk := flag.Int("frames-per-chunk", 0, "batch chunk size in frames (0 = single call)")
	naiveSearch := flag.Bool("naive-search", false, "use the O(n^2) exact Viterbi search instead of branch-and-bound")
	flag.Parse()

	opts := pitch.DefaultExtractionOptions()
	opts.SampFreq = *sampFreq
	opts.MinF0 = *minF0
	opts.MaxF0 = *maxF0
	opts.FramesPerChunk = *framesPerChunk

	wave, err := readPCM16(os.Stdin)
	if err != nil {
		logging.Fatal(err, "failed to read PCM input")
	}

	rows, err := pitch.ComputePitch(opts, wave, *naiveSearch)
	if err != nil {
		logging.Fatal(err, "pitch extraction failed")
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for _, row := range rows {
		fmt.Fprintf(w, "%f\t%f\n", row[0], row[1])
	}
}

// readPCM16 decodes a stream of little-endian 16-bit signed PCM samples
// into normalised float64s in [-1, 1].
func readPCM16(r io.Reader) ([]float64, error) {
	br := bufio.NewReader(r)
	var wave []float64
	buf := make([]byte, 2)
	for {
		if _, err := io.ReadFull(br, buf); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, err
		}
		sample := int16(binary.LittleEndian.Uint16(buf))
		wave = append(wave, float64(sample)/32768.0)
	}
	return wave, nil
}
