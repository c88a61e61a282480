package wave

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Wav is a decoded PCM file. Only the first channel is kept, scaled to [-1,1].
type Wav struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	Samples       []float64
}

// ReadWav decodes an 8 or 16 bit PCM file.
// byte info from https://docs.fileformat.com/audio/wav/
func ReadWav(path string) (*Wav, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading wav: %w", err)
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errors.New("not a RIFF/WAVE file")
	}

	w := &Wav{}
	var pcm []byte
	haveFmt := false
	for ptr := 12; ptr+8 <= len(data); {
		id := string(data[ptr : ptr+4])
		size := int(binary.LittleEndian.Uint32(data[ptr+4 : ptr+8]))
		body := data[ptr+8 : min(ptr+8+size, len(data))]

		switch id {
		case "fmt ":
			if len(body) < 16 {
				return nil, errors.New("short fmt chunk")
			}
			format := binary.LittleEndian.Uint16(body[0:2]) // 1 = PCM
			if format != 1 {
				return nil, fmt.Errorf("unsupported wav format %d, only PCM is read", format)
			}
			w.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			w.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			w.BitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			haveFmt = true
		case "data":
			pcm = body
		}
		// chunks are word aligned
		ptr += 8 + size + size%2
	}
	if !haveFmt || pcm == nil {
		return nil, errors.New("wav is missing a fmt or data chunk")
	}
	if w.Channels < 1 || w.SampleRate < 1 {
		return nil, fmt.Errorf("invalid wav header: %d channels at %d Hz", w.Channels, w.SampleRate)
	}

	samples, err := decode(pcm, w.BitsPerSample, w.Channels)
	if err != nil {
		return nil, err
	}
	w.Samples = samples
	return w, nil
}

func decode(pcm []byte, bits, channels int) ([]float64, error) {
	if bits != 8 && bits != 16 {
		return nil, fmt.Errorf("unsupported bit depth %d", bits)
	}
	width := bits / 8
	stride := width * channels
	n := len(pcm) / stride
	out := make([]float64, n)

	switch bits {
	case 8:
		for i := range out {
			out[i] = (float64(pcm[i*stride]) - 128) / 128
		}
	case 16:
		for i := range out {
			v := int16(binary.LittleEndian.Uint16(pcm[i*stride:]))
			out[i] = float64(v) / 32768
		}
	}
	return out, nil
}

// Frames cuts the samples into consecutive chunks of one video frame each.
// A trailing partial chunk is dropped.
func (w *Wav) Frames(fps int) [][]float64 {
	perFrame := max(1, w.SampleRate/max(1, fps))
	n := len(w.Samples) / perFrame
	out := make([][]float64, n)
	for i := range out {
		out[i] = w.Samples[i*perFrame : (i+1)*perFrame]
	}
	return out
}

// BucketsFromSample folds the magnitude spectrum of sample, DC excluded, into
// numBuckets bands holding the peak magnitude of each band.
func BucketsFromSample(sample []float64, numBuckets int) []float64 {
	out := make([]float64, numBuckets)
	if len(sample) < 4 || numBuckets < 1 {
		return out
	}

	transformed := fft.FFTReal(sample)
	half := transformed[1 : len(transformed)/2]
	mags := make([]float64, len(half))
	for j, c := range half {
		mags[j] = math.Hypot(real(c), imag(c))
	}

	bucketWidth := max(1, len(mags)/numBuckets)
	for x := range out {
		ind := min(x*bucketWidth, len(mags))
		end := min(ind+bucketWidth, len(mags))
		if ind >= end {
			continue
		}
		out[x] = floats.Max(mags[ind:end])
	}
	return out
}

const envelopeBuckets = 16

// Envelope returns one value in [0,1] per video frame: the spectral energy of
// the matching audio chunk relative to the quietest and loudest chunks.
// Frames past the end of the track are silent.
func Envelope(path string, fps, frames int) ([]float64, error) {
	w, err := ReadWav(path)
	if err != nil {
		return nil, err
	}
	chunks := w.Frames(fps)

	env := make([]float64, frames)
	for i := range env {
		if i >= len(chunks) {
			break
		}
		env[i] = floats.Sum(BucketsFromSample(chunks[i], envelopeBuckets))
	}
	if frames == 0 {
		return env, nil
	}

	lo, hi := floats.Min(env), floats.Max(env)
	if hi == lo {
		for i := range env {
			env[i] = 0
		}
		return env, nil
	}
	floats.AddConst(-lo, env)
	floats.Scale(1/(hi-lo), env)
	return env, nil
}

// Summary reports the mean and spread of an envelope.
func Summary(env []float64) (mean, std float64) {
	if len(env) < 2 {
		if len(env) == 1 {
			return env[0], 0
		}
		return 0, 0
	}
	return stat.MeanStdDev(env, nil)
}
