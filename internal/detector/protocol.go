package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ayusman/handhud/internal/gesture"
)

// maxFrameBytes caps a single JPEG payload. A 640x480 frame is far below it.
const maxFrameBytes = 16 << 20

// errMalformedHand marks a hand record that does not carry a full,
// finite landmark set.
var errMalformedHand = errors.New("malformed hand record")

// writeFrame sends one length-prefixed (4-byte big-endian) JPEG payload.
func writeFrame(w io.Writer, jpeg []byte) error {
	if len(jpeg) == 0 {
		return errors.New("empty frame")
	}
	if len(jpeg) > maxFrameBytes {
		return fmt.Errorf("frame too large: %d bytes", len(jpeg))
	}

	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(jpeg)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(jpeg); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

type serviceResponse struct {
	Hands []jsonHand `json:"hands"`
	Error string     `json:"error,omitempty"`
}

// readHands reads one response line. Malformed hand records are dropped;
// a line that is not valid JSON is an error.
func readHands(r *bufio.Reader) ([]HandLandmarks, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp serviceResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("mediapipe service: %s", resp.Error)
	}

	hands := make([]HandLandmarks, 0, len(resp.Hands))
	for _, h := range resp.Hands {
		lm, err := h.toHandLandmarks()
		if err != nil {
			continue
		}
		hands = append(hands, lm)
	}
	return hands, nil
}

type jsonHand struct {
	Points     []jsonPoint   `json:"points"`
	Handedness string        `json:"handedness"`
	Score      float64       `json:"score"`
	Gestures   []jsonGesture `json:"gestures"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type jsonGesture struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// toHandLandmarks rejects records without exactly NumLandmarks finite
// points. The service emits gestures best first; that order is kept.
func (h jsonHand) toHandLandmarks() (HandLandmarks, error) {
	lm := HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	if len(h.Points) != NumLandmarks {
		return lm, fmt.Errorf("%w: %d points", errMalformedHand, len(h.Points))
	}

	for i, p := range h.Points {
		if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
			return lm, fmt.Errorf("%w: point %d not finite", errMalformedHand, i)
		}
		lm.Points[i] = Point3D(p)
	}

	for _, g := range h.Gestures {
		if g.Label == "" || !finite(g.Score) {
			continue
		}
		lm.Gestures = append(lm.Gestures, gesture.Candidate{Label: g.Label, Score: g.Score})
	}

	return lm, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
