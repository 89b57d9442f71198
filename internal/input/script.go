package input

// Script replays recorded frames, one per sample. Once exhausted it keeps
// returning empty frames so an engine can run until its sessions settle.
type Script struct {
	frames []Frame
	pos    int
}

// NewScript creates a script over frames. Seq values in frames are ignored
// and replaced by the sampling tick.
func NewScript(frames ...Frame) *Script {
	return &Script{frames: frames}
}

// Append adds frames to the end of the script.
func (s *Script) Append(frames ...Frame) {
	s.frames = append(s.frames, frames...)
}

// Sample implements Source.
func (s *Script) Sample(seq int64) Frame {
	if s.pos >= len(s.frames) {
		return Frame{Seq: seq}
	}
	f := s.frames[s.pos]
	s.pos++
	f.Seq = seq
	return f
}

// Remaining returns the number of frames not yet sampled.
func (s *Script) Remaining() int {
	return len(s.frames) - s.pos
}
