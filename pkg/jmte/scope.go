package jmte

// ScopeStack is the variable lookup stack of one transform call. The bottom
// frame is the caller's model and is never written to; foreach loops push a
// frame per loop and pop it on exit.
type ScopeStack struct {
	frames []map[string]any
}

// NewScopeStack creates a stack whose only frame is model.
func NewScopeStack(model map[string]any) *ScopeStack {
	if model == nil {
		model = map[string]any{}
	}
	return &ScopeStack{frames: []map[string]any{model}}
}

// Push opens a new innermost frame.
func (s *ScopeStack) Push() {
	s.frames = append(s.frames, make(map[string]any))
}

// Pop removes the innermost frame. The model frame is never removed.
func (s *ScopeStack) Pop() {
	if len(s.frames) > 1 {
		s.frames[len(s.frames)-1] = nil
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// Enter runs fn inside a fresh frame and pops it on every exit path,
// including panics.
func (s *ScopeStack) Enter(fn func()) {
	s.Push()
	defer s.Pop()
	fn()
}

// Lookup searches frames from innermost to outermost.
func (s *ScopeStack) Lookup(name string) (any, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if v, ok := s.frames[i][name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Set binds name in the innermost frame. On a stack holding only the model it
// opens a frame first so the model is left untouched.
func (s *ScopeStack) Set(name string, value any) {
	if len(s.frames) == 1 {
		s.Push()
	}
	s.frames[len(s.frames)-1][name] = value
}

// Depth returns the number of frames, including the model frame.
func (s *ScopeStack) Depth() int {
	return len(s.frames)
}
